// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyrack Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode asserts that err carries the given code from the keyrack
// failure taxonomy (AUTH_*, CONFIG_*).
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected coded error, got %T", err)
	actual, _ := oopsErr.Code().(string)
	assert.Equal(t, code, actual)
}

// AssertErrorContext asserts that err carries the given context key/value,
// e.g. the email or operation an auth failure was attributed to.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected coded error, got %T", err)
	ctx := oopsErr.Context()
	assert.Contains(t, ctx, key)
	assert.Equal(t, value, ctx[key])
}
