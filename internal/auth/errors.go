// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyrack Contributors

package auth

import "errors"

// ErrNotFound is returned by repositories when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrExists is returned by repositories when a record with the same key
// already exists.
var ErrExists = errors.New("already exists")

// Stable oops error codes for the operation failure taxonomy. Callers may
// match on these codes or on the stable strings produced by FailureFromError.
const (
	CodeAdminNotFound    = "AUTH_ADMIN_NOT_FOUND"
	CodeNotAuthorized    = "AUTH_NOT_AUTHORIZED"
	CodeDuplicateUser    = "AUTH_DUPLICATE_USER"
	CodeUserNotFound     = "AUTH_USER_NOT_FOUND"
	CodeWrongPassword    = "AUTH_WRONG_PASSWORD"
	CodeNotLoggedIn      = "AUTH_NOT_LOGGED_IN"
	CodeAlreadyLoggedOut = "AUTH_ALREADY_LOGGED_OUT"
)
