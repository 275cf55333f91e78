// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyrack Contributors

package auth

import (
	"crypto/rand"

	"github.com/samber/oops"
)

// tokenAlphabet is the 62-character alphanumeric alphabet tokens draw from.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultTokenLength is the session token length issued by the Service.
const DefaultTokenLength = 32

// NewToken returns a random token of the given length drawn uniformly from
// the alphanumeric alphabet using crypto/rand. Uniformity is kept with
// rejection sampling: 62*4 = 248, so bytes of 248 and above are discarded
// instead of folding back onto the alphabet with modulo bias.
func NewToken(length int) (string, error) {
	if length <= 0 {
		return "", oops.Code("AUTH_TOKEN_GENERATE_FAILED").
			With("length", length).
			Errorf("token length must be positive")
	}

	const limit = byte(len(tokenAlphabet) * 4) // 248

	token := make([]byte, 0, length)
	buf := make([]byte, length)
	for len(token) < length {
		if _, err := rand.Read(buf); err != nil {
			return "", oops.Code("AUTH_TOKEN_GENERATE_FAILED").
				With("operation", "crypto/rand.Read").
				Wrap(err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			token = append(token, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(token) == length {
				break
			}
		}
	}

	return string(token), nil
}
