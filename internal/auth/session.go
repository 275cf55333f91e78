// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyrack Contributors

package auth

import (
	"context"
	"time"

	"github.com/samber/oops"
)

// Session represents the login state for one account. Exactly one session
// record exists per email: a later login overwrites the token in place, and
// logout flips LoggedIn without deleting the record so a second logout can be
// detected and rejected.
type Session struct {
	Token       string
	LoggedIn    bool
	CreatedAt   time.Time
	RefreshedAt time.Time
}

// NewSession creates a logged-in session carrying the given token.
func NewSession(token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("AUTH_INVALID_TOKEN").Errorf("session token cannot be empty")
	}

	now := time.Now()
	return &Session{
		Token:       token,
		LoggedIn:    true,
		CreatedAt:   now,
		RefreshedAt: now,
	}, nil
}

// SessionRepository manages session records keyed by email.
type SessionRepository interface {
	// Put stores the session for an email, overwriting any existing record.
	Put(ctx context.Context, email string, session *Session) error

	// Get retrieves the session for an email.
	// Returns ErrNotFound if no session record exists.
	Get(ctx context.Context, email string) (*Session, error)

	// SetLoggedIn mutates the LoggedIn flag in place, keeping the record.
	// Returns ErrNotFound if no session record exists.
	SetLoggedIn(ctx context.Context, email string, loggedIn bool) error
}
