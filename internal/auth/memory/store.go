// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyrack Contributors

// Package memory provides in-process repository implementations backed by
// maps. State lives for the life of the process; durable storage is out of
// scope for keyrack.
package memory

import (
	"context"
	"sync"

	"github.com/keyrack/keyrack/internal/auth"
)

// UserStore is an in-memory auth.UserRepository keyed by email.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]*auth.User
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[string]*auth.User),
	}
}

// copyUser returns a defensive copy so callers cannot mutate stored state.
func copyUser(u *auth.User) *auth.User {
	copied := *u
	return &copied
}

// Create stores a new user. The existence check and insert happen under one
// lock so concurrent creates for the same email cannot both succeed.
func (s *UserStore) Create(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Email]; exists {
		return auth.ErrExists
	}
	s.users[user.Email] = copyUser(user)
	return nil
}

// GetByEmail retrieves a user by email (case-sensitive).
func (s *UserStore) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[email]
	if !exists {
		return nil, auth.ErrNotFound
	}
	return copyUser(user), nil
}

// Update replaces an existing user record wholesale.
func (s *UserStore) Update(_ context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Email]; !exists {
		return auth.ErrNotFound
	}
	s.users[user.Email] = copyUser(user)
	return nil
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// SessionStore is an in-memory auth.SessionRepository keyed by email.
// Records are overwritten on login and mutated in place on logout; they are
// never deleted, so a repeated logout stays detectable.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*auth.Session
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*auth.Session),
	}
}

func copySession(s *auth.Session) *auth.Session {
	copied := *s
	return &copied
}

// Put stores the session for an email, overwriting any existing record.
func (s *SessionStore) Put(_ context.Context, email string, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[email] = copySession(session)
	return nil
}

// Get retrieves the session for an email.
func (s *SessionStore) Get(_ context.Context, email string) (*auth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[email]
	if !exists {
		return nil, auth.ErrNotFound
	}
	return copySession(session), nil
}

// SetLoggedIn mutates the LoggedIn flag in place, keeping the record.
func (s *SessionStore) SetLoggedIn(_ context.Context, email string, loggedIn bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[email]
	if !exists {
		return auth.ErrNotFound
	}
	session.LoggedIn = loggedIn
	return nil
}

// Len returns the number of stored session records.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
