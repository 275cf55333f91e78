// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyrack Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Role classifies an account. Only admins may provision new accounts.
type Role string

// Account roles.
const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid returns true if the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// MaxNameLength bounds the display name.
const MaxNameLength = 100

// User represents a registered account. PasswordHash holds the lowercase hex
// digest of the password; the plaintext is never retained.
type User struct {
	ID           ulid.ULID
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserView is the public projection of a User, safe to hand to callers.
// It never carries the password hash.
type UserView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a validated User. The hash must already be computed by a
// PasswordHasher; NewUser never sees a plaintext password.
func NewUser(name, email, passwordHash string, role Role) (*User, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	if !role.Valid() {
		return nil, oops.Code("AUTH_INVALID_ROLE").
			With("role", string(role)).
			Errorf("unknown role %q", string(role))
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsAdmin returns true if the user may provision new accounts.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// WithPasswordHash returns a copy of the user carrying a new password hash.
// Name, email, and role are preserved; UpdatedAt is refreshed.
func (u *User) WithPasswordHash(hash string) *User {
	replaced := *u
	replaced.PasswordHash = hash
	replaced.UpdatedAt = time.Now()
	return &replaced
}

// View returns the public projection of the user.
func (u *User) View() *UserView {
	return &UserView{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// ValidateName validates a display name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return oops.Code("AUTH_INVALID_NAME").Errorf("name cannot be empty")
	}
	if len(name) > MaxNameLength {
		return oops.Code("AUTH_INVALID_NAME").
			With("max", MaxNameLength).
			Errorf("name must be at most %d characters", MaxNameLength)
	}
	return nil
}

// ValidateEmail validates an account email. Emails are treated as opaque
// case-sensitive keys; the only structural requirement is a single @ with
// non-empty local and domain parts.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return oops.Code("AUTH_INVALID_EMAIL").
			With("email", email).
			Errorf("email must contain a single @ with non-empty local and domain parts")
	}
	return nil
}

// UserRepository manages user records keyed by email.
type UserRepository interface {
	// Create stores a new user. Returns ErrExists if the email is taken.
	Create(ctx context.Context, user *User) error

	// GetByEmail retrieves a user by email (case-sensitive).
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update replaces an existing user record wholesale.
	// Returns ErrNotFound if the email is not registered.
	Update(ctx context.Context, user *User) error
}
