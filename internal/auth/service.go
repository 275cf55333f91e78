// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyrack Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/keyrack/keyrack/internal/observability"
	"github.com/keyrack/keyrack/pkg/errutil"
)

// Service owns the credential and session state. All operations are
// serialized by a single mutex: a check-then-write pair (signup existence
// check, logout state check) must never interleave with another mutation.
type Service struct {
	mu          sync.Mutex
	users       UserRepository
	sessions    SessionRepository
	hasher      PasswordHasher
	tokenLength int
	logger      *slog.Logger
}

// ServiceOption configures optional Service behavior.
type ServiceOption func(*Service)

// WithLogger sets the structured logger used by the service.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithTokenLength overrides the session token length.
func WithTokenLength(length int) ServiceOption {
	return func(s *Service) { s.tokenLength = length }
}

// NewService creates a Service over the given repositories and hasher.
func NewService(users UserRepository, sessions SessionRepository, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("password hasher is required")
	}

	s := &Service{
		users:       users,
		sessions:    sessions,
		hasher:      hasher,
		tokenLength: DefaultTokenLength,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").Errorf("logger is required")
	}
	if s.tokenLength <= 0 {
		return nil, oops.Code("AUTH_INVALID_DEPENDENCY").
			With("token_length", s.tokenLength).
			Errorf("token length must be positive")
	}

	return s, nil
}

// SignUp provisions a new USER-role account on behalf of an existing admin.
// Checks run in order, first failure wins: admin exists, admin holds the
// ADMIN role, target email is free. No session is created.
func (s *Service) SignUp(ctx context.Context, name, email, password, adminEmail string) (*UserView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.signUp(ctx, name, email, password, adminEmail)
	s.finish("signup", email, err)
	return view, err
}

func (s *Service) signUp(ctx context.Context, name, email, password, adminEmail string) (*UserView, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	admin, err := s.users.GetByEmail(ctx, adminEmail)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(CodeAdminNotFound).
				With("admin_email", adminEmail).
				Errorf("admin not found")
		}
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "get admin by email").
			Wrap(err)
	}
	if !admin.IsAdmin() {
		return nil, oops.Code(CodeNotAuthorized).
			With("admin_email", adminEmail).
			With("role", string(admin.Role)).
			Errorf("not authorized")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, oops.Code(CodeDuplicateUser).
			With("email", email).
			Errorf("duplicate user")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "check email availability").
			Wrap(err)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := NewUser(name, email, hash, RoleUser)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrExists) {
			return nil, oops.Code(CodeDuplicateUser).
				With("email", email).
				Errorf("duplicate user")
		}
		return nil, oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.Debug("user created", "email", email, "role", string(user.Role))
	return user.View(), nil
}

// Login verifies credentials and issues a fresh session token, overwriting
// any existing session record for the email. Logging in while already logged
// in is permitted and silently replaces the token.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.login(ctx, email, password)
	s.finish("login", email, err)
	return token, err
}

func (s *Service) login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", oops.Code(CodeUserNotFound).
				With("email", email).
				Errorf("user not found")
		}
		return "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	valid, err := s.verifyPassword(password, user.PasswordHash)
	if err != nil {
		return "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(err)
	}
	if !valid {
		return "", oops.Code(CodeWrongPassword).
			With("email", email).
			Errorf("wrong password")
	}

	// Migrate the stored hash when the hasher has a newer scheme. Best
	// effort: login succeeds even if the rewrite fails.
	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			if updateErr := s.users.Update(ctx, user.WithPasswordHash(newHash)); updateErr != nil {
				errutil.LogError(s.logger, "password hash upgrade failed", updateErr)
			}
		}
	}

	token, err := NewToken(s.tokenLength)
	if err != nil {
		return "", err
	}

	session, err := NewSession(token)
	if err != nil {
		return "", err
	}

	if err := s.sessions.Put(ctx, email, session); err != nil {
		return "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "store session").
			Wrap(err)
	}

	s.logger.Debug("session opened", "email", email)
	return token, nil
}

// ChangePassword rotates an account's credential after verifying the old
// one. The user record is replaced wholesale with the same name and role.
// Existing sessions stay valid: no implicit revocation on credential change.
func (s *Service) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.changePassword(ctx, email, oldPassword, newPassword)
	s.finish("change_password", email, err)
	return err
}

func (s *Service) changePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeUserNotFound).
				With("email", email).
				Errorf("user not found")
		}
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	valid, err := s.verifyPassword(oldPassword, user.PasswordHash)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "verify password").
			Wrap(err)
	}
	if !valid {
		return oops.Code(CodeWrongPassword).
			With("email", email).
			Errorf("wrong password")
	}

	newHash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.Update(ctx, user.WithPasswordHash(newHash)); err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").
			With("operation", "update user").
			Wrap(err)
	}

	s.logger.Debug("password changed", "email", email)
	return nil
}

// Logout marks the account's session as logged out. The record is mutated in
// place and kept, so a repeated logout is rejected rather than absorbed.
func (s *Service) Logout(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.logout(ctx, email)
	s.finish("logout", email, err)
	return err
}

func (s *Service) logout(ctx context.Context, email string) error {
	session, err := s.sessions.Get(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(CodeNotLoggedIn).
				With("email", email).
				Errorf("not logged in")
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "get session").
			Wrap(err)
	}
	if !session.LoggedIn {
		return oops.Code(CodeAlreadyLoggedOut).
			With("email", email).
			Errorf("already logged out")
	}

	if err := s.sessions.SetLoggedIn(ctx, email, false); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "mark session logged out").
			Wrap(err)
	}

	s.logger.Debug("session closed", "email", email)
	return nil
}

// Whoami reports an account's public view and whether it currently holds a
// logged-in session. A registered account with no session record, or one
// whose session is marked logged out, reports false.
func (s *Service) Whoami(ctx context.Context, email string) (*UserView, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, loggedIn, err := s.whoami(ctx, email)
	s.finish("whoami", email, err)
	return view, loggedIn, err
}

func (s *Service) whoami(ctx context.Context, email string) (*UserView, bool, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, oops.Code(CodeUserNotFound).
				With("email", email).
				Errorf("user not found")
		}
		return nil, false, oops.Code("AUTH_WHOAMI_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	session, err := s.sessions.Get(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return user.View(), false, nil
		}
		return nil, false, oops.Code("AUTH_WHOAMI_FAILED").
			With("operation", "get session").
			Wrap(err)
	}

	return user.View(), session.LoggedIn, nil
}

// Bootstrap seeds an ADMIN-role account directly, bypassing the admin gate.
// SignUp can never create the first admin, so some initialization step has to.
// Idempotent: if the email already belongs to an admin, that account is
// returned unchanged. A non-admin account under the email is a conflict.
func (s *Service) Bootstrap(ctx context.Context, name, email, password string) (*UserView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, err := s.bootstrap(ctx, name, email, password)
	s.finish("bootstrap", email, err)
	return view, err
}

func (s *Service) bootstrap(ctx context.Context, name, email, password string) (*UserView, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if existing.IsAdmin() {
			return existing.View(), nil
		}
		return nil, oops.Code("AUTH_BOOTSTRAP_CONFLICT").
			With("email", email).
			With("role", string(existing.Role)).
			Errorf("email is registered to a non-admin account")
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, oops.Code("AUTH_BOOTSTRAP_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	admin, err := NewUser(name, email, hash, RoleAdmin)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, admin); err != nil {
		return nil, oops.Code("AUTH_BOOTSTRAP_FAILED").
			With("operation", "create admin").
			Wrap(err)
	}

	s.logger.Info("bootstrap admin seeded", "email", email)
	return admin.View(), nil
}

func (s *Service) hashPassword(password string) (string, error) {
	start := time.Now()
	hash, err := s.hasher.Hash(password)
	observability.ObserveHashDuration(time.Since(start))
	return hash, err
}

func (s *Service) verifyPassword(password, hash string) (bool, error) {
	start := time.Now()
	valid, err := s.hasher.Verify(password, hash)
	observability.ObserveHashDuration(time.Since(start))
	return valid, err
}

// finish records the operation metric and logs rejected operations.
func (s *Service) finish(operation, email string, err error) {
	observability.RecordAuthOperation(operation, err == nil)
	if err == nil {
		return
	}

	attrs := []any{"operation", operation, "email", email, "error", err.Error()}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok && code != "" {
			attrs = append(attrs, "code", code)
		}
	}
	s.logger.Warn("operation rejected", attrs...)
}
