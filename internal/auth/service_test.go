// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyrack Contributors

package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyrack/keyrack/internal/auth"
	"github.com/keyrack/keyrack/internal/auth/memory"
	"github.com/keyrack/keyrack/pkg/errutil"
)

// newService builds a Service over fresh in-memory stores.
func newService(t *testing.T, opts ...auth.ServiceOption) (*auth.Service, *memory.UserStore, *memory.SessionStore) {
	t.Helper()
	users := memory.NewUserStore()
	sessions := memory.NewSessionStore()
	svc, err := auth.NewService(users, sessions, auth.NewDigestHasher(), opts...)
	require.NoError(t, err)
	return svc, users, sessions
}

// seedAdmin bootstraps the admin every signup needs.
func seedAdmin(t *testing.T, svc *auth.Service, email string) {
	t.Helper()
	_, err := svc.Bootstrap(context.Background(), "Admin", email, "admin-password")
	require.NoError(t, err)
}

func TestNewService_InvalidDependencies(t *testing.T) {
	users := memory.NewUserStore()
	sessions := memory.NewSessionStore()
	hasher := auth.NewDigestHasher()

	tests := []struct {
		name        string
		build       func() (*auth.Service, error)
		expectError string
	}{
		{
			name:        "nil users repository",
			build:       func() (*auth.Service, error) { return auth.NewService(nil, sessions, hasher) },
			expectError: "users repository is required",
		},
		{
			name:        "nil sessions repository",
			build:       func() (*auth.Service, error) { return auth.NewService(users, nil, hasher) },
			expectError: "sessions repository is required",
		},
		{
			name:        "nil password hasher",
			build:       func() (*auth.Service, error) { return auth.NewService(users, sessions, nil) },
			expectError: "password hasher is required",
		},
		{
			name: "nil logger",
			build: func() (*auth.Service, error) {
				return auth.NewService(users, sessions, hasher, auth.WithLogger(nil))
			},
			expectError: "logger is required",
		},
		{
			name: "non-positive token length",
			build: func() (*auth.Service, error) {
				return auth.NewService(users, sessions, hasher, auth.WithTokenLength(0))
			},
			expectError: "token length must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := tt.build()
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestService_SignUp(t *testing.T) {
	ctx := context.Background()

	t.Run("success creates a USER-role account without a session", func(t *testing.T) {
		svc, users, sessions := newService(t)
		seedAdmin(t, svc, "admin@x")

		view, err := svc.SignUp(ctx, "Jane", "jane@x", "pw", "admin@x")
		require.NoError(t, err)
		assert.Equal(t, "Jane", view.Name)
		assert.Equal(t, "jane@x", view.Email)
		assert.Equal(t, auth.RoleUser, view.Role)

		stored, err := users.GetByEmail(ctx, "jane@x")
		require.NoError(t, err)
		assert.NotEqual(t, "pw", stored.PasswordHash)
		assert.Regexp(t, "^[0-9a-f]{64}$", stored.PasswordHash)

		_, err = sessions.Get(ctx, "jane@x")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("admin not found", func(t *testing.T) {
		svc, _, _ := newService(t)

		view, err := svc.SignUp(ctx, "Jane", "jane@x", "pw", "ghost@x")
		require.Error(t, err)
		assert.Nil(t, view)
		errutil.AssertErrorCode(t, err, auth.CodeAdminNotFound)
	})

	t.Run("non-admin caller is not authorized", func(t *testing.T) {
		svc, _, _ := newService(t)
		seedAdmin(t, svc, "admin@x")
		_, err := svc.SignUp(ctx, "Jane", "jane@x", "pw", "admin@x")
		require.NoError(t, err)

		view, err := svc.SignUp(ctx, "Fred", "fred@x", "pw", "jane@x")
		require.Error(t, err)
		assert.Nil(t, view)
		errutil.AssertErrorCode(t, err, auth.CodeNotAuthorized)
	})

	t.Run("duplicate email", func(t *testing.T) {
		svc, users, _ := newService(t)
		seedAdmin(t, svc, "admin@x")
		_, err := svc.SignUp(ctx, "Jane", "jane@x", "pw", "admin@x")
		require.NoError(t, err)

		before, err := users.GetByEmail(ctx, "jane@x")
		require.NoError(t, err)

		_, err = svc.SignUp(ctx, "Impostor", "jane@x", "other", "admin@x")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeDuplicateUser)

		// First user's record is unchanged.
		after, err := users.GetByEmail(ctx, "jane@x")
		require.NoError(t, err)
		assert.Equal(t, before.Name, after.Name)
		assert.Equal(t, before.PasswordHash, after.PasswordHash)
	})

	t.Run("admin check wins over duplicate check", func(t *testing.T) {
		svc, _, _ := newService(t)
		seedAdmin(t, svc, "admin@x")
		_, err := svc.SignUp(ctx, "Jane", "jane@x", "pw", "admin@x")
		require.NoError(t, err)

		// Target email is taken AND the admin is unknown: the admin
		// check is evaluated first.
		_, err = svc.SignUp(ctx, "Jane", "jane@x", "pw", "ghost@x")
		errutil.AssertErrorCode(t, err, auth.CodeAdminNotFound)

		// Target email is taken AND the caller is a plain user: the
		// role check is evaluated first.
		_, err = svc.SignUp(ctx, "Jane", "jane@x", "pw", "jane@x")
		errutil.AssertErrorCode(t, err, auth.CodeNotAuthorized)
	})

	t.Run("input validation", func(t *testing.T) {
		svc, users, _ := newService(t)
		seedAdmin(t, svc, "admin@x")

		_, err := svc.SignUp(ctx, "", "jane@x", "pw", "admin@x")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_NAME")

		_, err = svc.SignUp(ctx, "Jane", "not-an-email", "pw", "admin@x")
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_EMAIL")

		_, err = svc.SignUp(ctx, "Jane", "jane@x", "", "admin@x")
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")

		// Nothing was written.
		assert.Equal(t, 1, users.Len())
	})

	t.Run("repository failure is wrapped", func(t *testing.T) {
		users := &failingUserRepo{err: errors.New("disk on fire")}
		svc, err := auth.NewService(users, memory.NewSessionStore(), auth.NewDigestHasher())
		require.NoError(t, err)

		_, err = svc.SignUp(ctx, "Jane", "jane@x", "pw", "admin@x")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_SIGNUP_FAILED")
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success issues a 32-char alphanumeric token", func(t *testing.T) {
		svc, _, sessions := newService(t)
		seedAdmin(t, svc, "admin@x")
		_, err := svc.SignUp(ctx, "Jane", "jane@x", "pw", "admin@x")
		require.NoError(t, err)

		token, err := svc.Login(ctx, "jane@x", "pw")
		require.NoError(t, err)
		assert.Regexp(t, "^[A-Za-z0-9]{32}$", token)

		session, err := sessions.Get(ctx, "jane@x")
		require.NoError(t, err)
		assert.True(t, session.LoggedIn)
		assert.Equal(t, token, session.Token)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, _, _ := newService(t)

		token, err := svc.Login(ctx, "ghost@x", "pw")
		require.Error(t, err)
		assert.Empty(t, token)
		errutil.AssertErrorCode(t, err, auth.CodeUserNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, _, sessions := newService(t)
		seedAdmin(t, svc, "admin@x")
		_, err := svc.SignUp(ctx, "Jane", "jane@x", "pw", "admin@x")
		require.NoError(t, err)

		token, err := svc.Login(ctx, "jane@x", "pwx")
		require.Error(t, err)
		assert.Empty(t, token)
		errutil.AssertErrorCode(t, err, auth.CodeWrongPassword)

		// No session was created by the failed login.
		_, err = sessions.Get(ctx, "jane@x")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("re-login silently replaces the token", func(t *testing.T) {
		svc, _, sessions := newService(t)
		seedAdmin(t, svc, "admin@x")
		_, err := svc.SignUp(ctx, "Jane", "jane@x", "pw", "admin@x")
		require.NoError(t, err)

		first, err := svc.Login(ctx, "jane@x", "pw")
		require.NoError(t, err)
		second, err := svc.Login(ctx, "jane@x", "pw")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		session, err := sessions.Get(ctx, "jane@x")
		require.NoError(t, err)
		assert.Equal(t, second, session.Token)
		assert.Equal(t, 1, sessions.Len())
	})

	t.Run("custom token length", func(t *testing.T) {
		svc, _, _ := newService(t, auth.WithTokenLength(48))
		seedAdmin(t, svc, "admin@x")

		token, err := svc.Login(ctx, "admin@x", "admin-password")
		require.NoError(t, err)
		assert.Len(t, token, 48)
	})

	t.Run("stored digest migrates when the hasher upgrades", func(t *testing.T) {
		users := memory.NewUserStore()
		sessions := memory.NewSessionStore()

		digestSvc, err := auth.NewService(users, sessions, auth.NewDigestHasher())
		require.NoError(t, err)
		_, err = digestSvc.Bootstrap(ctx, "Admin", "admin@x", "admin-password")
		require.NoError(t, err)

		upgraded, err := auth.NewService(users, sessions,
			auth.NewMigratingHasher(auth.NewArgon2idHasher(), auth.NewDigestHasher()))
		require.NoError(t, err)

		_, err = upgraded.Login(ctx, "admin@x", "admin-password")
		require.NoError(t, err)

		// The stored digest was rewritten as argon2id on login.
		stored, err := users.GetByEmail(ctx, "admin@x")
		require.NoError(t, err)
		assert.Contains(t, stored.PasswordHash, "$argon2id$")

		// And the new hash still verifies.
		_, err = upgraded.Login(ctx, "admin@x", "admin-password")
		require.NoError(t, err)
	})
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("old credential stops working, new one works", func(t *testing.T) {
		svc, _, _ := newService(t)
		seedAdmin(t, svc, "admin@x")
		_, err := svc.SignUp(ctx, "Jane", "jane@x", "pw", "admin@x")
		require.NoError(t, err)

		require.NoError(t, svc.ChangePassword(ctx, "jane@x", "pw", "pw2"))

		_, err = svc.Login(ctx, "jane@x", "pw")
		errutil.AssertErrorCode(t, err, auth.CodeWrongPassword)

		_, err = svc.Login(ctx, "jane@x", "pw2")
		require.NoError(t, err)
	})

	t.Run("unknown email", func(t *testing.T) {
		svc, _, _ := newService(t)
		err := svc.ChangePassword(ctx, "ghost@x", "pw", "pw2")
		errutil.AssertErrorCode(t, err, auth.CodeUserNotFound)
	})

	t.Run("wrong old password leaves the record unchanged", func(t *testing.T) {
		svc, users, _ := newService(t)
		seedAdmin(t, svc, "admin@x")
		_, err := svc.SignUp(ctx, "Jane", "jane@x", "pw", "admin@x")
		require.NoError(t, err)

		before, err := users.GetByEmail(ctx, "jane@x")
		require.NoError(t, err)

		err = svc.ChangePassword(ctx, "jane@x", "wrong", "pw2")
		errutil.AssertErrorCode(t, err, auth.CodeWrongPassword)

		after, err := users.GetByEmail(ctx, "jane@x")
		require.NoError(t, err)
		assert.Equal(t, before.PasswordHash, after.PasswordHash)
	})

	t.Run("name and role survive the replacement", func(t *testing.T) {
		svc, users, _ := newService(t)
		seedAdmin(t, svc, "admin@x")

		require.NoError(t, svc.ChangePassword(ctx, "admin@x", "admin-password", "rotated"))

		admin, err := users.GetByEmail(ctx, "admin@x")
		require.NoError(t, err)
		assert.Equal(t, "Admin", admin.Name)
		assert.Equal(t, auth.RoleAdmin, admin.Role)
	})

	t.Run("active session stays valid", func(t *testing.T) {
		svc, _, sessions := newService(t)
		seedAdmin(t, svc, "admin@x")

		token, err := svc.Login(ctx, "admin@x", "admin-password")
		require.NoError(t, err)

		require.NoError(t, svc.ChangePassword(ctx, "admin@x", "admin-password", "rotated"))

		session, err := sessions.Get(ctx, "admin@x")
		require.NoError(t, err)
		assert.True(t, session.LoggedIn)
		assert.Equal(t, token, session.Token)
	})

	t.Run("empty new password", func(t *testing.T) {
		svc, _, _ := newService(t)
		seedAdmin(t, svc, "admin@x")

		err := svc.ChangePassword(ctx, "admin@x", "admin-password", "")
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("marks the session logged out and keeps the record", func(t *testing.T) {
		svc, _, sessions := newService(t)
		seedAdmin(t, svc, "admin@x")
		_, err := svc.Login(ctx, "admin@x", "admin-password")
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, "admin@x"))

		session, err := sessions.Get(ctx, "admin@x")
		require.NoError(t, err)
		assert.False(t, session.LoggedIn)
		assert.NotEmpty(t, session.Token)
	})

	t.Run("second logout is rejected", func(t *testing.T) {
		svc, _, _ := newService(t)
		seedAdmin(t, svc, "admin@x")
		_, err := svc.Login(ctx, "admin@x", "admin-password")
		require.NoError(t, err)

		require.NoError(t, svc.Logout(ctx, "admin@x"))

		err = svc.Logout(ctx, "admin@x")
		errutil.AssertErrorCode(t, err, auth.CodeAlreadyLoggedOut)
	})

	t.Run("logout without any login", func(t *testing.T) {
		svc, _, _ := newService(t)
		seedAdmin(t, svc, "admin@x")

		err := svc.Logout(ctx, "admin@x")
		errutil.AssertErrorCode(t, err, auth.CodeNotLoggedIn)
	})

	t.Run("login after logout works again", func(t *testing.T) {
		svc, _, sessions := newService(t)
		seedAdmin(t, svc, "admin@x")

		_, err := svc.Login(ctx, "admin@x", "admin-password")
		require.NoError(t, err)
		require.NoError(t, svc.Logout(ctx, "admin@x"))

		token, err := svc.Login(ctx, "admin@x", "admin-password")
		require.NoError(t, err)

		session, err := sessions.Get(ctx, "admin@x")
		require.NoError(t, err)
		assert.True(t, session.LoggedIn)
		assert.Equal(t, token, session.Token)
	})
}

func TestService_Whoami(t *testing.T) {
	ctx := context.Background()

	t.Run("registered account without a session", func(t *testing.T) {
		svc, _, _ := newService(t)
		seedAdmin(t, svc, "admin@x")

		view, loggedIn, err := svc.Whoami(ctx, "admin@x")
		require.NoError(t, err)
		assert.False(t, loggedIn)
		assert.Equal(t, "admin@x", view.Email)
		assert.Equal(t, auth.RoleAdmin, view.Role)
	})

	t.Run("reports logged in after login", func(t *testing.T) {
		svc, _, _ := newService(t)
		seedAdmin(t, svc, "admin@x")
		_, err := svc.Login(ctx, "admin@x", "admin-password")
		require.NoError(t, err)

		_, loggedIn, err := svc.Whoami(ctx, "admin@x")
		require.NoError(t, err)
		assert.True(t, loggedIn)
	})

	t.Run("reports logged out after logout", func(t *testing.T) {
		svc, _, _ := newService(t)
		seedAdmin(t, svc, "admin@x")
		_, err := svc.Login(ctx, "admin@x", "admin-password")
		require.NoError(t, err)
		require.NoError(t, svc.Logout(ctx, "admin@x"))

		view, loggedIn, err := svc.Whoami(ctx, "admin@x")
		require.NoError(t, err)
		assert.False(t, loggedIn)
		assert.Equal(t, "admin@x", view.Email)
	})

	t.Run("unknown account", func(t *testing.T) {
		svc, _, _ := newService(t)

		_, _, err := svc.Whoami(ctx, "nobody@x")
		errutil.AssertErrorCode(t, err, auth.CodeUserNotFound)
	})
}

func TestService_Bootstrap(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds an admin account", func(t *testing.T) {
		svc, users, _ := newService(t)

		view, err := svc.Bootstrap(ctx, "Root", "root@x", "pw")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, view.Role)

		stored, err := users.GetByEmail(ctx, "root@x")
		require.NoError(t, err)
		assert.True(t, stored.IsAdmin())
	})

	t.Run("idempotent for an existing admin", func(t *testing.T) {
		svc, users, _ := newService(t)

		first, err := svc.Bootstrap(ctx, "Root", "root@x", "pw")
		require.NoError(t, err)
		second, err := svc.Bootstrap(ctx, "Root", "root@x", "pw")
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 1, users.Len())
	})

	t.Run("conflicts with an existing plain user", func(t *testing.T) {
		svc, _, _ := newService(t)
		seedAdmin(t, svc, "admin@x")
		_, err := svc.SignUp(ctx, "Jane", "jane@x", "pw", "admin@x")
		require.NoError(t, err)

		_, err = svc.Bootstrap(ctx, "Jane", "jane@x", "pw")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_BOOTSTRAP_CONFLICT")
	})
}

// TestService_Lifecycle runs the full account lifecycle end to end.
func TestService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	// Bootstrap the first admin.
	_, err := svc.Bootstrap(ctx, "Admin", "admin@x", "admin-password")
	require.NoError(t, err)

	// Admin provisions a user.
	view, err := svc.SignUp(ctx, "J", "j@x", "pw", "admin@x")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleUser, view.Role)

	// The same signup again is a duplicate.
	_, err = svc.SignUp(ctx, "J", "j@x", "pw", "admin@x")
	errutil.AssertErrorCode(t, err, auth.CodeDuplicateUser)

	// Correct credentials log in with a 32-char alphanumeric token.
	token, err := svc.Login(ctx, "j@x", "pw")
	require.NoError(t, err)
	assert.Regexp(t, "^[A-Za-z0-9]{32}$", token)

	// Bad credentials do not.
	_, err = svc.Login(ctx, "j@x", "bad")
	errutil.AssertErrorCode(t, err, auth.CodeWrongPassword)

	// Rotate the password; only the new one works afterwards.
	require.NoError(t, svc.ChangePassword(ctx, "j@x", "pw", "pw2"))
	_, err = svc.Login(ctx, "j@x", "pw2")
	require.NoError(t, err)

	// Logout once succeeds, twice is rejected.
	require.NoError(t, svc.Logout(ctx, "j@x"))
	err = svc.Logout(ctx, "j@x")
	errutil.AssertErrorCode(t, err, auth.CodeAlreadyLoggedOut)

	// A plain user cannot provision accounts.
	_, err = svc.SignUp(ctx, "F", "f@x", "1", "j@x")
	errutil.AssertErrorCode(t, err, auth.CodeNotAuthorized)
}

// failingUserRepo returns its configured error from every method.
type failingUserRepo struct {
	err error
}

func (r *failingUserRepo) Create(context.Context, *auth.User) error {
	return r.err
}

func (r *failingUserRepo) GetByEmail(context.Context, string) (*auth.User, error) {
	return nil, r.err
}

func (r *failingUserRepo) Update(context.Context, *auth.User) error {
	return r.err
}

func TestService_RepositoryFailures(t *testing.T) {
	ctx := context.Background()
	users := &failingUserRepo{err: errors.New("backend unavailable")}
	svc, err := auth.NewService(users, memory.NewSessionStore(), auth.NewDigestHasher())
	require.NoError(t, err)

	_, err = svc.Login(ctx, "jane@x", "pw")
	errutil.AssertErrorCode(t, err, "AUTH_LOGIN_FAILED")
	assert.True(t, strings.Contains(err.Error(), "backend unavailable") ||
		errors.Is(err, users.err))

	err = svc.ChangePassword(ctx, "jane@x", "pw", "pw2")
	errutil.AssertErrorCode(t, err, "AUTH_CHANGE_PASSWORD_FAILED")

	_, err = svc.Bootstrap(ctx, "Root", "root@x", "pw")
	errutil.AssertErrorCode(t, err, "AUTH_BOOTSTRAP_FAILED")
}
