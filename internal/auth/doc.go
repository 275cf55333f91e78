// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyrack Contributors

// Package auth implements the keyrack credential and session core.
//
// # Domain Types
//
// Domain types (User, Session) should be created using their constructors:
//   - NewUser - creates a User with a validated name, email, and password hash
//   - NewSession - creates a logged-in Session carrying a fresh token
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Service
//
// Service owns the two logical mappings (email to user, email to session) and
// exposes the four account operations:
//   - SignUp - admin-gated account creation
//   - Login - credential check plus session token issuance
//   - ChangePassword - credential rotation, sessions untouched
//   - Logout - marks the session logged out, the record is kept
//
// Bootstrap seeds the first ADMIN account directly; it exists because SignUp
// itself always requires an existing admin.
//
// All operations are serialized by a single mutex so that check-then-write
// sequences never interleave across concurrent callers. Failures are coded
// oops errors and never leave partial writes behind.
package auth
