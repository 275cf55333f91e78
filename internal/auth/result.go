// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyrack Contributors

package auth

import "github.com/samber/oops"

// Result is the structured envelope handed to external callers (CLI, HTTP
// handler, test harness). Success results carry the operation payload;
// failures carry one stable error string from the taxonomy.
type Result struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Token   string    `json:"token,omitempty"`
	Email   string    `json:"email,omitempty"`
	Data    *UserView `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Stable failure strings callers may match on.
var failureStrings = map[string]string{
	CodeAdminNotFound:    "admin not found",
	CodeNotAuthorized:    "not authorized",
	CodeDuplicateUser:    "duplicate user",
	CodeUserNotFound:     "user not found",
	CodeWrongPassword:    "wrong password",
	CodeNotLoggedIn:      "not logged in",
	CodeAlreadyLoggedOut: "already logged out",
}

// SignUpResult wraps a created user into a success envelope.
func SignUpResult(view *UserView) Result {
	return Result{
		Success: true,
		Message: "user created",
		Email:   view.Email,
		Data:    view,
	}
}

// LoginResult wraps a fresh session token into a success envelope.
func LoginResult(token string) Result {
	return Result{
		Success: true,
		Message: "login successful",
		Token:   token,
	}
}

// WhoamiResult wraps an account's public view and session state into a
// success envelope.
func WhoamiResult(view *UserView, loggedIn bool) Result {
	message := "logged out"
	if loggedIn {
		message = "logged in"
	}
	return Result{
		Success: true,
		Message: message,
		Email:   view.Email,
		Data:    view,
	}
}

// OK returns a success envelope carrying only a confirmation message.
func OK(message string) Result {
	return Result{Success: true, Message: message}
}

// FailureFromError maps an operation error onto a failure envelope. Taxonomy
// codes map to their stable strings; anything else falls back to the error
// message.
func FailureFromError(err error) Result {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			if msg, known := failureStrings[code]; known {
				return Result{Success: false, Error: msg}
			}
		}
	}
	return Result{Success: false, Error: err.Error()}
}
