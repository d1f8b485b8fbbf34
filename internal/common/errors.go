// Package common defines shared constants and sentinel errors used across
// client and server layers of shopkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Client input errors.
	ErrorValidation     = errors.New("validation error")
	ErrorDuplicateEmail = errors.New("email already registered")
	ErrorBadRequest     = errors.New("bad request")

	// ErrorAuthenticationFailed covers both an unknown email and a wrong
	// password. The two are never told apart.
	ErrorAuthenticationFailed = errors.New("authentication failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Configuration faults.
	ErrMalformedDigest = errors.New("malformed password digest")
	ErrEmptySecret     = errors.New("token signing secret is empty")
)
