package client

import "errors"

var (
	ErrUnavailable          = errors.New("server unavailable")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAlreadyExists        = errors.New("email already registered")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNoToken              = errors.New("server returned no session token")
)
