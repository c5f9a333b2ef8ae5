package auth

import "errors"

var (
	// ErrUnauthorized covers every failed token resolution: missing header,
	// malformed or expired token, rejection by the auth service.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenExpired is wrapped into ErrUnauthorized for expired tokens.
	ErrTokenExpired = errors.New("token expired")
)
