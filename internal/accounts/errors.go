package accounts

import "errors"

var (
	// ErrNotFound indicates the profile row does not exist.
	ErrNotFound = errors.New("profile not found")
	// ErrInvalidRole indicates an unknown role value.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrEmailTaken indicates another profile already uses the email.
	ErrEmailTaken = errors.New("email already in use")
)
