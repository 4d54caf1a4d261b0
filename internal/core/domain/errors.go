package domain

import "errors"

var (
	// ErrInvalidUser is returned when a user candidate misses mandatory data.
	ErrInvalidUser = errors.New("invalid user")
	// ErrInvalidCredentials is deliberately the same for unknown users, wrong
	// passwords and inactive accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTooManyAttempts    = errors.New("too many failed attempts")
	ErrUserNotFound       = errors.New("user not found")
	// ErrUserExists is always joined with ErrPersistence by the identity service.
	ErrUserExists = errors.New("user already exists")

	ErrHashing         = errors.New("password hashing failed")
	ErrMalformedDigest = errors.New("malformed password digest")
	ErrPersistence     = errors.New("persistence failed")

	ErrNotImplemented = errors.New("not implemented")
)
