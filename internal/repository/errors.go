package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicateEmail indicates the email address is already registered.
	ErrDuplicateEmail = errors.New("repository: duplicate email")
	// ErrDuplicateUsername indicates the username is already taken.
	ErrDuplicateUsername = errors.New("repository: duplicate username")
)
