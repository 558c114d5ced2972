// Package usecase implements the business logic for the auth feature.
package usecase

import "errors"

var (
	// ErrValidation is returned when required input is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateUser is returned when registering an email that already exists.
	ErrDuplicateUser = errors.New("user already exists")

	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
	// Both cases share this error so callers cannot tell them apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated is returned when a session token is absent, invalid,
	// or belongs to a user that no longer exists.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrUserNotFound is returned when a user cannot be found by email or ID.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailAlreadyExists is returned by repositories when the unique email index is violated.
	ErrEmailAlreadyExists = errors.New("email already exists")
)
