// Package usecase implements the business logic for the tasks feature.
package usecase

import "errors"

var (
	// ErrValidation is returned for a blank title or an empty search query.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when a task identifier is malformed.
	// It is detected before any storage access.
	ErrInvalidID = errors.New("invalid task id")

	// ErrTaskNotFound is returned when the task does not exist or belongs to another user.
	// Both cases share this error so the existence of other users' tasks never leaks.
	ErrTaskNotFound = errors.New("task not found")
)
