// Package entity defines the domain models for the tasks feature.
package entity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedID is returned by ParseTaskID for a string that is not a task identifier.
var ErrMalformedID = errors.New("malformed task id")

// Task is a single to-do item owned by exactly one user.
type Task struct {
	ID        string    // UUIDv7 in canonical form, time ordered
	UserID    uint      // Owner, never changes after creation
	Title     string    // Non-empty, trimmed
	Done      bool      // Completion flag
	CreatedAt time.Time // Creation time
	UpdatedAt time.Time // Last modification time
}

// NewTaskID returns a fresh time-ordered identifier.
func NewTaskID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// ParseTaskID validates s and returns it in canonical lowercase form.
// Only the 36-character hyphenated form is accepted.
func ParseTaskID(s string) (string, error) {
	if len(s) != 36 {
		return "", ErrMalformedID
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", ErrMalformedID
	}
	return id.String(), nil
}
