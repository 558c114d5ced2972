// Package entity defines the domain entities for the auth feature.
package entity

import "time"

// User represents a registered user in the system.
// It contains authentication credentials and the optional profile fields.
type User struct {
	// ID is the unique identifier for the user.
	ID uint `gorm:"primaryKey"`

	// Email is the login key. It is stored as given and must be unique.
	Email string `gorm:"uniqueIndex;size:255;not null"`

	// Password is the bcrypt hash of the user's password.
	// It is cleared on every user returned by the usecase layer.
	Password string `gorm:"size:255;not null"`

	FirstName   string `gorm:"size:100"`
	LastName    string `gorm:"size:100"`
	DateOfBirth *time.Time
	Country     string `gorm:"size:100"`

	// Avatar is a reference (path or URL) to the uploaded avatar image.
	Avatar string `gorm:"size:512"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time

	// UpdatedAt is the timestamp when the user was last updated.
	UpdatedAt time.Time
}

// Sanitized returns a copy of the user without the password hash.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Password = ""
	return &out
}
