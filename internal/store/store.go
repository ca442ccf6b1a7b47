package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("conflict")
)

// User represents a registered user and their profile.
type User struct {
	ID           string // UUID
	Name         string
	Email        string
	PasswordHash string
	AvatarRef    string
	CreatedAt    time.Time
}

// UserUpdate carries optional profile changes. Nil fields are left as is.
type UserUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, name, email, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// UpdateUser applies the non-nil fields of upd and returns the updated user.
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error)

	// UpdateAvatar sets the avatar reference of a user.
	UpdateAvatar(ctx context.Context, id, avatarRef string) error

	// DeleteUser removes a user.
	DeleteUser(ctx context.Context, id string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore

	// Close closes the underlying database connection.
	Close() error
}
