// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User is an identity record. Email is the natural key and compared
// case-sensitively. The password hash never leaves this package except
// through repositories.
type User struct {
	ID           ulid.ULID
	Email        string
	PasswordHash string
	Name         *string
	AvatarURL    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates a validated User instance. Name is optional and may be
// nil. Email shape must already have been validated by the caller; this
// constructor only guards against empty required fields.
func NewUser(email, passwordHash string, name *string) (*User, error) {
	if email == "" {
		return nil, oops.Code("USER_INVALID_EMAIL").Errorf("email cannot be empty")
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// PublicUser is the projection of a User safe to return to callers.
// It never carries the password hash.
type PublicUser struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

// Public returns the caller-safe projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
	}
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. A duplicate email surfaces as an error
	// wrapping ErrUniqueViolation.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID. Returns an error wrapping
	// ErrNotFound if absent.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email (case-sensitive exact match).
	// Returns an error wrapping ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*User, error)
}
