// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SessionTTL is the session lifetime from issuance. It matches the
// signed token lifetime so the claims expiry and the persisted expiry
// agree at issue time.
const SessionTTL = 7 * 24 * time.Hour

// SessionState is the lifecycle state of a session. A session starts
// active and moves to expired when its deadline passes; revocation is
// deletion of the row, so a revoked session is observable only as
// absence. No state transitions back to active.
type SessionState int

const (
	// StateActive means the session has not yet reached its expiry.
	StateActive SessionState = iota

	// StateExpired means the expiry has passed; the row is deleted
	// lazily on the next lookup.
	StateExpired
)

// Session is an ephemeral proof of authentication. The token is both the
// bearer credential and the persistence lookup key. Token and owner never
// change after creation; a session is deleted, never mutated.
type Session struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewSession creates a validated Session instance.
func NewSession(userID ulid.ULID, tok string, expiresAt time.Time) (*Session, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if tok == "" {
		return nil, oops.Code("SESSION_INVALID_TOKEN").Errorf("token cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("SESSION_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}

	return &Session{
		ID:        ulid.Make(),
		UserID:    userID,
		Token:     tok,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// StateAt returns the session's lifecycle state at the given time.
// Keeping the expiry comparison here, rather than at call sites, is what
// makes the state machine testable in isolation.
func (s *Session) StateAt(t time.Time) SessionState {
	if t.After(s.ExpiresAt) {
		return StateExpired
	}
	return StateActive
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return s.StateAt(time.Now()) == StateExpired
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a new session. A token collision surfaces as an
	// error wrapping ErrUniqueViolation.
	Create(ctx context.Context, session *Session) error

	// GetByToken retrieves a session by its token. Returns an error
	// wrapping ErrNotFound if absent.
	GetByToken(ctx context.Context, tok string) (*Session, error)

	// Delete removes a session by ID. Returns an error wrapping
	// ErrNotFound if absent.
	Delete(ctx context.Context, id ulid.ULID) error

	// DeleteByToken removes all sessions matching the token. Deleting
	// zero rows is not an error.
	DeleteByToken(ctx context.Context, tok string) error

	// DeleteExpired removes all sessions expired as of now and returns
	// the count of deleted records.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
