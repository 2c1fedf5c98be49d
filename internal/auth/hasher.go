// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

package auth

import (
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// DefaultHashCost is the bcrypt cost factor. Hashing is deliberately
// CPU-expensive at this cost as a brute-force defense.
const DefaultHashCost = 10

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted one-way digest of the password. Hashing the
	// same password twice yields different digests.
	Hash(password string) (string, error)

	// Verify reports whether the password matches the digest. It returns
	// false on any mismatch, including malformed digests; it never fails.
	Verify(password, digest string) bool
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher with the given cost factor.
// Costs outside bcrypt's supported range fall back to DefaultHashCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultHashCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash produces a salted bcrypt digest of the password. bcrypt generates
// a fresh random salt on every call.
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").
			With("cost", h.cost).
			Wrap(err)
	}
	return string(digest), nil
}

// Verify reports whether the password matches the digest. bcrypt's
// comparison is constant-time over the derived key; malformed digests
// verify false rather than failing.
func (h *BcryptHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}
