// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

// Package token signs and verifies the compact identity tokens issued to
// authenticated clients. Tokens are HS256-signed JWTs carrying the owning
// user ID and an absolute expiry; verification fails closed on any
// signature, structure, or expiry problem.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultTTL is the token lifetime from issuance.
const DefaultTTL = 7 * 24 * time.Hour

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, malformed structure, missing subject, or expired claim.
// Callers must not distinguish the causes.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the signed payload embedded in a token.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Codec signs and verifies identity tokens.
type Codec interface {
	// Sign produces a compact signed token for the user, expiring TTL
	// from now.
	Sign(userID string) (string, error)

	// Verify checks signature integrity and expiry and returns the
	// embedded claims. It returns ErrInvalidToken on any failure.
	Verify(raw string) (*Claims, error)
}

// HS256Codec implements Codec with symmetric HMAC-SHA256 signing.
type HS256Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewHS256Codec creates a codec with the given signing secret and token
// lifetime. The secret must be non-empty; supplying one is the caller's
// configuration responsibility. A non-positive ttl falls back to
// DefaultTTL.
func NewHS256Codec(secret []byte, ttl time.Duration) (*HS256Codec, error) {
	if len(secret) == 0 {
		return nil, oops.Code("TOKEN_EMPTY_SECRET").Errorf("signing secret cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &HS256Codec{secret: secret, ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (c *HS256Codec) TTL() time.Duration {
	return c.ttl
}

// Sign produces a compact signed token for the user.
func (c *HS256Codec) Sign(userID string) (string, error) {
	if userID == "" {
		return "", oops.Code("TOKEN_EMPTY_USER").Errorf("user ID cannot be empty")
	}

	// The jti claim makes every issued token distinct even when two
	// sessions for one user are minted within the same second.
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Verify checks signature integrity and expiry. It never returns partial
// claims: any failure yields ErrInvalidToken.
func (c *HS256Codec) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Compile-time interface check.
var _ Codec = (*HS256Codec)(nil)
