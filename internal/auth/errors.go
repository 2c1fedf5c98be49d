// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrUniqueViolation is returned when storage rejects a write because a
// unique constraint (email or session token) would be violated. The
// constraint is the authoritative conflict signal; service-level
// existence pre-checks are a fast path only.
var ErrUniqueViolation = errors.New("unique violation")

// Kind classifies a business failure for transport mapping.
type Kind int

// The closed set of failure kinds surfaced to callers.
const (
	KindUnknown Kind = iota
	KindInvalidInput
	KindConflict
	KindUnauthorized
	KindNotFound
	KindTransient
)

// String returns the kind name used in logs and error codes.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Error is a tagged business failure. Reason is safe to show to callers;
// the wrapped error carries internal detail for logging only.
type Error struct {
	Kind   Kind
	Reason string
	err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Reason
}

// Unwrap returns the wrapped internal error, if any.
func (e *Error) Unwrap() error {
	return e.err
}

// newError creates a tagged failure without internal detail.
func newError(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// wrapError creates a tagged failure wrapping an internal error.
func wrapError(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, err: err}
}

// KindOf extracts the failure kind from an error chain. Errors that are
// not *Error values report KindUnknown and should be treated as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
