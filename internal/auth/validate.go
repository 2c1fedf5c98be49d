// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

package auth

import (
	"fmt"
	"regexp"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// emailRegex matches a conservative email shape: a local part, an @, and
// a domain containing at least one dot. It deliberately rejects
// whitespace and bare domains rather than attempting full RFC 5322.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	lowercaseRegex = regexp.MustCompile(`[a-z]`)
	uppercaseRegex = regexp.MustCompile(`[A-Z]`)
	digitRegex     = regexp.MustCompile(`[0-9]`)
)

// ValidateEmail reports whether candidate has a plausible email shape.
// It never fails; malformed input simply returns false.
func ValidateEmail(candidate string) bool {
	return emailRegex.MatchString(candidate)
}

// ValidatePasswordStrength checks the password policy and returns nil on
// success or an InvalidInput error naming the first rule violated.
// Rules are checked in a fixed order: length, lowercase, uppercase, digit.
func ValidatePasswordStrength(candidate string) error {
	if len(candidate) < MinPasswordLength {
		return newError(KindInvalidInput,
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if !lowercaseRegex.MatchString(candidate) {
		return newError(KindInvalidInput, "password must contain at least one lowercase letter")
	}
	if !uppercaseRegex.MatchString(candidate) {
		return newError(KindInvalidInput, "password must contain at least one uppercase letter")
	}
	if !digitRegex.MatchString(candidate) {
		return newError(KindInvalidInput, "password must contain at least one number")
	}
	return nil
}
