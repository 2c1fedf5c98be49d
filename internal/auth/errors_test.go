// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

package auth_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/waypost/waypost/internal/auth"
)

func TestKindOf(t *testing.T) {
	t.Run("tagged errors report their kind", func(t *testing.T) {
		err := auth.ValidatePasswordStrength("short")
		assert.Equal(t, auth.KindInvalidInput, auth.KindOf(err))
	})

	t.Run("wrapped tagged errors still report their kind", func(t *testing.T) {
		err := fmt.Errorf("handling request: %w", auth.ValidatePasswordStrength("short"))
		assert.Equal(t, auth.KindInvalidInput, auth.KindOf(err))
	})

	t.Run("untagged errors report unknown", func(t *testing.T) {
		assert.Equal(t, auth.KindUnknown, auth.KindOf(errors.New("boom")))
		assert.Equal(t, auth.KindUnknown, auth.KindOf(nil))
	})
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind auth.Kind
		want string
	}{
		{auth.KindInvalidInput, "invalid_input"},
		{auth.KindConflict, "conflict"},
		{auth.KindUnauthorized, "unauthorized"},
		{auth.KindNotFound, "not_found"},
		{auth.KindTransient, "transient"},
		{auth.KindUnknown, "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}
