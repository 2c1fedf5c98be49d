// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

// Package errutil provides helpers for logging and asserting on
// structured errors.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// attrsFor extracts structured attributes from an error. oops errors
// contribute their code and context; other errors just their string.
func attrsFor(err error) []any {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err}
	}

	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
	}
	if errCtx := oopsErr.Context(); len(errCtx) > 0 {
		attrs = append(attrs, "context", errCtx)
	}
	return attrs
}

// LogError logs an error with structured context if it's an oops error.
func LogError(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, attrsFor(err)...)
}

// LogErrorContext is LogError with a context, so handlers that stamp
// request-scoped attributes (request ID, trace) see them applied.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error) {
	logger.ErrorContext(ctx, msg, attrsFor(err)...)
}
