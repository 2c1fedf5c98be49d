// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

// Package httpapi is the thin JSON transport over the auth core. It maps
// requests onto the core's operations and the core's closed error-kind
// set onto HTTP statuses; it contains no business rules of its own.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/waypost/waypost/internal/auth"
	"github.com/waypost/waypost/internal/logging"
	"github.com/waypost/waypost/internal/observability"
	"github.com/waypost/waypost/pkg/errutil"
)

// Handler serves the Waypost JSON API.
type Handler struct {
	svc     *auth.Service
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewHandler creates the API handler. metrics may be nil.
func NewHandler(svc *auth.Service, logger *slog.Logger, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger, metrics: metrics}
}

// Router builds the chi router for the API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(h.requestContext)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/greeting", h.handleGreeting)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.handleSignup)
			r.Post("/login", h.handleLogin)
			r.Post("/logout", h.handleLogout)
			r.Get("/me", h.handleMe)
		})
	})

	return r
}

// requestContext stamps the request ID into the logging context and
// records per-route metrics.
func (h *Handler) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			ctx = logging.WithAttrs(ctx, slog.String("request_id", reqID))
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		if h.metrics != nil {
			route := chi.RouteContext(ctx).RoutePattern()
			h.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
			h.metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

type signupRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type logoutRequest struct {
	SessionToken string `json:"sessionToken"`
}

type authResponse struct {
	User         auth.PublicUser `json:"user"`
	SessionToken string          `json:"sessionToken"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, auth.KindInvalidInput, "malformed request body")
		return
	}

	result, err := h.svc.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, authResponse{
		User:         result.User,
		SessionToken: result.SessionToken,
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, auth.KindInvalidInput, "malformed request body")
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, authResponse{
		User:         result.User,
		SessionToken: result.SessionToken,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		h.writeError(w, r, auth.KindInvalidInput, "malformed request body")
		return
	}

	tok := req.SessionToken
	if tok == "" {
		tok = bearerToken(r)
	}

	if err := h.svc.Logout(r.Context(), tok); err != nil {
		h.writeFailure(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.ResolveSession(r.Context(), bearerToken(r))
	if err != nil {
		h.writeFailure(w, r, err)
		return
	}

	// Anonymous resolves to a JSON null, not an error.
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleGreeting(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "World"
	}
	h.writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Hello %s!", name),
	})
}

// bearerToken extracts the token from an Authorization: Bearer header.
// Returns empty for absent or differently-schemed headers.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

var errEmptyBody = errors.New("empty body")

// decodeJSON decodes the request body. An entirely empty body returns
// errEmptyBody so handlers with optional bodies can treat it as absent.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Status int    `json:"status"`
}

// statusForKind maps the core's closed error-kind set onto HTTP
// statuses. The switch is exhaustive over auth.Kind so a new kind cannot
// silently fall through to 500 without showing up here.
func statusForKind(kind auth.Kind) int {
	switch kind {
	case auth.KindInvalidInput:
		return http.StatusBadRequest
	case auth.KindUnauthorized:
		return http.StatusUnauthorized
	case auth.KindNotFound:
		return http.StatusNotFound
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindTransient:
		return http.StatusServiceUnavailable
	case auth.KindUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure serializes a core failure. Internal detail is logged,
// never sent to the client.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	kind := auth.KindOf(err)
	status := statusForKind(kind)

	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(r.Context(), h.logger, "request failed", err)
		h.writeError(w, r, kind, "internal error")
		return
	}

	h.writeError(w, r, kind, err.Error())
}

func (h *Handler) writeError(w http.ResponseWriter, _ *http.Request, kind auth.Kind, reason string) {
	status := statusForKind(kind)
	h.writeJSON(w, status, errorResponse{
		Error:  reason,
		Kind:   kind.String(),
		Status: status,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to write response", "error", err)
	}
}
