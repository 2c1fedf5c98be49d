// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"

	"github.com/waypost/waypost/internal/token"
)

// Outcome labels recorded against signup/login metrics.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid_input"
	OutcomeConflict     = "conflict"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)

// Recorder records authentication outcomes for observability. A nil
// Recorder is never passed to the service; use WithRecorder to install
// one and noopRecorder otherwise.
type Recorder interface {
	RecordSignup(outcome string)
	RecordLogin(outcome string)
	RecordSweep(deleted int64)
}

type noopRecorder struct{}

func (noopRecorder) RecordSignup(string) {}
func (noopRecorder) RecordLogin(string)  {}
func (noopRecorder) RecordSweep(int64)   {}

// AuthResult is the successful outcome of signup or login.
type AuthResult struct {
	User         PublicUser
	SessionToken string
}

// Service orchestrates credential validation, password hashing, token
// signing, and session persistence. It holds no mutable state between
// calls; all operations are safe to run concurrently, with storage-level
// uniqueness constraints providing the atomicity guarantees.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	hasher   PasswordHasher
	codec    token.Codec

	sessionTTL time.Duration
	logger     *slog.Logger
	recorder   Recorder
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder installs an outcome recorder (e.g. Prometheus metrics).
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithSessionTTL overrides the session lifetime. Non-positive values are
// ignored.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// NewService creates a Service. All four collaborators are required.
func NewService(users UserRepository, sessions SessionRepository, hasher PasswordHasher, codec token.Codec, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_NIL_DEP").Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_NIL_DEP").Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_NIL_DEP").Errorf("password hasher is required")
	}
	if codec == nil {
		return nil, oops.Code("AUTH_NIL_DEP").Errorf("token codec is required")
	}

	s := &Service{
		users:      users,
		sessions:   sessions,
		hasher:     hasher,
		codec:      codec,
		sessionTTL: SessionTTL,
		logger:     slog.Default(),
		recorder:   noopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// dummyDigest is verified against when a login targets an unknown email,
// so that unknown-email and wrong-password attempts take comparable time.
// The plaintext is random per process and never stored.
var dummyDigest = sync.OnceValue(func() string {
	d, err := bcrypt.GenerateFromPassword([]byte(ulid.Make().String()), DefaultHashCost)
	if err != nil {
		return ""
	}
	return string(d)
})

// Signup registers a new user and issues a session for it.
//
// Validation failures return InvalidInput with the specific rule
// violated; a duplicate email returns Conflict. The existence pre-check
// is a fast path only: the unique constraint enforced by storage is the
// authoritative conflict signal, covering the race where two signups for
// the same email run concurrently.
func (s *Service) Signup(ctx context.Context, email, password string, name *string) (*AuthResult, error) {
	if !ValidateEmail(email) {
		s.recorder.RecordSignup(OutcomeInvalid)
		return nil, newError(KindInvalidInput, "invalid email address")
	}
	if err := ValidatePasswordStrength(password); err != nil {
		s.recorder.RecordSignup(OutcomeInvalid)
		return nil, err
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		s.recorder.RecordSignup(OutcomeConflict)
		return nil, newError(KindConflict, "user with this email already exists")
	case errors.Is(err, ErrNotFound):
		// Proceed; storage uniqueness still guards the race below.
	default:
		s.recorder.RecordSignup(OutcomeError)
		return nil, wrapError(KindTransient, "storage unavailable",
			oops.Code("AUTH_SIGNUP_FAILED").With("operation", "get user by email").Wrap(err))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.recorder.RecordSignup(OutcomeError)
		return nil, oops.Code("AUTH_SIGNUP_FAILED").With("operation", "hash password").Wrap(err)
	}

	user, err := NewUser(email, hash, name)
	if err != nil {
		s.recorder.RecordSignup(OutcomeError)
		return nil, oops.Code("AUTH_SIGNUP_FAILED").With("operation", "construct user").Wrap(err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUniqueViolation) {
			s.recorder.RecordSignup(OutcomeConflict)
			return nil, wrapError(KindConflict, "user with this email already exists", err)
		}
		s.recorder.RecordSignup(OutcomeError)
		return nil, wrapError(KindTransient, "storage unavailable",
			oops.Code("AUTH_SIGNUP_FAILED").With("operation", "create user").Wrap(err))
	}

	_, tok, err := s.issueSession(ctx, user.ID)
	if err != nil {
		s.recorder.RecordSignup(OutcomeError)
		return nil, err
	}

	s.logger.Info("user signed up", "user_id", user.ID.String())
	s.recorder.RecordSignup(OutcomeSuccess)
	return &AuthResult{User: user.Public(), SessionToken: tok}, nil
}

// Login authenticates a user and issues a session.
//
// Unknown email and wrong password both return the same generic
// Unauthorized failure so callers cannot enumerate emails; password
// verification runs in both cases to keep response time comparable.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, lookupErr := s.users.GetByEmail(ctx, email)

	targetDigest := dummyDigest()
	userExists := false

	switch {
	case lookupErr == nil:
		targetDigest = user.PasswordHash
		userExists = true
	case errors.Is(lookupErr, ErrNotFound):
		// Verify against the dummy digest below.
	default:
		s.recorder.RecordLogin(OutcomeError)
		return nil, wrapError(KindTransient, "storage unavailable",
			oops.Code("AUTH_LOGIN_FAILED").With("operation", "get user by email").Wrap(lookupErr))
	}

	valid := s.hasher.Verify(password, targetDigest)
	if !userExists || !valid {
		s.recorder.RecordLogin(OutcomeUnauthorized)
		return nil, newError(KindUnauthorized, "invalid email or password")
	}

	_, tok, err := s.issueSession(ctx, user.ID)
	if err != nil {
		s.recorder.RecordLogin(OutcomeError)
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID.String())
	s.recorder.RecordLogin(OutcomeSuccess)
	return &AuthResult{User: user.Public(), SessionToken: tok}, nil
}

// issueSession mints a signed token and persists a session row for it.
// A token collision surfaces as a retryable Conflict rather than being
// silently overwritten; storage uniqueness on the token column enforces
// this.
func (s *Service) issueSession(ctx context.Context, userID ulid.ULID) (*Session, string, error) {
	tok, err := s.codec.Sign(userID.String())
	if err != nil {
		return nil, "", oops.Code("AUTH_SESSION_ISSUE_FAILED").
			With("operation", "sign token").
			Wrap(err)
	}

	session, err := NewSession(userID, tok, time.Now().Add(s.sessionTTL))
	if err != nil {
		return nil, "", oops.Code("AUTH_SESSION_ISSUE_FAILED").
			With("operation", "construct session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, ErrUniqueViolation) {
			return nil, "", wrapError(KindConflict, "session token collision, retry", err)
		}
		return nil, "", wrapError(KindTransient, "storage unavailable",
			oops.Code("AUTH_SESSION_ISSUE_FAILED").With("operation", "persist session").Wrap(err))
	}

	return session, tok, nil
}

// ResolveSession resolves a bearer token to the owning user's public
// projection, or to nil for any token that does not identify a live
// session. An empty token is the anonymous caller, not an error.
//
// Expiry is checked twice: the signed claim inside the token and the
// persisted row must both agree the session is live. An expired row is
// deleted on detection (lazy sweep) and never reported as an error.
func (s *Service) ResolveSession(ctx context.Context, tok string) (*PublicUser, error) {
	if tok == "" {
		return nil, nil
	}

	claims, err := s.codec.Verify(tok)
	if err != nil {
		return nil, nil
	}

	session, err := s.sessions.GetByToken(ctx, tok)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, wrapError(KindTransient, "storage unavailable",
			oops.Code("AUTH_RESOLVE_FAILED").With("operation", "get session by token").Wrap(err))
	}

	// The signed claim and the persisted row must name the same owner.
	if claims.UserID != session.UserID.String() {
		return nil, nil
	}

	if session.IsExpired() {
		if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrNotFound) {
			s.logger.Warn("failed to delete expired session",
				"session_id", session.ID.String(), "error", err)
		}
		return nil, nil
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, wrapError(KindTransient, "storage unavailable",
			oops.Code("AUTH_RESOLVE_FAILED").With("operation", "get user by id").Wrap(err))
	}

	public := user.Public()
	return &public, nil
}

// Logout revokes all sessions matching the token. It is idempotent: a
// token with no matching session is not an error.
func (s *Service) Logout(ctx context.Context, tok string) error {
	if tok == "" {
		return nil
	}
	if err := s.sessions.DeleteByToken(ctx, tok); err != nil {
		return wrapError(KindTransient, "storage unavailable",
			oops.Code("AUTH_LOGOUT_FAILED").With("operation", "delete sessions by token").Wrap(err))
	}
	return nil
}

// SweepExpired deletes all sessions whose expiry has passed and returns
// the number of rows removed. It is the eager counterpart to the lazy
// cleanup in ResolveSession.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	deleted, err := s.sessions.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, wrapError(KindTransient, "storage unavailable",
			oops.Code("AUTH_SWEEP_FAILED").With("operation", "delete expired sessions").Wrap(err))
	}
	if deleted > 0 {
		s.logger.Info("swept expired sessions", "deleted", deleted)
	}
	s.recorder.RecordSweep(deleted)
	return deleted, nil
}
