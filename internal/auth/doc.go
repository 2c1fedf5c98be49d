// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Waypost Contributors

// Package auth implements the authentication and session core for Waypost.
//
// # Domain Types
//
// Domain types (User, Session) should be created using their respective
// constructors:
//   - NewUser - creates a User with a validated email and password hash
//   - NewSession - creates a Session with validated owner, token, and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Service
//
// The Service type orchestrates credential validation, password hashing,
// token signing, and session persistence to implement signup, login,
// logout, session resolution, and the expired-session sweep.
//
// # Errors
//
// All business failures surface as *Error values carrying one of a closed
// set of kinds (KindInvalidInput, KindConflict, KindUnauthorized,
// KindNotFound, KindTransient) so transport adapters can map them
// exhaustively.
package auth
