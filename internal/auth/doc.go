// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

// Package auth provides authentication primitives for the Skill-Up backend.
//
// # Domain Types
//
// Domain types (User, Session) should be created using their respective
// constructors:
//   - NewUser - creates a User with validated username and password hash
//   - NewSession - creates a Session with validated owner and expiry
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Service
//
// Service coordinates registration, login, session validation and logout.
// It holds no mutable state of its own; all shared state lives behind the
// UserRepository and SessionRepository interfaces.
package auth
