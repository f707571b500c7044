// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateUsername is returned when a username is already claimed.
var ErrDuplicateUsername = errors.New("username already exists")

// ErrCorruptHash is returned when a stored password hash fails to decode.
var ErrCorruptHash = errors.New("corrupt password hash")

// ErrUnavailable is returned when the underlying store timed out or is
// unreachable. It is distinct from any authentication outcome: a timed-out
// lookup must never be read as "not found".
var ErrUnavailable = errors.New("store unavailable")
