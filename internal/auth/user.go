// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

package auth

import (
	"context"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// User represents a registered account.
//
// Username is matched byte-for-byte with no normalization: "Alice" and
// "alice" are two distinct accounts. This avoids homograph ambiguity at the
// cost of case-sensitive logins.
type User struct {
	ID             ulid.ULID
	Username       string
	PasswordHash   string
	Email          string
	FailedAttempts int
	LockedUntil    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewUser creates a validated User instance.
// Email is informational and may be empty.
func NewUser(username, passwordHash, email string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsLocked returns true if the user is currently locked out.
func (u *User) IsLocked() bool {
	return IsLockedOut(u.LockedUntil)
}

// RecordFailure increments the failure counter and sets lockout if the
// threshold is reached.
func (u *User) RecordFailure() {
	u.FailedAttempts++
	u.LockedUntil = ComputeLockoutTime(u.FailedAttempts)
	u.UpdatedAt = time.Now()
}

// RecordSuccess resets the failure counter and lockout.
func (u *User) RecordSuccess() {
	u.FailedAttempts = 0
	u.LockedUntil = nil
	u.UpdatedAt = time.Now()
}

// ValidateUsername validates a username. Usernames must be non-empty; no
// further normalization is applied (exact byte match).
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_VALIDATION").Errorf("username cannot be empty")
	}
	return nil
}

// ValidatePassword validates a password against the registration policy:
// at least MinPasswordLength characters, with at least one uppercase letter,
// one lowercase letter, and one digit.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("AUTH_VALIDATION").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper {
		return oops.Code("AUTH_VALIDATION").Errorf("password must contain an uppercase letter")
	}
	if !hasLower {
		return oops.Code("AUTH_VALIDATION").Errorf("password must contain a lowercase letter")
	}
	if !hasDigit {
		return oops.Code("AUTH_VALIDATION").Errorf("password must contain a digit")
	}
	return nil
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user. The uniqueness check and insert are atomic:
	// of two concurrent creates with the same username, exactly one succeeds
	// and the other receives an error wrapping ErrDuplicateUsername.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByUsername retrieves a user by username (exact byte match).
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *User) error
}
