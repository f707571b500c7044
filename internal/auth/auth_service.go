// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// tokenCollisionRetries bounds the regenerate-on-collision loop when a
// generated session token hash already exists.
const tokenCollisionRetries = 6

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a well-formed artifact (all-zero salt
// and key) that will never match any password.
var dummyPasswordHash = base64.StdEncoding.EncodeToString(make([]byte, scryptSaltLen+scryptKeyLen))

// Service provides authentication operations.
type Service struct {
	users    UserRepository
	sessions SessionRepository
	hasher   PasswordHasher
	ttl      time.Duration
	logger   *slog.Logger
}

// NewAuthService creates a new Service with a no-op logger and the default
// session TTL. Returns an error if any required dependency is nil.
func NewAuthService(users UserRepository, sessions SessionRepository, hasher PasswordHasher) (*Service, error) {
	return NewAuthServiceWithLogger(users, sessions, hasher, slog.New(slog.DiscardHandler))
}

// NewAuthServiceWithLogger creates a new Service with the provided logger.
// Returns an error if any required dependency is nil.
func NewAuthServiceWithLogger(users UserRepository, sessions SessionRepository, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("sessions repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		ttl:      DefaultSessionTTL,
		logger:   logger,
	}, nil
}

// SetSessionTTL overrides the session lifetime for subsequently issued
// sessions. Zero is allowed: it issues sessions that are already expired,
// which tests use to exercise the expiry path.
func (s *Service) SetSessionTTL(ttl time.Duration) {
	s.ttl = ttl
}

// Register creates a new account and issues its first session.
// Returns the session, plaintext token, and the created user.
//
// The user insert and the session insert are two separate steps; a crash
// between them leaves a user with no session, which Login recovers from.
func (s *Service) Register(ctx context.Context, username, password, email string) (*Session, string, *User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, "", nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, "", nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, hash, email)
	if err != nil {
		return nil, "", nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			return nil, "", nil, oops.Code("AUTH_DUPLICATE_USERNAME").
				With("username", username).
				Wrap(err)
		}
		if isUnavailable(err) {
			// A timed-out uniqueness check must never read as "username available".
			return nil, "", nil, oops.Code("AUTH_UNAVAILABLE").
				With("operation", "create user").
				Wrap(err)
		}
		return nil, "", nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			With("username", username).
			Wrap(err)
	}

	session, token, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, "", nil, err
	}
	return session, token, user, nil
}

// Login authenticates a user and issues a session.
// Returns the session, plaintext token, and the resolved user.
// Uses constant-time operations to prevent timing-based username enumeration.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, string, *User, error) {
	if username == "" || password == "" {
		return nil, "", nil, oops.Code("AUTH_VALIDATION").Errorf("username and password are required")
	}

	user, lookupErr := s.users.GetByUsername(ctx, username)

	// Determine which hash to verify against (real or dummy for timing attack prevention)
	var targetHash string
	var userExists bool

	if lookupErr != nil {
		switch {
		case errors.Is(lookupErr, ErrNotFound):
			// Use dummy hash - still perform verification to maintain constant time
			targetHash = dummyPasswordHash
			userExists = false
		case isUnavailable(lookupErr):
			return nil, "", nil, oops.Code("AUTH_UNAVAILABLE").
				With("operation", "get user by username").
				Wrap(lookupErr)
		default:
			return nil, "", nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by username").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify password (constant-time operation for timing attack prevention)
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		// For dummy hash verification errors, just treat as invalid
		if !userExists {
			return nil, "", nil, s.invalidCredentials()
		}
		if errors.Is(verifyErr, ErrCorruptHash) {
			// Stored-data corruption: log with identifiers, never the hash itself.
			s.logger.Error("corrupt password hash",
				"user_id", user.ID.String(),
				"username", user.Username,
			)
			return nil, "", nil, oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "verify password").
				Wrap(verifyErr)
		}
		return nil, "", nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	// If user doesn't exist OR password invalid, return same error
	if !userExists || !valid {
		if userExists {
			// Record failure only for existing users
			user.RecordFailure()
			_ = s.users.Update(ctx, user) //nolint:errcheck // Best effort
			// Progressive backoff: the delay rides on the error so the
			// transport can surface it (Retry-After) without the service
			// blocking a request slot.
			if limit := CheckFailures(user.FailedAttempts, user.LockedUntil); limit.Delay > 0 {
				return nil, "", nil, oops.Code("AUTH_INVALID_CREDENTIALS").
					With("retry_in", limit.Delay).
					Errorf("invalid username or password")
			}
		}
		return nil, "", nil, s.invalidCredentials()
	}

	// Check lockout AFTER password verification to maintain constant time
	if user.IsLocked() {
		return nil, "", nil, oops.Code("AUTH_ACCOUNT_LOCKED").
			With("locked_until", user.LockedUntil).
			With("retry_in", time.Until(*user.LockedUntil)).
			Errorf("account is temporarily locked")
	}

	// Success - reset failure counter
	user.RecordSuccess()
	// Ignore errors - login should succeed even if update fails
	_ = s.users.Update(ctx, user) //nolint:errcheck // Best effort, login succeeds regardless

	session, token, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, "", nil, err
	}
	return session, token, user, nil
}

// ValidateSession validates a session token and resolves its owner.
// Expired and unknown tokens are externally indistinguishable.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, *User, error) {
	if token == "" {
		return nil, nil, oops.Code("SESSION_INVALID").Errorf("invalid session token")
	}

	tokenHash := HashSessionToken(token)

	session, err := s.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, oops.Code("SESSION_INVALID").Errorf("invalid session token")
		}
		if isUnavailable(err) {
			return nil, nil, oops.Code("AUTH_UNAVAILABLE").
				With("operation", "get session by token hash").
				Wrap(err)
		}
		return nil, nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	// Expired tokens are always treated as absent, whether or not the row
	// has been physically purged.
	if session.IsExpired() {
		return nil, nil, oops.Code("SESSION_INVALID").Errorf("invalid session token")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// A session outlived its user. Unreachable under correct
			// invariants; defend and log rather than crash.
			s.logger.Error("session references missing user",
				"session_id", session.ID.String(),
				"user_id", session.UserID.String(),
			)
			return nil, nil, oops.Code("SESSION_INVALID").Errorf("invalid session token")
		}
		if isUnavailable(err) {
			return nil, nil, oops.Code("AUTH_UNAVAILABLE").
				With("operation", "get user by id").
				Wrap(err)
		}
		return nil, nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get user by id").
			Wrap(err)
	}

	return session, user, nil
}

// Logout invalidates a session eagerly.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return oops.Code("SESSION_INVALID").Errorf("invalid session token")
	}

	err := s.sessions.DeleteByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_INVALID").Wrap(err)
		}
		if isUnavailable(err) {
			return oops.Code("AUTH_UNAVAILABLE").
				With("operation", "delete session").
				Wrap(err)
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// issueSession generates a token and persists a session for the user,
// regenerating on the (astronomically unlikely) token collision.
func (s *Service) issueSession(ctx context.Context, user *User) (*Session, string, error) {
	for range tokenCollisionRetries {
		token, tokenHash, err := GenerateSessionToken()
		if err != nil {
			return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
				With("operation", "generate session token").
				Wrap(err)
		}

		session, err := NewSession(user.ID, tokenHash, time.Now().Add(s.ttl))
		if err != nil {
			return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
				With("operation", "create session").
				Wrap(err)
		}

		err = s.sessions.Create(ctx, session)
		if err == nil {
			return session, token, nil
		}
		if errors.Is(err, ErrDuplicateToken) {
			continue
		}
		if isUnavailable(err) {
			return nil, "", oops.Code("AUTH_UNAVAILABLE").
				With("operation", "persist session").
				Wrap(err)
		}
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}
	return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
		With("retries", tokenCollisionRetries).
		Errorf("could not create a session token")
}

// invalidCredentials returns the single, undistinguished login failure.
// "No such user" and "wrong password" deliberately share this error.
func (s *Service) invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")
}

// isUnavailable reports whether err is a store timeout/unreachability rather
// than a business outcome.
func isUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
