// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillup/skillup/internal/auth"
	"github.com/skillup/skillup/pkg/errutil"
)

func TestNewUser(t *testing.T) {
	t.Run("creates user with generated ID", func(t *testing.T) {
		user, err := auth.NewUser("alice", "somehash", "alice@example.com")
		require.NoError(t, err)
		assert.NotEqual(t, ulid.ULID{}, user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "somehash", user.PasswordHash)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Zero(t, user.FailedAttempts)
		assert.Nil(t, user.LockedUntil)
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("email may be empty", func(t *testing.T) {
		user, err := auth.NewUser("alice", "somehash", "")
		require.NoError(t, err)
		assert.Empty(t, user.Email)
	})

	t.Run("rejects empty username", func(t *testing.T) {
		user, err := auth.NewUser("", "somehash", "")
		require.Error(t, err)
		assert.Nil(t, user)
		errutil.AssertErrorCode(t, err, "AUTH_VALIDATION")
	})

	t.Run("rejects empty password hash", func(t *testing.T) {
		user, err := auth.NewUser("alice", "", "")
		require.Error(t, err)
		assert.Nil(t, user)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
	})
}

func TestValidateUsername_ExactMatchSemantics(t *testing.T) {
	// Case variants are distinct usernames; both must validate independently.
	require.NoError(t, auth.ValidateUsername("Alice"))
	require.NoError(t, auth.ValidateUsername("alice"))
	require.Error(t, auth.ValidateUsername(""))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{
			name:     "valid password",
			password: "Abcdefg1",
		},
		{
			name:     "too short",
			password: "Abc1",
			wantErr:  "at least 8 characters",
		},
		{
			name:     "missing uppercase",
			password: "abcdefg1",
			wantErr:  "uppercase letter",
		},
		{
			name:     "missing lowercase",
			password: "ABCDEFG1",
			wantErr:  "lowercase letter",
		},
		{
			name:     "missing digit",
			password: "Abcdefgh",
			wantErr:  "digit",
		},
		{
			name:     "unicode classes count",
			password: "Пароль1я",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ValidatePassword(tt.password)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			errutil.AssertErrorCode(t, err, "AUTH_VALIDATION")
		})
	}
}

func TestUser_FailureTracking(t *testing.T) {
	user, err := auth.NewUser("alice", "somehash", "")
	require.NoError(t, err)

	t.Run("failures below threshold do not lock", func(t *testing.T) {
		for range auth.LockoutThreshold - 1 {
			user.RecordFailure()
		}
		assert.Equal(t, auth.LockoutThreshold-1, user.FailedAttempts)
		assert.False(t, user.IsLocked())
	})

	t.Run("reaching threshold locks the account", func(t *testing.T) {
		user.RecordFailure()
		assert.Equal(t, auth.LockoutThreshold, user.FailedAttempts)
		assert.True(t, user.IsLocked())
		require.NotNil(t, user.LockedUntil)
		assert.WithinDuration(t, time.Now().Add(auth.LockoutDuration), *user.LockedUntil, time.Minute)
	})

	t.Run("success resets counter and lockout", func(t *testing.T) {
		user.RecordSuccess()
		assert.Zero(t, user.FailedAttempts)
		assert.Nil(t, user.LockedUntil)
		assert.False(t, user.IsLocked())
	})
}
