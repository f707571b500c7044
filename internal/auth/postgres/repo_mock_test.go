// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillup/skillup/internal/auth"
	"github.com/skillup/skillup/internal/auth/postgres"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestUserRepository_Create_ErrorMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("unique violation maps to ErrDuplicateUsername", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec("INSERT INTO users").
			WithArgs(pgxmock.AnyArg(), "alice", "hash", "", 0, (*time.Time)(nil), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ux_users_username"})

		user, err := auth.NewUser("alice", "hash", "")
		require.NoError(t, err)

		err = repo.Create(ctx, user)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDuplicateUsername)
	})

	t.Run("other database errors pass through", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectExec("INSERT INTO users").
			WithArgs(pgxmock.AnyArg(), "alice", "hash", "", 0, (*time.Time)(nil), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(assert.AnError)

		user, err := auth.NewUser("alice", "hash", "")
		require.NoError(t, err)

		err = repo.Create(ctx, user)
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrDuplicateUsername)
	})
}

func TestUserRepository_GetByUsername(t *testing.T) {
	ctx := context.Background()

	userColumns := []string{
		"id", "username", "password_hash", "email",
		"failed_attempts", "locked_until", "created_at", "updated_at",
	}

	t.Run("scans a full row", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		id := ulid.Make()
		now := time.Now()
		mock.ExpectQuery("SELECT id, username").
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows(userColumns).
				AddRow(id.String(), "alice", "hash", "alice@example.com", 2, (*time.Time)(nil), now, now))

		user, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, id, user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, 2, user.FailedAttempts)
		assert.Nil(t, user.LockedUntil)
	})

	t.Run("no rows maps to ErrNotFound", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		mock.ExpectQuery("SELECT id, username").
			WithArgs("nobody").
			WillReturnRows(pgxmock.NewRows(userColumns))

		user, err := repo.GetByUsername(ctx, "nobody")
		require.Error(t, err)
		assert.Nil(t, user)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("lookup uses the exact username bytes", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		// "Alice" must be passed through unmodified, not folded to "alice"
		mock.ExpectQuery("SELECT id, username").
			WithArgs("Alice").
			WillReturnRows(pgxmock.NewRows(userColumns))

		_, err := repo.GetByUsername(ctx, "Alice")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestUserRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("zero rows affected maps to ErrNotFound", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewUserRepository(mock)

		user, err := auth.NewUser("alice", "hash", "")
		require.NoError(t, err)

		mock.ExpectExec("UPDATE users").
			WithArgs(user.ID.String(), "hash", "", 0, (*time.Time)(nil), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = repo.Update(ctx, user)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestSessionRepository_ErrorMapping(t *testing.T) {
	ctx := context.Background()

	t.Run("token hash collision maps to ErrDuplicateToken", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewSessionRepository(mock)

		session, err := auth.NewSession(ulid.Make(), "tokenhash", time.Now().Add(time.Hour))
		require.NoError(t, err)

		mock.ExpectExec("INSERT INTO sessions").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "tokenhash", pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "ux_sessions_token_hash"})

		err = repo.Create(ctx, session)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrDuplicateToken)
	})

	t.Run("unknown token hash maps to ErrNotFound", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewSessionRepository(mock)

		mock.ExpectQuery("SELECT id, user_id").
			WithArgs("missinghash").
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at"}))

		session, err := repo.GetByTokenHash(ctx, "missinghash")
		require.Error(t, err)
		assert.Nil(t, session)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("expired rows are returned, not filtered", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewSessionRepository(mock)

		id := ulid.Make()
		userID := ulid.Make()
		expired := time.Now().Add(-time.Hour)
		mock.ExpectQuery("SELECT id, user_id").
			WithArgs("oldhash").
			WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at"}).
				AddRow(id.String(), userID.String(), "oldhash", expired, expired.Add(-auth.DefaultSessionTTL)))

		session, err := repo.GetByTokenHash(ctx, "oldhash")
		require.NoError(t, err)
		assert.True(t, session.IsExpired())
	})

	t.Run("delete of unknown token maps to ErrNotFound", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewSessionRepository(mock)

		mock.ExpectExec("DELETE FROM sessions").
			WithArgs("missinghash").
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.DeleteByTokenHash(ctx, "missinghash")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("delete expired returns the count", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewSessionRepository(mock)

		mock.ExpectExec("DELETE FROM sessions").
			WithArgs(pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("DELETE", 3))

		n, err := repo.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}
