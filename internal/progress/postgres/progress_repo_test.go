// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillup/skillup/internal/progress"
	"github.com/skillup/skillup/internal/progress/postgres"
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

func TestProgressRepository_Init(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts a zeroed row", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewProgressRepository(mock)

		userID := ulid.Make()
		mock.ExpectExec("INSERT INTO user_progress").
			WithArgs(userID.String(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Init(ctx, userID))
	})

	t.Run("existing row is a no-op, not an error", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewProgressRepository(mock)

		userID := ulid.Make()
		// ON CONFLICT DO NOTHING reports zero rows affected
		mock.ExpectExec("INSERT INTO user_progress").
			WithArgs(userID.String(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		require.NoError(t, repo.Init(ctx, userID))
	})
}

func TestProgressRepository_Get(t *testing.T) {
	ctx := context.Background()

	columns := []string{"user_id", "score", "tasks_done", "streak", "last_completed_at", "updated_at"}

	t.Run("scans a full row", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewProgressRepository(mock)

		userID := ulid.Make()
		completed := time.Now().Add(-time.Hour)
		mock.ExpectQuery("SELECT user_id, score").
			WithArgs(userID.String()).
			WillReturnRows(pgxmock.NewRows(columns).
				AddRow(userID.String(), 120, 7, 3, &completed, time.Now()))

		p, err := repo.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, userID, p.UserID)
		assert.Equal(t, 120, p.Score)
		assert.Equal(t, 7, p.TasksDone)
		assert.Equal(t, 3, p.Streak)
		require.NotNil(t, p.LastCompletedAt)
	})

	t.Run("no row maps to ErrNotFound", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewProgressRepository(mock)

		userID := ulid.Make()
		mock.ExpectQuery("SELECT user_id, score").
			WithArgs(userID.String()).
			WillReturnRows(pgxmock.NewRows(columns))

		p, err := repo.Get(ctx, userID)
		require.Error(t, err)
		assert.Nil(t, p)
		assert.ErrorIs(t, err, progress.ErrNotFound)
	})
}

func TestProgressRepository_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("updates aggregates", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewProgressRepository(mock)

		userID := ulid.Make()
		now := time.Now()
		p := &progress.Progress{
			UserID:          userID,
			Score:           120,
			TasksDone:       7,
			Streak:          3,
			LastCompletedAt: &now,
			UpdatedAt:       now,
		}

		mock.ExpectExec("UPDATE user_progress").
			WithArgs(userID.String(), 120, 7, 3, &now, now).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.Save(ctx, p))
	})

	t.Run("missing row maps to ErrNotFound", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewProgressRepository(mock)

		p := &progress.Progress{UserID: ulid.Make(), UpdatedAt: time.Now()}
		mock.ExpectExec("UPDATE user_progress").
			WithArgs(p.UserID.String(), 0, 0, 0, (*time.Time)(nil), p.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Save(ctx, p)
		require.Error(t, err)
		assert.ErrorIs(t, err, progress.ErrNotFound)
	})
}

func TestLeaderboardRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert writes user, username, score", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewLeaderboardRepository(mock)

		entry := progress.Entry{UserID: ulid.Make(), Username: "alice", Score: 300}
		mock.ExpectExec("INSERT INTO leaderboard").
			WithArgs(entry.UserID.String(), "alice", 300).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Upsert(ctx, entry))
	})

	t.Run("trim keeps only the top rows", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewLeaderboardRepository(mock)

		mock.ExpectExec("DELETE FROM leaderboard").
			WithArgs(10).
			WillReturnResult(pgxmock.NewResult("DELETE", 2))

		require.NoError(t, repo.Trim(ctx, 10))
	})

	t.Run("top returns rows in order", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewLeaderboardRepository(mock)

		first := ulid.Make()
		second := ulid.Make()
		mock.ExpectQuery("SELECT user_id, username, score").
			WithArgs(10).
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "username", "score"}).
				AddRow(first.String(), "top", 900).
				AddRow(second.String(), "second", 700))

		entries, err := repo.Top(ctx, 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "top", entries[0].Username)
		assert.Equal(t, 900, entries[0].Score)
		assert.Equal(t, "second", entries[1].Username)
	})

	t.Run("empty leaderboard returns no rows", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewLeaderboardRepository(mock)

		mock.ExpectQuery("SELECT user_id, username, score").
			WithArgs(10).
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "username", "score"}))

		entries, err := repo.Top(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
