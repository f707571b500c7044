// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

package progress_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/skillup/skillup/internal/progress"
	"github.com/skillup/skillup/internal/progress/mocks"
	"github.com/skillup/skillup/pkg/errutil"
)

func TestNewService_NilDependencies(t *testing.T) {
	t.Run("nil progress repository", func(t *testing.T) {
		svc, err := progress.NewService(nil, mocks.NewMockLeaderboardRepository(t))
		require.Error(t, err)
		assert.Nil(t, svc)
	})

	t.Run("nil leaderboard repository", func(t *testing.T) {
		svc, err := progress.NewService(mocks.NewMockRepository(t), nil)
		require.Error(t, err)
		assert.Nil(t, svc)
	})

	t.Run("nil logger", func(t *testing.T) {
		svc, err := progress.NewServiceWithLogger(
			mocks.NewMockRepository(t), mocks.NewMockLeaderboardRepository(t), nil)
		require.Error(t, err)
		assert.Nil(t, svc)
	})
}

func TestService_InitUser(t *testing.T) {
	ctx := context.Background()

	t.Run("initializes a zeroed record", func(t *testing.T) {
		repo := mocks.NewMockRepository(t)
		board := mocks.NewMockLeaderboardRepository(t)
		svc, err := progress.NewService(repo, board)
		require.NoError(t, err)

		userID := ulid.Make()
		repo.On("Init", ctx, userID).Return(nil)

		require.NoError(t, svc.InitUser(ctx, userID))
	})

	t.Run("rejects zero user ID", func(t *testing.T) {
		repo := mocks.NewMockRepository(t)
		board := mocks.NewMockLeaderboardRepository(t)
		svc, err := progress.NewService(repo, board)
		require.NoError(t, err)

		err = svc.InitUser(ctx, ulid.ULID{})
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "PROGRESS_INVALID_USER")
	})
}

func TestService_CompleteTask(t *testing.T) {
	ctx := context.Background()

	at := func(day int, hour int) time.Time {
		return time.Date(2026, 8, day, hour, 0, 0, 0, time.UTC)
	}

	newService := func(t *testing.T) (*progress.Service, *mocks.MockRepository, *mocks.MockLeaderboardRepository) {
		t.Helper()
		repo := mocks.NewMockRepository(t)
		board := mocks.NewMockLeaderboardRepository(t)
		svc, err := progress.NewService(repo, board)
		require.NoError(t, err)
		return svc, repo, board
	}

	t.Run("first completion starts a streak of one", func(t *testing.T) {
		svc, repo, board := newService(t)
		svc.SetClock(func() time.Time { return at(10, 9) })

		userID := ulid.Make()
		existing, err := progress.NewProgress(userID)
		require.NoError(t, err)

		repo.On("Get", ctx, userID).Return(existing, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*progress.Progress")).Return(nil)
		board.On("Upsert", ctx, progress.Entry{UserID: userID, Username: "alice", Score: 50}).Return(nil)
		board.On("Trim", ctx, progress.DefaultLeaderboardSize).Return(nil)

		p, err := svc.CompleteTask(ctx, userID, "alice", 50)
		require.NoError(t, err)
		assert.Equal(t, 50, p.Score)
		assert.Equal(t, 1, p.TasksDone)
		assert.Equal(t, 1, p.Streak)
	})

	t.Run("same-day completion leaves the streak unchanged", func(t *testing.T) {
		svc, repo, board := newService(t)
		svc.SetClock(func() time.Time { return at(10, 21) })

		userID := ulid.Make()
		earlier := at(10, 9)
		existing := &progress.Progress{
			UserID:          userID,
			Score:           50,
			TasksDone:       1,
			Streak:          3,
			LastCompletedAt: &earlier,
		}

		repo.On("Get", ctx, userID).Return(existing, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*progress.Progress")).Return(nil)
		board.On("Upsert", ctx, mock.AnythingOfType("progress.Entry")).Return(nil)
		board.On("Trim", ctx, progress.DefaultLeaderboardSize).Return(nil)

		p, err := svc.CompleteTask(ctx, userID, "alice", 10)
		require.NoError(t, err)
		assert.Equal(t, 60, p.Score)
		assert.Equal(t, 2, p.TasksDone)
		assert.Equal(t, 3, p.Streak)
	})

	t.Run("next-day completion extends the streak", func(t *testing.T) {
		svc, repo, board := newService(t)
		// Late-night previous completion, early-morning next day still counts
		svc.SetClock(func() time.Time { return at(11, 0) })

		userID := ulid.Make()
		yesterday := at(10, 23)
		existing := &progress.Progress{
			UserID:          userID,
			Streak:          3,
			LastCompletedAt: &yesterday,
		}

		repo.On("Get", ctx, userID).Return(existing, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*progress.Progress")).Return(nil)
		board.On("Upsert", ctx, mock.AnythingOfType("progress.Entry")).Return(nil)
		board.On("Trim", ctx, progress.DefaultLeaderboardSize).Return(nil)

		p, err := svc.CompleteTask(ctx, userID, "alice", 10)
		require.NoError(t, err)
		assert.Equal(t, 4, p.Streak)
	})

	t.Run("missed day resets the streak", func(t *testing.T) {
		svc, repo, board := newService(t)
		svc.SetClock(func() time.Time { return at(13, 9) })

		userID := ulid.Make()
		twoDaysAgo := at(11, 9)
		existing := &progress.Progress{
			UserID:          userID,
			Streak:          7,
			LastCompletedAt: &twoDaysAgo,
		}

		repo.On("Get", ctx, userID).Return(existing, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*progress.Progress")).Return(nil)
		board.On("Upsert", ctx, mock.AnythingOfType("progress.Entry")).Return(nil)
		board.On("Trim", ctx, progress.DefaultLeaderboardSize).Return(nil)

		p, err := svc.CompleteTask(ctx, userID, "alice", 10)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Streak)
	})

	t.Run("missing record is created lazily", func(t *testing.T) {
		svc, repo, board := newService(t)

		userID := ulid.Make()
		repo.On("Get", ctx, userID).Return(nil, progress.ErrNotFound)
		repo.On("Init", ctx, userID).Return(nil)
		repo.On("Save", ctx, mock.AnythingOfType("*progress.Progress")).Return(nil)
		board.On("Upsert", ctx, mock.AnythingOfType("progress.Entry")).Return(nil)
		board.On("Trim", ctx, progress.DefaultLeaderboardSize).Return(nil)

		p, err := svc.CompleteTask(ctx, userID, "alice", 25)
		require.NoError(t, err)
		assert.Equal(t, 25, p.Score)
		assert.Equal(t, 1, p.TasksDone)
		assert.Equal(t, 1, p.Streak)
	})

	t.Run("rejects negative score", func(t *testing.T) {
		svc, _, _ := newService(t)

		_, err := svc.CompleteTask(ctx, ulid.Make(), "alice", -1)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "PROGRESS_INVALID_SCORE")
	})

	t.Run("leaderboard failure does not fail the completion", func(t *testing.T) {
		svc, repo, board := newService(t)

		userID := ulid.Make()
		existing, err := progress.NewProgress(userID)
		require.NoError(t, err)

		repo.On("Get", ctx, userID).Return(existing, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*progress.Progress")).Return(nil)
		board.On("Upsert", ctx, mock.AnythingOfType("progress.Entry")).Return(assert.AnError)

		p, err := svc.CompleteTask(ctx, userID, "alice", 10)
		require.NoError(t, err)
		assert.Equal(t, 10, p.Score)
	})

	t.Run("save failure fails the completion", func(t *testing.T) {
		svc, repo, _ := newService(t)

		userID := ulid.Make()
		existing, err := progress.NewProgress(userID)
		require.NoError(t, err)

		repo.On("Get", ctx, userID).Return(existing, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*progress.Progress")).Return(assert.AnError)

		_, err = svc.CompleteTask(ctx, userID, "alice", 10)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "PROGRESS_SAVE_FAILED")
	})
}

func TestService_Leaderboard(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the projection in order", func(t *testing.T) {
		repo := mocks.NewMockRepository(t)
		board := mocks.NewMockLeaderboardRepository(t)
		svc, err := progress.NewService(repo, board)
		require.NoError(t, err)

		entries := []progress.Entry{
			{UserID: ulid.Make(), Username: "top", Score: 900},
			{UserID: ulid.Make(), Username: "second", Score: 700},
		}
		board.On("Top", ctx, progress.DefaultLeaderboardSize).Return(entries, nil)

		got, err := svc.Leaderboard(ctx)
		require.NoError(t, err)
		assert.Equal(t, entries, got)
	})

	t.Run("custom size changes the query limit", func(t *testing.T) {
		repo := mocks.NewMockRepository(t)
		board := mocks.NewMockLeaderboardRepository(t)
		svc, err := progress.NewService(repo, board)
		require.NoError(t, err)
		svc.SetLeaderboardSize(3)

		board.On("Top", ctx, 3).Return([]progress.Entry{}, nil)

		got, err := svc.Leaderboard(ctx)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
