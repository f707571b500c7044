// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

package progress

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/skillup/skillup/pkg/errutil"
)

// Service coordinates task-completion aggregates and the leaderboard
// projection.
type Service struct {
	progress Repository
	board    LeaderboardRepository
	keep     int
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a new Service with a no-op logger and the default
// leaderboard size. Returns an error if any required dependency is nil.
func NewService(progress Repository, board LeaderboardRepository) (*Service, error) {
	return NewServiceWithLogger(progress, board, slog.New(slog.DiscardHandler))
}

// NewServiceWithLogger creates a new Service with the provided logger.
func NewServiceWithLogger(progress Repository, board LeaderboardRepository, logger *slog.Logger) (*Service, error) {
	if progress == nil {
		return nil, oops.Errorf("progress repository is required")
	}
	if board == nil {
		return nil, oops.Errorf("leaderboard repository is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Service{
		progress: progress,
		board:    board,
		keep:     DefaultLeaderboardSize,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// SetLeaderboardSize overrides the number of leaderboard entries kept.
func (s *Service) SetLeaderboardSize(keep int) {
	if keep > 0 {
		s.keep = keep
	}
}

// SetClock overrides the time source. Tests use this to exercise the
// streak rules deterministically.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// InitUser creates a zeroed progress record for a freshly registered user.
// Idempotent; registration retries are harmless.
func (s *Service) InitUser(ctx context.Context, userID ulid.ULID) error {
	if userID.Compare(ulid.ULID{}) == 0 {
		return oops.Code("PROGRESS_INVALID_USER").Errorf("user ID cannot be zero")
	}
	if err := s.progress.Init(ctx, userID); err != nil {
		return oops.Code("PROGRESS_INIT_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// CompleteTask applies one task completion for the user and refreshes the
// leaderboard projection. Returns the updated aggregates.
func (s *Service) CompleteTask(ctx context.Context, userID ulid.ULID, username string, score int) (*Progress, error) {
	if score < 0 {
		return nil, oops.Code("PROGRESS_INVALID_SCORE").
			With("score", score).
			Errorf("task score cannot be negative")
	}

	p, err := s.progress.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		// Accounts created before progress tracking existed get a lazy row.
		p, err = NewProgress(userID)
		if err != nil {
			return nil, err
		}
		if initErr := s.progress.Init(ctx, userID); initErr != nil {
			return nil, oops.Code("PROGRESS_INIT_FAILED").
				With("user_id", userID.String()).
				Wrap(initErr)
		}
	} else if err != nil {
		return nil, oops.Code("PROGRESS_GET_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}

	p.recordCompletion(score, s.now())

	if err := s.progress.Save(ctx, p); err != nil {
		return nil, oops.Code("PROGRESS_SAVE_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}

	// The leaderboard is a derived projection; a failed refresh must not
	// fail the completion. Log and move on.
	if err := s.board.Upsert(ctx, Entry{UserID: userID, Username: username, Score: p.Score}); err != nil {
		errutil.LogError(s.logger, "leaderboard upsert failed", err)
	} else if err := s.board.Trim(ctx, s.keep); err != nil {
		errutil.LogError(s.logger, "leaderboard trim failed", err)
	}

	return p, nil
}

// Leaderboard returns the current top-K projection.
func (s *Service) Leaderboard(ctx context.Context) ([]Entry, error) {
	entries, err := s.board.Top(ctx, s.keep)
	if err != nil {
		return nil, oops.Code("LEADERBOARD_GET_FAILED").Wrap(err)
	}
	return entries, nil
}
