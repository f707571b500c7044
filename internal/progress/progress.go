// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

// Package progress tracks per-user gamification aggregates (score, completed
// task count, daily streak) and the top-K leaderboard projection. The task
// payloads themselves are opaque to this package; only the completion side
// effect on aggregates is modeled here.
package progress

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultLeaderboardSize is the number of entries kept in the leaderboard
// projection.
const DefaultLeaderboardSize = 10

// ErrNotFound is returned when a requested progress record does not exist.
var ErrNotFound = errors.New("not found")

// Progress holds one user's gamification aggregates. Created at zero when
// the account is registered; mutated only through Service.CompleteTask.
type Progress struct {
	UserID          ulid.ULID
	Score           int
	TasksDone       int
	Streak          int
	LastCompletedAt *time.Time
	UpdatedAt       time.Time
}

// NewProgress creates a zeroed Progress record for a user.
func NewProgress(userID ulid.ULID) (*Progress, error) {
	if userID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("PROGRESS_INVALID_USER").Errorf("user ID cannot be zero")
	}
	return &Progress{
		UserID:    userID,
		UpdatedAt: time.Now(),
	}, nil
}

// recordCompletion applies one task completion at the given time: score and
// count increments plus the consecutive-day streak rule (+1 if the previous
// completion was yesterday, reset to 1 if older, unchanged if already today).
func (p *Progress) recordCompletion(score int, now time.Time) {
	p.Score += score
	p.TasksDone++

	today := dateOf(now)
	switch {
	case p.LastCompletedAt == nil:
		p.Streak = 1
	case dateOf(*p.LastCompletedAt).Equal(today):
		// Already counted today; streak unchanged.
	case dateOf(*p.LastCompletedAt).Equal(today.AddDate(0, 0, -1)):
		p.Streak++
	default:
		p.Streak = 1
	}

	completed := now
	p.LastCompletedAt = &completed
	p.UpdatedAt = now
}

// dateOf truncates a timestamp to its UTC calendar date.
func dateOf(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Entry is one leaderboard row.
type Entry struct {
	UserID   ulid.ULID
	Username string
	Score    int
}

// Repository manages progress persistence.
type Repository interface {
	// Init inserts a zeroed progress record for the user. Idempotent:
	// initializing an existing user is a no-op.
	Init(ctx context.Context, userID ulid.ULID) error

	// Get retrieves a user's progress.
	Get(ctx context.Context, userID ulid.ULID) (*Progress, error)

	// Save updates an existing progress record.
	Save(ctx context.Context, p *Progress) error
}

// LeaderboardRepository manages the top-K leaderboard projection.
type LeaderboardRepository interface {
	// Upsert inserts or updates a user's leaderboard entry.
	Upsert(ctx context.Context, entry Entry) error

	// Trim removes entries beyond the top keep rows
	// (score descending, user_id ascending tiebreak).
	Trim(ctx context.Context, keep int) error

	// Top returns up to limit entries in leaderboard order.
	Top(ctx context.Context, limit int) ([]Entry, error)
}
