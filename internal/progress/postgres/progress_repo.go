// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

// Package postgres provides PostgreSQL implementations of the progress
// repositories.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/skillup/skillup/internal/progress"
)

// Pool is the subset of pgxpool.Pool the repositories need. Satisfied by
// *pgxpool.Pool and by pgxmock pools in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProgressRepository implements progress.Repository using PostgreSQL.
type ProgressRepository struct {
	pool Pool
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(pool Pool) *ProgressRepository {
	return &ProgressRepository{pool: pool}
}

// Init inserts a zeroed progress record. Idempotent via ON CONFLICT.
func (r *ProgressRepository) Init(ctx context.Context, userID ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_progress (user_id, score, tasks_done, streak, last_completed_at, updated_at)
		VALUES ($1, 0, 0, 0, NULL, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, userID.String(), time.Now())
	if err != nil {
		return oops.Code("PROGRESS_INIT_FAILED").
			With("operation", "insert user_progress").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return nil
}

// Get retrieves a user's progress.
func (r *ProgressRepository) Get(ctx context.Context, userID ulid.ULID) (*progress.Progress, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT user_id, score, tasks_done, streak, last_completed_at, updated_at
		FROM user_progress
		WHERE user_id = $1
	`, userID.String())

	var (
		idStr           string
		score           int
		tasksDone       int
		streak          int
		lastCompletedAt *time.Time
		updatedAt       time.Time
	)

	err := row.Scan(&idStr, &score, &tasksDone, &streak, &lastCompletedAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("PROGRESS_NOT_FOUND").
			With("user_id", userID.String()).
			Wrap(progress.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("PROGRESS_GET_FAILED").
			With("operation", "get user_progress").
			With("user_id", userID.String()).
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("PROGRESS_INVALID_ID").
			With("operation", "parse user id").
			With("user_id", idStr).
			Wrap(err)
	}

	return &progress.Progress{
		UserID:          id,
		Score:           score,
		TasksDone:       tasksDone,
		Streak:          streak,
		LastCompletedAt: lastCompletedAt,
		UpdatedAt:       updatedAt,
	}, nil
}

// Save updates an existing progress record.
func (r *ProgressRepository) Save(ctx context.Context, p *progress.Progress) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE user_progress SET
			score = $2,
			tasks_done = $3,
			streak = $4,
			last_completed_at = $5,
			updated_at = $6
		WHERE user_id = $1
	`,
		p.UserID.String(),
		p.Score,
		p.TasksDone,
		p.Streak,
		p.LastCompletedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return oops.Code("PROGRESS_SAVE_FAILED").
			With("operation", "update user_progress").
			With("user_id", p.UserID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("PROGRESS_NOT_FOUND").
			With("user_id", p.UserID.String()).
			Wrap(progress.ErrNotFound)
	}
	return nil
}

// LeaderboardRepository implements progress.LeaderboardRepository using
// PostgreSQL.
type LeaderboardRepository struct {
	pool Pool
}

// NewLeaderboardRepository creates a new LeaderboardRepository.
func NewLeaderboardRepository(pool Pool) *LeaderboardRepository {
	return &LeaderboardRepository{pool: pool}
}

// Upsert inserts or updates a user's leaderboard entry.
func (r *LeaderboardRepository) Upsert(ctx context.Context, entry progress.Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO leaderboard (user_id, username, score)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET username = $2, score = $3
	`, entry.UserID.String(), entry.Username, entry.Score)
	if err != nil {
		return oops.Code("LEADERBOARD_UPSERT_FAILED").
			With("operation", "upsert leaderboard entry").
			With("user_id", entry.UserID.String()).
			Wrap(err)
	}
	return nil
}

// Trim removes entries beyond the top keep rows.
func (r *LeaderboardRepository) Trim(ctx context.Context, keep int) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM leaderboard
		WHERE user_id NOT IN (
			SELECT user_id FROM leaderboard
			ORDER BY score DESC, user_id ASC
			LIMIT $1
		)
	`, keep)
	if err != nil {
		return oops.Code("LEADERBOARD_TRIM_FAILED").
			With("operation", "trim leaderboard").
			With("keep", keep).
			Wrap(err)
	}
	return nil
}

// Top returns up to limit entries in leaderboard order.
func (r *LeaderboardRepository) Top(ctx context.Context, limit int) ([]progress.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, username, score
		FROM leaderboard
		ORDER BY score DESC, user_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, oops.Code("LEADERBOARD_TOP_FAILED").
			With("operation", "query leaderboard").
			Wrap(err)
	}
	defer rows.Close()

	var entries []progress.Entry
	for rows.Next() {
		var (
			idStr    string
			username string
			score    int
		)
		if err := rows.Scan(&idStr, &username, &score); err != nil {
			return nil, oops.Code("LEADERBOARD_SCAN_FAILED").
				With("operation", "scan leaderboard row").
				Wrap(err)
		}
		id, err := ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code("LEADERBOARD_INVALID_ID").
				With("operation", "parse user id").
				With("user_id", idStr).
				Wrap(err)
		}
		entries = append(entries, progress.Entry{UserID: id, Username: username, Score: score})
	}

	if err := rows.Err(); err != nil {
		return nil, oops.Code("LEADERBOARD_ROWS_ERROR").
			With("operation", "iterate leaderboard rows").
			Wrap(err)
	}

	return entries, nil
}

// Compile-time interface checks.
var (
	_ progress.Repository            = (*ProgressRepository)(nil)
	_ progress.LeaderboardRepository = (*LeaderboardRepository)(nil)
)
