// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Skill-Up Contributors

// Package mocks provides testify mocks for the progress package interfaces.
package mocks

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/skillup/skillup/internal/progress"
)

// MockRepository is a mock implementation of progress.Repository.
type MockRepository struct {
	mock.Mock
}

// NewMockRepository creates a new MockRepository bound to the test.
// Expectations are asserted automatically at cleanup.
func NewMockRepository(t *testing.T) *MockRepository {
	t.Helper()
	m := &MockRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRepository) Init(ctx context.Context, userID ulid.ULID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRepository) Get(ctx context.Context, userID ulid.ULID) (*progress.Progress, error) {
	args := m.Called(ctx, userID)
	if p, ok := args.Get(0).(*progress.Progress); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) Save(ctx context.Context, p *progress.Progress) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// MockLeaderboardRepository is a mock implementation of
// progress.LeaderboardRepository.
type MockLeaderboardRepository struct {
	mock.Mock
}

// NewMockLeaderboardRepository creates a new MockLeaderboardRepository bound
// to the test.
func NewMockLeaderboardRepository(t *testing.T) *MockLeaderboardRepository {
	t.Helper()
	m := &MockLeaderboardRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockLeaderboardRepository) Upsert(ctx context.Context, entry progress.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLeaderboardRepository) Trim(ctx context.Context, keep int) error {
	args := m.Called(ctx, keep)
	return args.Error(0)
}

func (m *MockLeaderboardRepository) Top(ctx context.Context, limit int) ([]progress.Entry, error) {
	args := m.Called(ctx, limit)
	if entries, ok := args.Get(0).([]progress.Entry); ok {
		return entries, args.Error(1)
	}
	return nil, args.Error(1)
}

// Compile-time interface checks.
var (
	_ progress.Repository            = (*MockRepository)(nil)
	_ progress.LeaderboardRepository = (*MockLeaderboardRepository)(nil)
)
