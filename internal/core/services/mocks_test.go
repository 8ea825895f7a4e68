package services

import (
	"context"
	"time"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) Search(ctx context.Context, query, excludingUserID string, limit int) ([]*domain.User, error) {
	args := m.Called(ctx, query, excludingUserID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

type MockChallengeRepository struct {
	mock.Mock
}

func (m *MockChallengeRepository) Create(ctx context.Context, c *domain.Challenge) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockChallengeRepository) GetByID(ctx context.Context, id string) (*domain.Challenge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) ListByUserID(ctx context.Context, userID string, status domain.ChallengeStatus) ([]*domain.Challenge, error) {
	args := m.Called(ctx, userID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) ListDue(ctx context.Context, asOf time.Time) ([]*domain.Challenge, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Challenge), args.Error(1)
}

func (m *MockChallengeRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ChallengeStatus, at time.Time) error {
	return m.Called(ctx, id, from, to, at).Error(0)
}

func (m *MockChallengeRepository) Complete(ctx context.Context, o domain.Outcome, at time.Time) (bool, error) {
	args := m.Called(ctx, o, at)
	return args.Bool(0), args.Error(1)
}

type MockScoreRepository struct {
	mock.Mock
}

func (m *MockScoreRepository) ListRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.DailyScore, error) {
	args := m.Called(ctx, userID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.DailyScore), args.Error(1)
}

type MockStatsRepository struct {
	mock.Mock
}

func (m *MockStatsRepository) GetStats(ctx context.Context, userID string) (*domain.ProfileStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProfileStats), args.Error(1)
}

func (m *MockStatsRepository) TopByWins(ctx context.Context, excludingUserID string, limit int) ([]*domain.LeaderboardEntry, error) {
	args := m.Called(ctx, excludingUserID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LeaderboardEntry), args.Error(1)
}

func (m *MockStatsRepository) Rebuild(ctx context.Context, tally domain.StatsTally) (int, error) {
	args := m.Called(ctx, tally)
	return args.Int(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishChallengeCompleted(ctx context.Context, event domain.ChallengeCompletedEvent) error {
	return m.Called(ctx, event).Error(0)
}
