package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
	searchLimit             = 20
)

type LeaderboardService struct {
	users domain.UserRepository
	stats domain.StatsRepository
}

func NewLeaderboardService(users domain.UserRepository, stats domain.StatsRepository) *LeaderboardService {
	return &LeaderboardService{
		users: users,
		stats: stats,
	}
}

// TopUsers ranks by wins. A non-positive limit means the default.
func (s *LeaderboardService) TopUsers(ctx context.Context, excludingUserID string, limit int) ([]*domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	entries, err := s.stats.TopByWins(ctx, excludingUserID, limit)
	if err != nil {
		return nil, err
	}

	for i, e := range entries {
		e.Rank = i + 1
	}
	return entries, nil
}

func (s *LeaderboardService) SearchUsers(ctx context.Context, query, excludingUserID string) ([]*domain.User, error) {
	if strings.TrimSpace(query) == "" {
		return []*domain.User{}, nil
	}
	return s.users.Search(ctx, strings.TrimSpace(query), excludingUserID, searchLimit)
}

func (s *LeaderboardService) Profile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats, err := s.stats.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.UserProfile{User: user, Stats: stats}, nil
}

// RebuildStats recomputes every counter from completed challenges and returns
// how many users carry stats afterwards.
func (s *LeaderboardService) RebuildStats(ctx context.Context) (int, error) {
	now := time.Now()

	n, err := s.stats.Rebuild(ctx, func(completed []*domain.Challenge) map[string]*domain.ProfileStats {
		return domain.TallyStats(completed, now)
	})
	if err != nil {
		return 0, fmt.Errorf("rebuild stats: %w", err)
	}

	return n, nil
}
