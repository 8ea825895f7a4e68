package services

import (
	"context"
	"fmt"
	"time"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
)

const MaxScoreRangeDays = 366

var ErrScoreRangeTooLarge = fmt.Errorf("%w: date range too large, max %d days", domain.ErrInvalidArgument, MaxScoreRangeDays)
var ErrScoreRangeInverted = fmt.Errorf("%w: from cannot be after to", domain.ErrInvalidArgument)

type ScoreService struct {
	days   domain.DayStore
	scores domain.ScoreRepository
}

func NewScoreService(days domain.DayStore, scores domain.ScoreRepository) *ScoreService {
	return &ScoreService{
		days:   days,
		scores: scores,
	}
}

// Recompute rebuilds the DailyScore of one day from the current active tasks
// and that day's completions. Running it twice yields the same row.
func (s *ScoreService) Recompute(ctx context.Context, userID string, date time.Time) (*domain.DailyScore, error) {
	if date.IsZero() {
		return nil, domain.ErrMissingDate
	}

	var score *domain.DailyScore
	err := s.days.WithinDay(ctx, userID, domain.DateOnly(date), func(tx domain.DayTx) error {
		var err error
		score, err = recomputeDay(ctx, tx, userID, domain.DateOnly(date))
		return err
	})
	if err != nil {
		return nil, err
	}

	return score, nil
}

func (s *ScoreService) ListRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.DailyScore, error) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)

	if from.After(to) {
		return nil, ErrScoreRangeInverted
	}
	if domain.DaysBetween(from, to) > MaxScoreRangeDays {
		return nil, ErrScoreRangeTooLarge
	}

	return s.scores.ListRange(ctx, userID, from, to)
}

func recomputeDay(ctx context.Context, tx domain.DayTx, userID string, date time.Time) (*domain.DailyScore, error) {
	tasks, err := tx.ActiveTasks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("recompute: load tasks: %w", err)
	}

	completions, err := tx.ListCompletions(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("recompute: load completions: %w", err)
	}

	score := domain.ComputeDailyScore(userID, date, tasks, completions)

	if err := tx.UpsertDailyScore(ctx, score); err != nil {
		return nil, fmt.Errorf("recompute: store score: %w", err)
	}

	return score, nil
}
