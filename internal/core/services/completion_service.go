package services

import (
	"context"
	"time"

	"github.com/comitanigiacomo/kanso-duel/internal/core/domain"
)

type CompletionService struct {
	tasks       domain.TaskRepository
	completions domain.CompletionRepository
}

func NewCompletionService(tasks domain.TaskRepository, completions domain.CompletionRepository) *CompletionService {
	return &CompletionService{
		tasks:       tasks,
		completions: completions,
	}
}

type RecordCompletionInput struct {
	UserID              string
	TaskID              string
	Date                time.Time
	ActualDurationHours float64
}

type RecordResult struct {
	Completion *domain.Completion `json:"completion"`
	Score      *domain.DailyScore `json:"daily_score"`
}

// Record upserts the completion and refreshes the day's score in one unit of
// work. If the recompute fails the completion is not stored either.
func (s *CompletionService) Record(ctx context.Context, input RecordCompletionInput) (*RecordResult, error) {
	task, err := s.tasks.GetByID(ctx, input.TaskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != input.UserID {
		return nil, domain.ErrTaskNotFound
	}
	if !task.Active {
		return nil, domain.ErrTaskInactive
	}

	completion, err := domain.NewCompletion(task, input.Date, input.ActualDurationHours)
	if err != nil {
		return nil, err
	}

	result := &RecordResult{Completion: completion}

	err = s.completions.WithinDay(ctx, input.UserID, completion.Date, func(tx domain.DayTx) error {
		if err := tx.UpsertCompletion(ctx, completion); err != nil {
			return err
		}

		score, err := recomputeDay(ctx, tx, input.UserID, completion.Date)
		if err != nil {
			return err
		}

		result.Score = score
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// Delete removes a completion and returns the refreshed score of that day.
func (s *CompletionService) Delete(ctx context.Context, userID, taskID string, date time.Time) (*domain.DailyScore, error) {
	if date.IsZero() {
		return nil, domain.ErrMissingDate
	}

	day := domain.DateOnly(date)
	var score *domain.DailyScore

	err := s.completions.WithinDay(ctx, userID, day, func(tx domain.DayTx) error {
		if err := tx.DeleteCompletion(ctx, userID, taskID, day); err != nil {
			return err
		}

		var err error
		score, err = recomputeDay(ctx, tx, userID, day)
		return err
	})
	if err != nil {
		return nil, err
	}

	return score, nil
}

func (s *CompletionService) ListByDate(ctx context.Context, userID string, date time.Time) ([]*domain.Completion, error) {
	if date.IsZero() {
		return nil, domain.ErrMissingDate
	}
	return s.completions.ListByDate(ctx, userID, domain.DateOnly(date))
}
