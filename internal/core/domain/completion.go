package domain

import (
	"fmt"
	"math"
	"time"
)

var (
	ErrCompletionNotFound = fmt.Errorf("completion %w", ErrNotFound)
	ErrInvalidDuration    = fmt.Errorf("%w: actual duration must be a non-negative number of hours", ErrInvalidArgument)
	ErrMissingDate        = fmt.Errorf("%w: completion date is required", ErrInvalidArgument)
)

// Completion is unique per (UserID, TaskID, Date). Writing the same key again
// replaces the previous values.
type Completion struct {
	UserID              string    `json:"user_id" db:"user_id"`
	TaskID              string    `json:"task_id" db:"task_id"`
	Date                time.Time `json:"date" db:"completion_date"`
	ActualDurationHours float64   `json:"actual_duration_hours" db:"actual_duration_hours"`
	EarnedPoints        float64   `json:"earned_points" db:"earned_points"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// NewCompletion derives the earned points from the task as it is right now.
func NewCompletion(task *Task, date time.Time, actualHours float64) (*Completion, error) {
	if date.IsZero() {
		return nil, ErrMissingDate
	}
	if math.IsNaN(actualHours) || math.IsInf(actualHours, 0) || actualHours < 0 {
		return nil, ErrInvalidDuration
	}

	now := time.Now().UTC()

	return &Completion{
		UserID:              task.UserID,
		TaskID:              task.ID,
		Date:                DateOnly(date),
		ActualDurationHours: actualHours,
		EarnedPoints:        task.EarnedPoints(actualHours),
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

func (c *Completion) Key() string {
	return c.UserID + "|" + c.TaskID + "|" + FormatDate(c.Date)
}
