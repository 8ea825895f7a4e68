package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTaskNotFound          = fmt.Errorf("task %w", ErrNotFound)
	ErrTaskNameEmpty         = fmt.Errorf("%w: task name cannot be empty", ErrInvalidArgument)
	ErrTaskNameTooLong       = fmt.Errorf("%w: task name is too long (max 100 chars)", ErrInvalidArgument)
	ErrTaskInvalidUserID     = fmt.Errorf("%w: invalid user id", ErrInvalidArgument)
	ErrInvalidTargetDuration = fmt.Errorf("%w: target duration must be a positive number of hours", ErrInvalidArgument)
	ErrInvalidPointValue     = fmt.Errorf("%w: point value must be a positive integer", ErrInvalidArgument)
	ErrTaskInactive          = fmt.Errorf("%w: task is deactivated", ErrInvalidState)
)

const MaxTaskNameLen = 100

type Task struct {
	ID                  string    `json:"id" db:"id"`
	UserID              string    `json:"user_id" db:"user_id"`
	Name                string    `json:"name" db:"name"`
	TargetDurationHours float64   `json:"target_duration_hours" db:"target_duration_hours"`
	PointValue          int       `json:"point_value" db:"point_value"`
	Active              bool      `json:"active" db:"active"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

func validateTask(name string, targetHours float64, points int) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrTaskNameEmpty
	}
	if len([]rune(trimmed)) > MaxTaskNameLen {
		return "", ErrTaskNameTooLong
	}
	if math.IsNaN(targetHours) || math.IsInf(targetHours, 0) || targetHours <= 0 {
		return "", ErrInvalidTargetDuration
	}
	if points <= 0 {
		return "", ErrInvalidPointValue
	}
	return trimmed, nil
}

func NewTask(userID, name string, targetHours float64, points int) (*Task, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrTaskInvalidUserID
	}

	cleanName, err := validateTask(name, targetHours, points)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	return &Task{
		ID:                  uuid.NewString(),
		UserID:              userID,
		Name:                cleanName,
		TargetDurationHours: targetHours,
		PointValue:          points,
		Active:              true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// Update replaces the task definition. Completions already recorded keep the
// points they were credited with.
func (t *Task) Update(name string, targetHours float64, points int) error {
	if !t.Active {
		return ErrTaskInactive
	}

	cleanName, err := validateTask(name, targetHours, points)
	if err != nil {
		return err
	}

	t.Name = cleanName
	t.TargetDurationHours = targetHours
	t.PointValue = points
	t.UpdatedAt = time.Now().UTC()

	return nil
}

func (t *Task) Deactivate() {
	if !t.Active {
		return
	}
	t.Active = false
	t.UpdatedAt = time.Now().UTC()
}

func (t *Task) Reactivate() {
	if t.Active {
		return
	}
	t.Active = true
	t.UpdatedAt = time.Now().UTC()
}

// EarnedPoints credits actual/target of the point value, never more than the
// point value itself.
func (t *Task) EarnedPoints(actualHours float64) float64 {
	return EarnedPoints(t.TargetDurationHours, t.PointValue, actualHours)
}

func EarnedPoints(targetHours float64, pointValue int, actualHours float64) float64 {
	if targetHours <= 0 || actualHours <= 0 || pointValue <= 0 {
		return 0
	}

	raw := actualHours / targetHours * float64(pointValue)
	return math.Min(raw, float64(pointValue))
}
