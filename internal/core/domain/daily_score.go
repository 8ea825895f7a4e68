package domain

import (
	"time"
)

// DailyScore is fully derived from the user's active tasks and the day's
// completions. It is recomputed from scratch, never patched.
type DailyScore struct {
	UserID              string    `json:"user_id" db:"user_id"`
	Date                time.Time `json:"date" db:"score_date"`
	TotalPossiblePoints int       `json:"total_possible_points" db:"total_possible_points"`
	EarnedPoints        float64   `json:"earned_points" db:"earned_points"`
	PercentageScore     float64   `json:"percentage_score" db:"percentage_score"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

func ComputeDailyScore(userID string, date time.Time, activeTasks []*Task, completions []*Completion) *DailyScore {
	total := 0
	for _, t := range activeTasks {
		if t.Active {
			total += t.PointValue
		}
	}

	earned := 0.0
	for _, c := range completions {
		earned += c.EarnedPoints
	}

	return &DailyScore{
		UserID:              userID,
		Date:                DateOnly(date),
		TotalPossiblePoints: total,
		EarnedPoints:        earned,
		PercentageScore:     Percentage(earned, total),
		UpdatedAt:           time.Now().UTC(),
	}
}

// Percentage is clamped to [0, 100]: completions of a task deactivated after
// recording still count as earned while their points left the total.
func Percentage(earned float64, total int) float64 {
	if total <= 0 || earned <= 0 {
		return 0
	}

	pct := earned / float64(total) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// SameValues compares the derived values, ignoring timestamps.
func (s *DailyScore) SameValues(other *DailyScore) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.UserID == other.UserID &&
		s.Date.Equal(other.Date) &&
		s.TotalPossiblePoints == other.TotalPossiblePoints &&
		s.EarnedPoints == other.EarnedPoints &&
		s.PercentageScore == other.PercentageScore
}
