package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeDailyScore(t *testing.T) {
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	taskA := &Task{ID: "a", UserID: "u", PointValue: 20, Active: true}
	taskB := &Task{ID: "b", UserID: "u", PointValue: 30, Active: true}
	retired := &Task{ID: "c", UserID: "u", PointValue: 50, Active: false}

	t.Run("Two tasks worth 50 points, 40 earned", func(t *testing.T) {
		s := ComputeDailyScore("u", day, []*Task{taskA, taskB}, []*Completion{
			{TaskID: "a", EarnedPoints: 10},
			{TaskID: "b", EarnedPoints: 30},
		})

		assert.Equal(t, 50, s.TotalPossiblePoints)
		assert.Equal(t, 40.0, s.EarnedPoints)
		assert.InDelta(t, 80.0, s.PercentageScore, 1e-9)
	})

	t.Run("Inactive tasks do not count towards the total", func(t *testing.T) {
		s := ComputeDailyScore("u", day, []*Task{taskA, retired}, nil)
		assert.Equal(t, 20, s.TotalPossiblePoints)
	})

	t.Run("No active tasks yields zero", func(t *testing.T) {
		s := ComputeDailyScore("u", day, nil, []*Completion{{TaskID: "c", EarnedPoints: 50}})
		assert.Equal(t, 0, s.TotalPossiblePoints)
		assert.Equal(t, 0.0, s.PercentageScore)
	})

	t.Run("Percentage never exceeds 100", func(t *testing.T) {
		s := ComputeDailyScore("u", day, []*Task{taskA}, []*Completion{
			{TaskID: "a", EarnedPoints: 20},
			{TaskID: "c", EarnedPoints: 50},
		})
		assert.Equal(t, 100.0, s.PercentageScore)
	})
}

func TestPercentage_Bounds(t *testing.T) {
	for _, earned := range []float64{-10, 0, 5, 50, 500} {
		for _, total := range []int{0, 1, 50} {
			p := Percentage(earned, total)
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 100.0)
			if total == 0 {
				assert.Zero(t, p)
			}
		}
	}
}
