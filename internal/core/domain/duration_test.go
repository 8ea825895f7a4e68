package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDurationSpec_EndDate(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		spec  DurationSpec
		want  time.Time
	}{
		{"Days", date(2025, 1, 1), DurationSpec{UnitDay, 2}, date(2025, 1, 3)},
		{"Weeks multiply by seven", date(2025, 1, 1), DurationSpec{UnitWeek, 2}, date(2025, 1, 15)},
		{"Month clamps to end of February", date(2025, 1, 31), DurationSpec{UnitMonth, 1}, date(2025, 2, 28)},
		{"Month clamps in a leap year", date(2024, 1, 31), DurationSpec{UnitMonth, 1}, date(2024, 2, 29)},
		{"Month keeps day of month", date(2025, 3, 15), DurationSpec{UnitMonth, 2}, date(2025, 5, 15)},
		{"Month crosses the year", date(2025, 11, 30), DurationSpec{UnitMonth, 3}, date(2026, 2, 28)},
		{"Year from a leap day", date(2024, 2, 29), DurationSpec{UnitYear, 1}, date(2025, 2, 28)},
		{"Plural unit names", date(2025, 1, 1), DurationSpec{"Days", 1}, date(2025, 1, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.spec.EndDate(tt.start)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.After(tt.start))
		})
	}
}

func TestDurationSpec_Validate(t *testing.T) {
	assert.ErrorIs(t, DurationSpec{"fortnight", 1}.Validate(), ErrInvalidDurationUnit)
	assert.ErrorIs(t, DurationSpec{UnitDay, 0}.Validate(), ErrInvalidDurationCount)
	assert.ErrorIs(t, DurationSpec{UnitWeek, -3}.Validate(), ErrInvalidArgument)
	assert.NoError(t, DurationSpec{UnitYear, 1}.Validate())
	assert.NoError(t, DurationSpec{UnitYear, MaxDurationYears}.Validate())
}

func TestDurationSpec_EndDate_RejectsHugeCounts(t *testing.T) {
	start := date(2025, 1, 1)

	tests := []struct {
		name string
		spec DurationSpec
	}{
		{"Years that overflow months", DurationSpec{UnitYear, math.MaxInt / 6}},
		{"Weeks that overflow days", DurationSpec{UnitWeek, math.MaxInt/7 + 1}},
		{"Days past the limit", DurationSpec{UnitDay, MaxDurationYears*366 + 1}},
		{"Months past the limit", DurationSpec{UnitMonth, MaxDurationYears*12 + 1}},
		{"Years past the limit", DurationSpec{UnitYear, MaxDurationYears + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.spec.EndDate(start)
			assert.ErrorIs(t, err, ErrInvalidDurationCount)
			assert.True(t, got.IsZero())
		})
	}
}
