package domain

import (
	"fmt"
	"strings"
	"time"
)

type DurationUnit string

const (
	UnitDay   DurationUnit = "day"
	UnitWeek  DurationUnit = "week"
	UnitMonth DurationUnit = "month"
	UnitYear  DurationUnit = "year"
)

var (
	ErrInvalidDurationUnit  = fmt.Errorf("%w: duration type must be day, week, month or year", ErrInvalidArgument)
	ErrInvalidDurationCount = fmt.Errorf("%w: duration count must be between 1 and the limit of its unit", ErrInvalidArgument)
)

// MaxDurationYears bounds how far a challenge can reach.
const MaxDurationYears = 10

var maxDurationCount = map[DurationUnit]int{
	UnitDay:   MaxDurationYears * 366,
	UnitWeek:  MaxDurationYears * 53,
	UnitMonth: MaxDurationYears * 12,
	UnitYear:  MaxDurationYears,
}

// DurationSpec is how long a challenge runs, e.g. {month, 1}.
type DurationSpec struct {
	Unit  DurationUnit `json:"type"`
	Count int          `json:"count"`
}

// ParseDurationUnit accepts singular or plural unit names in any case.
func ParseDurationUnit(s string) (DurationUnit, error) {
	u := DurationUnit(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s"))
	switch u {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return u, nil
	}
	return "", ErrInvalidDurationUnit
}

func (d DurationSpec) Validate() error {
	unit, err := ParseDurationUnit(string(d.Unit))
	if err != nil {
		return err
	}
	if d.Count <= 0 || d.Count > maxDurationCount[unit] {
		return ErrInvalidDurationCount
	}
	return nil
}

// EndDate adds the duration to the calendar day of start. Months and years
// keep the day of month, clamped to the last day of the target month.
func (d DurationSpec) EndDate(start time.Time) (time.Time, error) {
	if err := d.Validate(); err != nil {
		return time.Time{}, err
	}

	unit, _ := ParseDurationUnit(string(d.Unit))
	start = DateOnly(start)

	var end time.Time
	switch unit {
	case UnitDay:
		end = start.AddDate(0, 0, d.Count)
	case UnitWeek:
		end = start.AddDate(0, 0, 7*d.Count)
	case UnitMonth:
		end = addMonthsClamped(start, d.Count)
	default:
		end = addMonthsClamped(start, 12*d.Count)
	}

	if !end.After(start) {
		return time.Time{}, ErrInvalidDurationCount
	}
	return end, nil
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()

	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}

	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
