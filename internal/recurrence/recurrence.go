// Package recurrence expands an abstract intake plan into the concrete,
// bounded sequence of future timestamps the notification schedulers submit.
package recurrence

import (
	"errors"
	"fmt"
	"time"
)

type Frequency string

const (
	Once   Frequency = "once"
	Daily  Frequency = "daily"
	Weekly Frequency = "weekly"
)

var (
	ErrNoAnchorTimes   = errors.New("recurrence: at least one anchor time required")
	ErrBadIntakeCount  = errors.New("recurrence: intakes per period must be >= 1")
	ErrOnceAnchorCount = errors.New("recurrence: once frequency takes exactly one anchor time")
)

// AnchorTime is a wall-clock time of day, independent of date and zone.
type AnchorTime struct {
	Hour   int
	Minute int
}

// ParseAnchorTime parses "HH:MM" (24-hour).
func ParseAnchorTime(s string) (AnchorTime, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return AnchorTime{}, fmt.Errorf("parse anchor time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return AnchorTime{}, fmt.Errorf("anchor time %q out of range", s)
	}
	return AnchorTime{Hour: h, Minute: m}, nil
}

func (a AnchorTime) String() string {
	return fmt.Sprintf("%02d:%02d", a.Hour, a.Minute)
}

// On combines the anchor with the date of day, in day's location.
func (a AnchorTime) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), a.Hour, a.Minute, 0, 0, day.Location())
}

// Spec describes how often and at what times a reminder repeats.
type Spec struct {
	Frequency        Frequency
	AnchorTimes      []AnchorTime
	IntakesPerPeriod int
}

// Validate reports whether the spec can be expanded at all. A failing spec
// is rejected before any point is generated.
func (s Spec) Validate() error {
	if len(s.AnchorTimes) == 0 {
		return ErrNoAnchorTimes
	}
	if s.IntakesPerPeriod < 1 {
		return ErrBadIntakeCount
	}
	switch s.Frequency {
	case Once:
		if len(s.AnchorTimes) != 1 {
			return ErrOnceAnchorCount
		}
	case Daily, Weekly:
	default:
		return fmt.Errorf("recurrence: unknown frequency %q", s.Frequency)
	}
	return nil
}

// Intakes returns how many anchor times one period consumes. A plan asking
// for more intakes than it has anchor times is clamped rather than rejected:
// the extra intakes have no time slot to land on.
func (s Spec) Intakes() int {
	n := s.IntakesPerPeriod
	if n > len(s.AnchorTimes) {
		n = len(s.AnchorTimes)
	}
	if s.Frequency == Once {
		n = 1
	}
	return n
}

// Horizon bounds how far ahead Expand materializes points. Fixed policy,
// not user input; injectable so tests can run against short windows.
type Horizon struct {
	DailyDays   int
	WeeklyWeeks int
}

// DefaultHorizon is the production look-ahead window.
var DefaultHorizon = Horizon{DailyDays: 30, WeeklyWeeks: 12}

// Point is one concrete occurrence generated from a Spec. PeriodIndex and
// IntakeIndex identify the position within the plan; notification ids are
// derived from them, so they must be stable across re-expansions.
type Point struct {
	FireAt      time.Time
	PeriodIndex int
	IntakeIndex int
}
