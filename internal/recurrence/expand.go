package recurrence

import (
	"sort"
	"time"
)

// Expand generates the ordered, de-duplicated sequence of future points for
// spec, relative to now. Every returned point strictly exceeds now; past
// candidates are dropped, never shifted, except for a once plan whose slot
// already passed today, which rolls forward exactly one day ("tomorrow"
// rather than silently nothing).
//
// Expand is deterministic: the same spec and now always yield the same
// sequence, and it never reads the wall clock.
func Expand(spec Spec, now time.Time, horizon Horizon) ([]Point, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	day0 := startOfDay(now)
	var points []Point

	switch spec.Frequency {
	case Once:
		fireAt := spec.AnchorTimes[0].On(day0)
		if !fireAt.After(now) {
			fireAt = spec.AnchorTimes[0].On(day0.AddDate(0, 0, 1))
		}
		points = append(points, Point{FireAt: fireAt, PeriodIndex: 0, IntakeIndex: 0})

	case Daily:
		n := spec.Intakes()
		for period := 0; period < horizon.DailyDays; period++ {
			day := day0.AddDate(0, 0, period)
			for intake := 0; intake < n; intake++ {
				fireAt := spec.AnchorTimes[intake].On(day)
				if fireAt.After(now) {
					points = append(points, Point{FireAt: fireAt, PeriodIndex: period, IntakeIndex: intake})
				}
			}
		}

	case Weekly:
		n := spec.Intakes()
		for period := 0; period < horizon.WeeklyWeeks; period++ {
			weekStart := day0.AddDate(0, 0, 7*period)
			for intake := 0; intake < n; intake++ {
				// Spread the week's intakes evenly across its 7 days.
				day := weekStart.AddDate(0, 0, intake*7/n)
				fireAt := spec.AnchorTimes[intake].On(day)
				if fireAt.After(now) {
					points = append(points, Point{FireAt: fireAt, PeriodIndex: period, IntakeIndex: intake})
				}
			}
		}
	}

	sort.SliceStable(points, func(i, j int) bool {
		if !points[i].FireAt.Equal(points[j].FireAt) {
			return points[i].FireAt.Before(points[j].FireAt)
		}
		if points[i].PeriodIndex != points[j].PeriodIndex {
			return points[i].PeriodIndex < points[j].PeriodIndex
		}
		return points[i].IntakeIndex < points[j].IntakeIndex
	})

	return dedupe(points), nil
}

// dedupe drops points that collapse onto an already-emitted timestamp
// (duplicate anchor times produce one notification, not two).
func dedupe(points []Point) []Point {
	out := points[:0]
	var last time.Time
	for i, p := range points {
		if i > 0 && p.FireAt.Equal(last) {
			continue
		}
		out = append(out, p)
		last = p.FireAt
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
