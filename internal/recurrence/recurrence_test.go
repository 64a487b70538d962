package recurrence

import (
	"errors"
	"testing"
	"time"
)

func anchor(h, m int) AnchorTime { return AnchorTime{Hour: h, Minute: m} }

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02T15:04", value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return ts
}

func TestParseAnchorTime(t *testing.T) {
	tests := []struct {
		input   string
		want    AnchorTime
		wantErr bool
	}{
		{"09:00", AnchorTime{9, 0}, false},
		{"21:30", AnchorTime{21, 30}, false},
		{"0:05", AnchorTime{0, 5}, false},
		{"24:00", AnchorTime{}, true},
		{"09:60", AnchorTime{}, true},
		{"morning", AnchorTime{}, true},
	}

	for _, tt := range tests {
		got, err := ParseAnchorTime(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAnchorTime(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAnchorTime(%q): %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAnchorTime(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr error
	}{
		{"no anchors", Spec{Frequency: Daily, IntakesPerPeriod: 1}, ErrNoAnchorTimes},
		{"zero intakes", Spec{Frequency: Daily, AnchorTimes: []AnchorTime{anchor(9, 0)}}, ErrBadIntakeCount},
		{"once with two anchors", Spec{Frequency: Once, AnchorTimes: []AnchorTime{anchor(9, 0), anchor(21, 0)}, IntakesPerPeriod: 1}, ErrOnceAnchorCount},
	}

	for _, tt := range tests {
		if err := tt.spec.Validate(); !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: Validate() = %v, want %v", tt.name, err, tt.wantErr)
		}
	}

	bad := Spec{Frequency: "monthly", AnchorTimes: []AnchorTime{anchor(9, 0)}, IntakesPerPeriod: 1}
	if err := bad.Validate(); err == nil {
		t.Error("unknown frequency: expected error")
	}
}

// A once plan whose slot passed today is meant for tomorrow, never dropped.
func TestExpandOnceRollsToTomorrow(t *testing.T) {
	now := at(t, "2024-01-01T10:00")
	spec := Spec{Frequency: Once, AnchorTimes: []AnchorTime{anchor(9, 0)}, IntakesPerPeriod: 1}

	points, err := Expand(spec, now, DefaultHorizon)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("len = %d, want 1", len(points))
	}
	want := at(t, "2024-01-02T09:00")
	if !points[0].FireAt.Equal(want) {
		t.Errorf("fireAt = %v, want %v", points[0].FireAt, want)
	}
}

func TestExpandOnceLaterToday(t *testing.T) {
	now := at(t, "2024-01-01T08:00")
	spec := Spec{Frequency: Once, AnchorTimes: []AnchorTime{anchor(9, 0)}, IntakesPerPeriod: 1}

	points, err := Expand(spec, now, DefaultHorizon)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := at(t, "2024-01-01T09:00")
	if len(points) != 1 || !points[0].FireAt.Equal(want) {
		t.Fatalf("points = %v, want single point at %v", points, want)
	}
}

func TestExpandDaily(t *testing.T) {
	now := at(t, "2024-01-01T08:00")
	spec := Spec{
		Frequency:        Daily,
		AnchorTimes:      []AnchorTime{anchor(9, 0), anchor(21, 0)},
		IntakesPerPeriod: 2,
	}

	points, err := Expand(spec, now, DefaultHorizon)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}

	// Nothing elapsed before 08:00, so all 2*30 points survive.
	if len(points) != 60 {
		t.Fatalf("len = %d, want 60", len(points))
	}
	if !points[0].FireAt.Equal(at(t, "2024-01-01T09:00")) {
		t.Errorf("first = %v, want 2024-01-01T09:00", points[0].FireAt)
	}
	if !points[1].FireAt.Equal(at(t, "2024-01-01T21:00")) {
		t.Errorf("second = %v, want 2024-01-01T21:00", points[1].FireAt)
	}
	last := points[len(points)-1]
	if !last.FireAt.Equal(at(t, "2024-01-30T21:00")) {
		t.Errorf("last = %v, want 2024-01-30T21:00", last.FireAt)
	}
	if last.PeriodIndex != 29 || last.IntakeIndex != 1 {
		t.Errorf("last position = (%d,%d), want (29,1)", last.PeriodIndex, last.IntakeIndex)
	}

	for _, p := range points {
		if !p.FireAt.After(now) {
			t.Fatalf("point %v not after now", p.FireAt)
		}
	}
	for i := 1; i < len(points); i++ {
		if points[i].FireAt.Before(points[i-1].FireAt) {
			t.Fatalf("points out of order at %d", i)
		}
	}
}

func TestExpandDailyDropsElapsed(t *testing.T) {
	now := at(t, "2024-01-01T12:00")
	spec := Spec{
		Frequency:        Daily,
		AnchorTimes:      []AnchorTime{anchor(9, 0), anchor(21, 0)},
		IntakesPerPeriod: 2,
	}

	points, err := Expand(spec, now, DefaultHorizon)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}

	// Today's 09:00 already elapsed: dropped, not shifted.
	if len(points) != 59 {
		t.Fatalf("len = %d, want 59", len(points))
	}
	if !points[0].FireAt.Equal(at(t, "2024-01-01T21:00")) {
		t.Errorf("first = %v, want 2024-01-01T21:00", points[0].FireAt)
	}
}

func TestExpandWeeklyDistribution(t *testing.T) {
	now := at(t, "2024-01-01T00:00")
	spec := Spec{
		Frequency:        Weekly,
		AnchorTimes:      []AnchorTime{anchor(9, 0), anchor(9, 0), anchor(9, 0)},
		IntakesPerPeriod: 3,
	}

	points, err := Expand(spec, now, DefaultHorizon)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}

	perPeriod := make(map[int]int)
	offsets := make(map[int][]int)
	for _, p := range points {
		perPeriod[p.PeriodIndex]++
		dayOffset := int(p.FireAt.Sub(at(t, "2024-01-01T00:00")).Hours()/24) - 7*p.PeriodIndex
		offsets[p.PeriodIndex] = append(offsets[p.PeriodIndex], dayOffset)
	}

	if len(perPeriod) != 12 {
		t.Fatalf("periods = %d, want 12", len(perPeriod))
	}
	for period, count := range perPeriod {
		if count != 3 {
			t.Errorf("period %d has %d points, want 3", period, count)
		}
	}
	// floor(i*7/3) = 0, 2, 4: non-decreasing within each week.
	for period, offs := range offsets {
		for i := 1; i < len(offs); i++ {
			if offs[i] < offs[i-1] {
				t.Errorf("period %d day offsets decrease: %v", period, offs)
			}
		}
	}
}

func TestExpandClampsIntakesToAnchors(t *testing.T) {
	now := at(t, "2024-01-01T00:00")
	spec := Spec{
		Frequency:        Daily,
		AnchorTimes:      []AnchorTime{anchor(9, 0)},
		IntakesPerPeriod: 4, // more than anchors: clamped, never out of range
	}

	points, err := Expand(spec, now, Horizon{DailyDays: 5, WeeklyWeeks: 12})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(points) != 5 {
		t.Fatalf("len = %d, want 5 (one per day)", len(points))
	}
}

func TestExpandDedupesIdenticalAnchors(t *testing.T) {
	now := at(t, "2024-01-01T00:00")
	spec := Spec{
		Frequency:        Daily,
		AnchorTimes:      []AnchorTime{anchor(9, 0), anchor(9, 0)},
		IntakesPerPeriod: 2,
	}

	points, err := Expand(spec, now, Horizon{DailyDays: 3, WeeklyWeeks: 12})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("len = %d, want 3 (duplicates collapse)", len(points))
	}
}

func TestExpandDeterministic(t *testing.T) {
	now := at(t, "2024-03-15T07:45")
	spec := Spec{
		Frequency:        Weekly,
		AnchorTimes:      []AnchorTime{anchor(8, 0), anchor(20, 0)},
		IntakesPerPeriod: 2,
	}

	first, err := Expand(spec, now, DefaultHorizon)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	second, err := Expand(spec, now, DefaultHorizon)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("point %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}
