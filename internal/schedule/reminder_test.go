package schedule

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/FonTain1991/aidkit/internal/model"
	"github.com/FonTain1991/aidkit/internal/recurrence"
)

// fakeGateway is an in-memory pending list with injectable failures.
type fakeGateway struct {
	entries   map[string]model.PendingNotification
	failIDs   map[string]bool
	listErr   error
	cancelErr error
	cancelled []string
	scheduled int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{entries: make(map[string]model.PendingNotification), failIDs: make(map[string]bool)}
}

func (g *fakeGateway) ScheduleAt(ctx context.Context, n *model.PendingNotification) error {
	if g.failIDs[n.ID] {
		return errors.New("injected schedule failure")
	}
	g.entries[n.ID] = *n
	g.scheduled++
	return nil
}

func (g *fakeGateway) Cancel(ctx context.Context, id string) error {
	if g.cancelErr != nil {
		return g.cancelErr
	}
	delete(g.entries, id)
	g.cancelled = append(g.cancelled, id)
	return nil
}

func (g *fakeGateway) ListPending(ctx context.Context) ([]model.PendingNotification, error) {
	if g.listErr != nil {
		return nil, g.listErr
	}
	out := make([]model.PendingNotification, 0, len(g.entries))
	for _, n := range g.entries {
		out = append(out, n)
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func dailyReminder(id int64) *model.Reminder {
	return &model.Reminder{
		ID:               id,
		Title:            "Vitamin D",
		MedicineIDs:      []int64{3},
		Frequency:        model.FreqDaily,
		AnchorTimes:      []string{"09:00", "21:00"},
		IntakesPerPeriod: 2,
		IsActive:         true,
	}
}

func TestScheduleCreatesAllPoints(t *testing.T) {
	gw := newFakeGateway()
	s := NewReminderScheduler(gw, recurrence.Horizon{DailyDays: 30, WeeklyWeeks: 12}, time.UTC, testLogger())
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	report, err := s.Schedule(context.Background(), dailyReminder(1), now)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(report.Scheduled) != 60 {
		t.Errorf("scheduled = %d, want 60", len(report.Scheduled))
	}
	if report.Partial() {
		t.Errorf("unexpected failures: %v", report.Failed)
	}
	if len(gw.entries) != 60 {
		t.Errorf("gateway holds %d entries, want 60", len(gw.entries))
	}
}

func TestSchedulePartialFailure(t *testing.T) {
	gw := newFakeGateway()
	rem := dailyReminder(1)
	// Fail one specific point; the rest must still be scheduled.
	badID := DeriveID(model.KindReminder, ReminderOwner(1), 4, 1)
	gw.failIDs[badID] = true

	s := NewReminderScheduler(gw, recurrence.Horizon{DailyDays: 30, WeeklyWeeks: 12}, time.UTC, testLogger())
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	report, err := s.Schedule(context.Background(), rem, now)
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if !report.Partial() {
		t.Fatal("expected a partial report")
	}
	if len(report.Scheduled) != 59 {
		t.Errorf("scheduled = %d, want 59", len(report.Scheduled))
	}
	if len(report.Failed) != 1 || report.Failed[0].NotificationID != badID {
		t.Errorf("failed = %v, want one entry for %s", report.Failed, badID)
	}
	if report.Err() == nil {
		t.Error("expected aggregated error")
	}
}

func TestScheduleInvalidSpecFailsWhole(t *testing.T) {
	gw := newFakeGateway()
	s := NewReminderScheduler(gw, recurrence.Horizon{DailyDays: 30, WeeklyWeeks: 12}, time.UTC, testLogger())
	rem := dailyReminder(1)
	rem.AnchorTimes = []string{"25:99"}

	if _, err := s.Schedule(context.Background(), rem, time.Now()); err == nil {
		t.Fatal("expected error for invalid anchor time")
	}
	if gw.scheduled != 0 {
		t.Errorf("gateway received %d entries, want 0", gw.scheduled)
	}
}

func TestCancelAllByRecomputedIDs(t *testing.T) {
	gw := newFakeGateway()
	s := NewReminderScheduler(gw, recurrence.Horizon{DailyDays: 30, WeeklyWeeks: 12}, time.UTC, testLogger())
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	rem := dailyReminder(1)
	if _, err := s.Schedule(context.Background(), rem, now); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	rem.ScheduledFrom = &now

	// With the expansion anchor present, no payload scan is needed.
	gw.listErr = errors.New("list must not be called")

	if err := s.CancelAll(context.Background(), rem); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(gw.entries) != 0 {
		t.Errorf("%d entries left pending, want 0", len(gw.entries))
	}
}

func TestCancelAllRecomputesAfterUTCRoundTrip(t *testing.T) {
	gw := newFakeGateway()
	zone := time.FixedZone("UTC+3", 3*60*60)
	s := NewReminderScheduler(gw, recurrence.Horizon{DailyDays: 30, WeeklyWeeks: 12}, zone, testLogger())
	now := time.Date(2024, 1, 1, 1, 0, 0, 0, zone)

	rem := dailyReminder(1)
	if _, err := s.Schedule(context.Background(), rem, now); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(gw.entries) != 60 {
		t.Fatalf("gateway holds %d entries, want 60", len(gw.entries))
	}

	// Storage hands the anchor back normalized to UTC. Recomputation must
	// still derive the same id set the schedule pass produced.
	anchor := now.UTC()
	rem.ScheduledFrom = &anchor
	gw.listErr = errors.New("list must not be called")

	if err := s.CancelAll(context.Background(), rem); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(gw.entries) != 0 {
		for _, n := range gw.entries {
			t.Errorf("stale pending entry %s firing at %v survived CancelAll", n.ID, n.FireAt)
			break
		}
	}
}

func TestSchedulePayloadCarriesPerPeriodIntakes(t *testing.T) {
	gw := newFakeGateway()
	s := NewReminderScheduler(gw, recurrence.Horizon{DailyDays: 30, WeeklyWeeks: 12}, time.UTC, testLogger())
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	if _, err := s.Schedule(context.Background(), dailyReminder(1), now); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	for _, n := range gw.entries {
		p, err := DecodePayload(n.Payload)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		// Two anchor times per day, not the point count over the horizon.
		if p.TotalIntakes != 2 {
			t.Fatalf("total intakes = %d, want 2", p.TotalIntakes)
		}
		if p.IntakeIndex < 0 || p.IntakeIndex > 1 {
			t.Fatalf("intake index = %d, want 0 or 1", p.IntakeIndex)
		}
	}
}

func TestCancelAllFallsBackToPayloadScan(t *testing.T) {
	gw := newFakeGateway()
	s := NewReminderScheduler(gw, recurrence.Horizon{DailyDays: 30, WeeklyWeeks: 12}, time.UTC, testLogger())
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	rem := dailyReminder(1)
	if _, err := s.Schedule(context.Background(), rem, now); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	// No ScheduledFrom anchor: only the payload scan can find the entries.
	if err := s.CancelAll(context.Background(), rem); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(gw.entries) != 0 {
		t.Errorf("%d entries left pending, want 0", len(gw.entries))
	}
}

func TestCancelLeavesOtherRemindersUntouched(t *testing.T) {
	gw := newFakeGateway()
	s := NewReminderScheduler(gw, recurrence.Horizon{DailyDays: 30, WeeklyWeeks: 12}, time.UTC, testLogger())
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	first := dailyReminder(1)
	second := dailyReminder(2)
	second.Title = "Iron"

	if _, err := s.Schedule(context.Background(), first, now); err != nil {
		t.Fatalf("schedule first: %v", err)
	}
	if _, err := s.Schedule(context.Background(), second, now); err != nil {
		t.Fatalf("schedule second: %v", err)
	}

	if err := s.CancelAll(context.Background(), first); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if len(gw.entries) != 60 {
		t.Fatalf("%d entries left, want 60", len(gw.entries))
	}
	for _, n := range gw.entries {
		p, err := DecodePayload(n.Payload)
		if err != nil {
			t.Fatalf("decode survivor: %v", err)
		}
		if p.Owner.ReminderID != 2 {
			t.Errorf("survivor belongs to reminder %d, want 2", p.Owner.ReminderID)
		}
	}
}

func TestCancelSkipsUndecodableEntries(t *testing.T) {
	gw := newFakeGateway()
	gw.entries["junk"] = model.PendingNotification{
		ID:      "junk",
		Kind:    model.KindReminder,
		Payload: map[string]string{"garbage": "yes"},
	}

	s := NewReminderScheduler(gw, recurrence.Horizon{DailyDays: 30, WeeklyWeeks: 12}, time.UTC, testLogger())
	if err := s.CancelByOwner(context.Background(), ReminderOwner(1)); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, ok := gw.entries["junk"]; !ok {
		t.Error("undecodable entry was cancelled, should be skipped")
	}
}

func TestCancelForMedicine(t *testing.T) {
	gw := newFakeGateway()
	s := NewReminderScheduler(gw, recurrence.Horizon{DailyDays: 30, WeeklyWeeks: 12}, time.UTC, testLogger())
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	withMed := dailyReminder(1)
	withMed.MedicineIDs = []int64{3, 7}
	withoutMed := dailyReminder(2)
	withoutMed.MedicineIDs = []int64{9}

	if _, err := s.Schedule(context.Background(), withMed, now); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if _, err := s.Schedule(context.Background(), withoutMed, now); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	if err := s.CancelForMedicine(context.Background(), 7); err != nil {
		t.Fatalf("cancel for medicine: %v", err)
	}
	if len(gw.entries) != 60 {
		t.Errorf("%d entries left, want 60", len(gw.entries))
	}
}

func TestUpdateCancelsBeforeScheduling(t *testing.T) {
	gw := newFakeGateway()
	s := NewReminderScheduler(gw, recurrence.Horizon{DailyDays: 30, WeeklyWeeks: 12}, time.UTC, testLogger())
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	old := dailyReminder(1)
	if _, err := s.Schedule(context.Background(), old, now); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	old.ScheduledFrom = &now

	updated := dailyReminder(1)
	updated.AnchorTimes = []string{"08:00"}
	updated.IntakesPerPeriod = 1

	report, err := s.Update(context.Background(), old, updated, now)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(report.Scheduled) != 30 {
		t.Errorf("scheduled = %d, want 30", len(report.Scheduled))
	}
	if len(gw.entries) != 30 {
		t.Errorf("gateway holds %d entries, want 30", len(gw.entries))
	}
}

func TestUpdateAbortsWhenCancelFails(t *testing.T) {
	gw := newFakeGateway()
	s := NewReminderScheduler(gw, recurrence.Horizon{DailyDays: 30, WeeklyWeeks: 12}, time.UTC, testLogger())
	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	old := dailyReminder(1)
	if _, err := s.Schedule(context.Background(), old, now); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	before := gw.scheduled

	gw.cancelErr = errors.New("center unavailable")
	gw.listErr = errors.New("center unavailable")

	if _, err := s.Update(context.Background(), old, dailyReminder(1), now); err == nil {
		t.Fatal("expected update to fail when cancellation fails")
	}
	if gw.scheduled != before {
		t.Error("new points were scheduled despite failed cancellation")
	}
}
