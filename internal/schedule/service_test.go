package schedule

import (
	"context"
	"testing"

	"github.com/FonTain1991/aidkit/internal/database"
	"github.com/FonTain1991/aidkit/internal/model"
	"github.com/FonTain1991/aidkit/internal/store"
)

type serviceFixture struct {
	svc       *Service
	gw        *fakeGateway
	reminders *store.ReminderStore
}

func setupServiceTest(t *testing.T) *serviceFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	gw := newFakeGateway()
	reminders := store.NewReminderStore(db)
	svc := NewService(gw, reminders, store.NewMedicineStore(db), store.NewFamilyMemberStore(db), store.NewIntakeStore(db), testLogger())
	return &serviceFixture{svc: svc, gw: gw, reminders: reminders}
}

func TestScheduleReminderRejectsZeroIntakes(t *testing.T) {
	f := setupServiceTest(t)

	rem := &model.Reminder{
		Title:            "Vitamin D",
		MedicineIDs:      []int64{3},
		Frequency:        model.FreqDaily,
		AnchorTimes:      []string{"09:00"},
		IntakesPerPeriod: 0,
		IsActive:         true,
	}
	created, _, err := f.svc.ScheduleReminder(context.Background(), rem)
	if err == nil {
		t.Fatal("expected zero intakes per period to be rejected")
	}
	if created != nil {
		t.Errorf("rejected reminder was returned as created: %+v", created)
	}

	// Nothing persisted, nothing scheduled.
	active, err := f.reminders.ListActive()
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("%d reminders persisted, want 0", len(active))
	}
	if f.gw.scheduled != 0 {
		t.Errorf("gateway received %d entries, want 0", f.gw.scheduled)
	}
}

func TestScheduleReminderRejectsOnceWithTwoAnchors(t *testing.T) {
	f := setupServiceTest(t)

	rem := &model.Reminder{
		Title:            "Booster",
		Frequency:        model.FreqOnce,
		AnchorTimes:      []string{"09:00", "21:00"},
		IntakesPerPeriod: 1,
		IsActive:         true,
	}
	if _, _, err := f.svc.ScheduleReminder(context.Background(), rem); err == nil {
		t.Fatal("expected once with two anchor times to be rejected")
	}

	active, err := f.reminders.ListActive()
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("%d reminders persisted, want 0", len(active))
	}
}
