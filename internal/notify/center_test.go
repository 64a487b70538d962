package notify

import (
	"context"
	"testing"
	"time"

	"github.com/FonTain1991/aidkit/internal/database"
	"github.com/FonTain1991/aidkit/internal/model"
	"github.com/FonTain1991/aidkit/internal/store"
)

func setupCenter(t *testing.T) *Center {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCenter(store.NewNotificationStore(db))
}

func TestCenterScheduleIsIdempotent(t *testing.T) {
	c := setupCenter(t)
	ctx := context.Background()
	fireAt := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	n := &model.PendingNotification{
		ID:      "abc",
		Kind:    model.KindReminder,
		FireAt:  fireAt,
		Title:   "Vitamin D",
		Payload: map[string]string{"v": "1", "kind": "reminder", "reminder_id": "1"},
	}
	if err := c.ScheduleAt(ctx, n); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	n2 := *n
	n2.FireAt = fireAt.Add(time.Hour)
	if err := c.ScheduleAt(ctx, &n2); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	pending, err := c.ListPending(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("got %d entries, want 1", len(pending))
	}
	if !pending[0].FireAt.Equal(n2.FireAt) {
		t.Errorf("fire_at = %v, want the rescheduled %v", pending[0].FireAt, n2.FireAt)
	}
}

func TestCenterCancelMissingIsNoOp(t *testing.T) {
	c := setupCenter(t)
	if err := c.Cancel(context.Background(), "never-scheduled"); err != nil {
		t.Fatalf("cancel missing: %v", err)
	}
}

func TestCenterRejectsEmptyID(t *testing.T) {
	c := setupCenter(t)
	err := c.ScheduleAt(context.Background(), &model.PendingNotification{Kind: model.KindReminder})
	if err == nil {
		t.Fatal("expected error for empty id")
	}
}
