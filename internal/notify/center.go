package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/FonTain1991/aidkit/internal/model"
	"github.com/FonTain1991/aidkit/internal/store"
)

// Center is the durable pending-notification list. Schedulers hand it
// entries keyed by derived id; the dispatcher drains due entries and pushes
// them out. Scheduling an id that already exists overwrites the previous
// entry, so re-scheduling is safe to repeat.
type Center struct {
	store *store.NotificationStore
}

func NewCenter(notifications *store.NotificationStore) *Center {
	return &Center{store: notifications}
}

func (c *Center) ScheduleAt(ctx context.Context, n *model.PendingNotification) error {
	if n.ID == "" {
		return fmt.Errorf("schedule notification: empty id")
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if err := c.store.Upsert(n); err != nil {
		return fmt.Errorf("schedule notification %s: %w", n.ID, err)
	}
	return nil
}

// Cancel removes a pending entry. Cancelling an id that is not pending is a
// no-op, so callers can cancel candidate ids without checking first.
func (c *Center) Cancel(ctx context.Context, id string) error {
	if err := c.store.Delete(id); err != nil {
		return fmt.Errorf("cancel notification %s: %w", id, err)
	}
	return nil
}

func (c *Center) ListPending(ctx context.Context) ([]model.PendingNotification, error) {
	return c.store.List()
}
