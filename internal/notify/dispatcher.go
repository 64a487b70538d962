package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/FonTain1991/aidkit/internal/model"
	"github.com/FonTain1991/aidkit/internal/store"
	"github.com/FonTain1991/aidkit/internal/websocket"

	"github.com/sethvargo/go-retry"
)

// Dispatcher periodically drains due notifications from the center and
// pushes them to every registered subscription. A delivered entry is
// removed from the pending list; an entry that cannot be delivered to any
// device is still removed after its retries are spent, so a dead push
// service cannot pile up the queue forever.
type Dispatcher struct {
	mu            sync.RWMutex
	sender        *Sender
	notifications *store.NotificationStore
	push          *store.PushStore
	hub           *websocket.Hub
	logger        *slog.Logger
	interval      time.Duration
	cancel        context.CancelFunc
	done          chan struct{}
}

func NewDispatcher(sender *Sender, notifications *store.NotificationStore, pushStore *store.PushStore, hub *websocket.Hub, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:        sender,
		notifications: notifications,
		push:          pushStore,
		hub:           hub,
		logger:        logger,
		interval:      30 * time.Second,
	}
}

// Start begins the dispatch loop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	ctx, d.cancel = context.WithCancel(ctx)
	d.done = make(chan struct{})
	d.mu.Unlock()

	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the dispatcher.
func (d *Dispatcher) Stop() {
	d.mu.RLock()
	cancel := d.cancel
	done := d.done
	d.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (d *Dispatcher) tick(ctx context.Context) {
	due, err := d.notifications.ListDue(time.Now())
	if err != nil {
		d.logger.Error("list due notifications", "error", err)
		return
	}

	for _, n := range due {
		d.deliver(ctx, &n)
		if err := d.notifications.Delete(n.ID); err != nil {
			d.logger.Error("remove delivered notification", "id", n.ID, "error", err)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n *model.PendingNotification) {
	subs, err := d.push.List()
	if err != nil {
		d.logger.Error("list push subscriptions", "error", err)
		return
	}

	payload := PushPayload{
		Title: n.Title,
		Body:  n.Body,
		Tag:   n.ID,
	}
	switch n.Kind {
	case model.KindReminder:
		payload.URL = "/reminders"
	case model.KindExpiryWarning:
		payload.URL = "/medicines"
	}

	for i := range subs {
		sub := &subs[i]
		backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			err := d.sender.Send(sub, payload)
			if err == nil || errors.Is(err, ErrExpired) {
				return err
			}
			return retry.RetryableError(err)
		})
		switch {
		case err == nil:
		case errors.Is(err, ErrExpired):
			if err := d.push.DeleteByEndpoint(sub.Endpoint); err != nil {
				d.logger.Error("prune expired subscription", "endpoint", sub.Endpoint, "error", err)
			} else {
				d.logger.Info("pruned expired subscription", "device", sub.DeviceName)
			}
		default:
			d.logger.Error("deliver push", "id", n.ID, "device", sub.DeviceName, "error", err)
		}
	}

	if d.hub != nil {
		d.hub.Broadcast(websocket.Message{
			Type:   "notification_fired",
			Entity: "notification",
			Action: "fired",
			Extra: map[string]any{
				"id":    n.ID,
				"kind":  n.Kind,
				"title": n.Title,
				"body":  n.Body,
			},
		})
	}
}
