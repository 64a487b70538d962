package model

import "time"

// Notification kind constants
const (
	KindReminder      = "reminder"
	KindExpiryWarning = "expiry-warning"
)

// PendingNotification is one entry held by the notification center until it
// fires or is cancelled. The id is derived, not assigned, so schedulers can
// recompute it for cancellation without a lookup. Read-only after creation.
type PendingNotification struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	FireAt    time.Time         `json:"fire_at"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Payload   map[string]string `json:"payload"`
	CreatedAt time.Time         `json:"created_at"`
}

type PushSubscription struct {
	ID         int64     `json:"id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
