package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FonTain1991/aidkit/internal/model"
)

// NotificationStore persists the pending-notification list the schedulers
// write into. Entries are keyed by their derived id: inserting an existing
// id replaces the prior entry, deleting a missing id is a no-op. That keeps
// every mutation idempotent, which is all the concurrency discipline the
// schedulers rely on.
type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Upsert(n *model.PendingNotification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO pending_notifications (id, kind, fire_at, title, body, payload)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET kind = excluded.kind, fire_at = excluded.fire_at,
		   title = excluded.title, body = excluded.body, payload = excluded.payload`,
		n.ID, n.Kind, n.FireAt.UTC(), n.Title, n.Body, string(payload),
	)
	if err != nil {
		return fmt.Errorf("upsert pending notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) Delete(id string) error {
	_, err := s.db.Exec("DELETE FROM pending_notifications WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete pending notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) GetByID(id string) (*model.PendingNotification, error) {
	row := s.db.QueryRow(
		"SELECT id, kind, fire_at, title, body, payload, created_at FROM pending_notifications WHERE id = ?", id,
	)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query pending notification: %w", err)
	}
	return n, nil
}

func (s *NotificationStore) List() ([]model.PendingNotification, error) {
	rows, err := s.db.Query(
		"SELECT id, kind, fire_at, title, body, payload, created_at FROM pending_notifications ORDER BY fire_at",
	)
	if err != nil {
		return nil, fmt.Errorf("query pending notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// ListDue returns entries whose fire time has arrived.
func (s *NotificationStore) ListDue(now time.Time) ([]model.PendingNotification, error) {
	rows, err := s.db.Query(
		"SELECT id, kind, fire_at, title, body, payload, created_at FROM pending_notifications WHERE fire_at <= ? ORDER BY fire_at",
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query due notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func scanNotifications(rows *sql.Rows) ([]model.PendingNotification, error) {
	var notifications []model.PendingNotification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}

func scanNotification(row rowScanner) (*model.PendingNotification, error) {
	var n model.PendingNotification
	var payload string
	if err := row.Scan(&n.ID, &n.Kind, &n.FireAt, &n.Title, &n.Body, &payload, &n.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &n.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &n, nil
}
