package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/FonTain1991/aidkit/internal/model"
)

// IntakeStore records which scheduled intakes were actually taken. Written
// only by the mark-as-taken action; the schedulers never touch it.
type IntakeStore struct {
	db *sql.DB
}

func NewIntakeStore(db *sql.DB) *IntakeStore {
	return &IntakeStore{db: db}
}

func (s *IntakeStore) MarkTaken(reminderID int64, notificationID string, familyMemberID *int64, takenAt time.Time) (*model.IntakeRecord, error) {
	var memberID sql.NullInt64
	if familyMemberID != nil {
		memberID = sql.NullInt64{Int64: *familyMemberID, Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO intake_log (reminder_id, notification_id, family_member_id, taken_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(notification_id) DO UPDATE SET taken_at = excluded.taken_at`,
		reminderID, notificationID, memberID, takenAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("mark intake taken: %w", err)
	}

	return s.GetByNotificationID(notificationID)
}

func (s *IntakeStore) GetByNotificationID(notificationID string) (*model.IntakeRecord, error) {
	var rec model.IntakeRecord
	var memberID sql.NullInt64
	err := s.db.QueryRow(
		"SELECT id, reminder_id, notification_id, family_member_id, taken_at FROM intake_log WHERE notification_id = ?",
		notificationID,
	).Scan(&rec.ID, &rec.ReminderID, &rec.NotificationID, &memberID, &rec.TakenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query intake record: %w", err)
	}
	if memberID.Valid {
		rec.FamilyMemberID = &memberID.Int64
	}
	return &rec, nil
}

// TakenBetween returns the notification ids marked taken within [start, end).
func (s *IntakeStore) TakenBetween(start, end time.Time) (map[string]time.Time, error) {
	rows, err := s.db.Query(
		"SELECT notification_id, taken_at FROM intake_log WHERE taken_at >= ? AND taken_at < ?",
		start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query taken intakes: %w", err)
	}
	defer rows.Close()

	taken := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, fmt.Errorf("scan intake: %w", err)
		}
		taken[id] = at
	}
	return taken, rows.Err()
}
