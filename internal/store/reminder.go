package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FonTain1991/aidkit/internal/model"
)

type ReminderStore struct {
	db *sql.DB
}

func NewReminderStore(db *sql.DB) *ReminderStore {
	return &ReminderStore{db: db}
}

func (s *ReminderStore) Create(rem *model.Reminder) (*model.Reminder, error) {
	medicineIDs, err := json.Marshal(rem.MedicineIDs)
	if err != nil {
		return nil, fmt.Errorf("marshal medicine ids: %w", err)
	}
	anchorTimes, err := json.Marshal(rem.AnchorTimes)
	if err != nil {
		return nil, fmt.Errorf("marshal anchor times: %w", err)
	}

	var memberID sql.NullInt64
	if rem.FamilyMemberID != nil {
		memberID = sql.NullInt64{Int64: *rem.FamilyMemberID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO reminders (title, medicine_ids, family_member_id, frequency, anchor_times, intakes_per_period, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, 1)`,
		rem.Title, string(medicineIDs), memberID, rem.Frequency, string(anchorTimes), rem.IntakesPerPeriod,
	)
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *ReminderStore) GetByID(id int64) (*model.Reminder, error) {
	row := s.db.QueryRow(
		`SELECT id, title, medicine_ids, family_member_id, frequency, anchor_times, intakes_per_period, is_active, scheduled_from, created_at, updated_at
		 FROM reminders WHERE id = ?`, id,
	)
	rem, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query reminder: %w", err)
	}
	return rem, nil
}

func (s *ReminderStore) ListActive() ([]model.Reminder, error) {
	return s.list("WHERE is_active = 1")
}

func (s *ReminderStore) List() ([]model.Reminder, error) {
	return s.list("")
}

func (s *ReminderStore) list(where string) ([]model.Reminder, error) {
	rows, err := s.db.Query(
		`SELECT id, title, medicine_ids, family_member_id, frequency, anchor_times, intakes_per_period, is_active, scheduled_from, created_at, updated_at
		 FROM reminders ` + where + ` ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, *rem)
	}
	return reminders, rows.Err()
}

func (s *ReminderStore) Update(rem *model.Reminder) (*model.Reminder, error) {
	medicineIDs, err := json.Marshal(rem.MedicineIDs)
	if err != nil {
		return nil, fmt.Errorf("marshal medicine ids: %w", err)
	}
	anchorTimes, err := json.Marshal(rem.AnchorTimes)
	if err != nil {
		return nil, fmt.Errorf("marshal anchor times: %w", err)
	}

	var memberID sql.NullInt64
	if rem.FamilyMemberID != nil {
		memberID = sql.NullInt64{Int64: *rem.FamilyMemberID, Valid: true}
	}

	_, err = s.db.Exec(
		`UPDATE reminders SET title = ?, medicine_ids = ?, family_member_id = ?, frequency = ?, anchor_times = ?, intakes_per_period = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		rem.Title, string(medicineIDs), memberID, rem.Frequency, string(anchorTimes), rem.IntakesPerPeriod, rem.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update reminder: %w", err)
	}
	return s.GetByID(rem.ID)
}

// SetScheduledFrom records the expansion reference of the last schedule
// pass, enabling cancellation by id recomputation later.
func (s *ReminderStore) SetScheduledFrom(id int64, from time.Time) error {
	_, err := s.db.Exec(
		"UPDATE reminders SET scheduled_from = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		from.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set scheduled_from: %w", err)
	}
	return nil
}

// Deactivate soft-deletes a reminder. The row stays so historical intake
// records keep a join target.
func (s *ReminderStore) Deactivate(id int64) error {
	_, err := s.db.Exec(
		"UPDATE reminders SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?", id,
	)
	if err != nil {
		return fmt.Errorf("deactivate reminder: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (*model.Reminder, error) {
	var rem model.Reminder
	var medicineIDs, anchorTimes string
	var memberID sql.NullInt64
	var isActive int
	var scheduledFrom sql.NullTime

	err := row.Scan(&rem.ID, &rem.Title, &medicineIDs, &memberID, &rem.Frequency, &anchorTimes,
		&rem.IntakesPerPeriod, &isActive, &scheduledFrom, &rem.CreatedAt, &rem.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(medicineIDs), &rem.MedicineIDs); err != nil {
		return nil, fmt.Errorf("unmarshal medicine ids: %w", err)
	}
	if err := json.Unmarshal([]byte(anchorTimes), &rem.AnchorTimes); err != nil {
		return nil, fmt.Errorf("unmarshal anchor times: %w", err)
	}
	if memberID.Valid {
		rem.FamilyMemberID = &memberID.Int64
	}
	rem.IsActive = isActive != 0
	if scheduledFrom.Valid {
		rem.ScheduledFrom = &scheduledFrom.Time
	}

	return &rem, nil
}
