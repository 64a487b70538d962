package model

import "time"

// Reminder frequency constants. A reminder stays user-configurable;
// expiry warnings use a fixed offset table instead.
const (
	FreqOnce   = "once"
	FreqDaily  = "daily"
	FreqWeekly = "weekly"
)

// Reminder is an intake plan covering one or more medicines taken together.
// Deleting a reminder deactivates it (is_active = false) so historical
// intake records keep their join target; its pending notifications are
// hard-cancelled separately.
type Reminder struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	MedicineIDs      []int64    `json:"medicine_ids"`
	FamilyMemberID   *int64     `json:"family_member_id"`
	Frequency        string     `json:"frequency"`
	AnchorTimes      []string   `json:"anchor_times"` // "HH:MM", wall clock
	IntakesPerPeriod int        `json:"intakes_per_period"`
	IsActive         bool       `json:"is_active"`
	ScheduledFrom    *time.Time `json:"scheduled_from"` // expansion reference of the last schedule pass
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IntakeRecord marks one scheduled intake as taken. Written only by the
// mark-as-taken action, never by the scheduler.
type IntakeRecord struct {
	ID             int64     `json:"id"`
	ReminderID     int64     `json:"reminder_id"`
	NotificationID string    `json:"notification_id"`
	FamilyMemberID *int64    `json:"family_member_id"`
	TakenAt        time.Time `json:"taken_at"`
}
