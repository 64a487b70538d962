package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FonTain1991/aidkit/internal/model"
	"github.com/FonTain1991/aidkit/internal/recurrence"
	"github.com/FonTain1991/aidkit/internal/store"
)

// Service is the single entry point the HTTP layer talks to. It owns the
// persistence of reminder definitions and delegates all notification
// bookkeeping to the schedulers.
type Service struct {
	reminders *ReminderScheduler
	expiry    *ExpiryScheduler
	views     *ViewBuilder

	reminderStore *store.ReminderStore
	medicineStore *store.MedicineStore
	intakeStore   *store.IntakeStore

	logger *slog.Logger
	now    func() time.Time
}

func NewService(gateway Gateway, reminderStore *store.ReminderStore, medicineStore *store.MedicineStore, memberStore *store.FamilyMemberStore, intakeStore *store.IntakeStore, logger *slog.Logger) *Service {
	return &Service{
		reminders:     NewReminderScheduler(gateway, recurrence.DefaultHorizon, time.Local, logger),
		expiry:        NewExpiryScheduler(gateway, DefaultExpiryOffsets, logger),
		views:         NewViewBuilder(gateway, medicineStore, reminderStore, memberStore, intakeStore, logger),
		reminderStore: reminderStore,
		medicineStore: medicineStore,
		intakeStore:   intakeStore,
		logger:        logger,
		now:           time.Now,
	}
}

// ScheduleReminder persists the reminder definition and schedules its
// notification series. The reminder is created even when some points fail
// to schedule; the report tells the caller which ones.
func (s *Service) ScheduleReminder(ctx context.Context, rem *model.Reminder) (*model.Reminder, *Report, error) {
	if _, err := reminderSpec(rem); err != nil {
		return nil, nil, err
	}

	created, err := s.reminderStore.Create(rem)
	if err != nil {
		return nil, nil, fmt.Errorf("create reminder: %w", err)
	}

	now := s.now()
	report, err := s.reminders.Schedule(ctx, created, now)
	if err != nil {
		return created, report, err
	}
	if err := s.reminderStore.SetScheduledFrom(created.ID, now); err != nil {
		return created, report, fmt.Errorf("record schedule base time: %w", err)
	}
	created.ScheduledFrom = &now
	return created, report, nil
}

// CancelReminder removes the reminder's pending notifications and
// deactivates the definition. The definition is kept for history; only the
// notifications are gone for good.
func (s *Service) CancelReminder(ctx context.Context, id int64) error {
	rem, err := s.reminderStore.GetByID(id)
	if err != nil {
		return err
	}
	if rem == nil {
		return nil
	}
	if err := s.reminders.CancelAll(ctx, rem); err != nil {
		return err
	}
	return s.reminderStore.Deactivate(id)
}

// UpdateReminder replaces the reminder's definition and its whole
// notification series. Cancellation of the old series completes before any
// new point is scheduled, so the two series can never interleave.
func (s *Service) UpdateReminder(ctx context.Context, rem *model.Reminder) (*model.Reminder, *Report, error) {
	if _, err := reminderSpec(rem); err != nil {
		return nil, nil, err
	}

	old, err := s.reminderStore.GetByID(rem.ID)
	if err != nil {
		return nil, nil, err
	}
	if old == nil {
		return nil, nil, fmt.Errorf("reminder %d not found", rem.ID)
	}

	updated, err := s.reminderStore.Update(rem)
	if err != nil {
		return nil, nil, fmt.Errorf("update reminder: %w", err)
	}

	now := s.now()
	report, err := s.reminders.Update(ctx, old, updated, now)
	if err != nil {
		return updated, report, err
	}
	if err := s.reminderStore.SetScheduledFrom(updated.ID, now); err != nil {
		return updated, report, fmt.Errorf("record schedule base time: %w", err)
	}
	updated.ScheduledFrom = &now
	return updated, report, nil
}

// ScheduleMedicineExpiry rebuilds the expiry warning series for one stock
// entry. Any previous series for the same stock is cancelled first, so
// calling this after an expiry date change never leaves stale warnings.
func (s *Service) ScheduleMedicineExpiry(ctx context.Context, medicineID, stockID int64) (*Report, error) {
	med, err := s.medicineStore.GetByID(medicineID)
	if err != nil {
		return nil, err
	}
	if med == nil {
		return nil, fmt.Errorf("medicine %d not found", medicineID)
	}
	stock, err := s.medicineStore.GetStock(stockID)
	if err != nil {
		return nil, err
	}
	if stock == nil || stock.MedicineID != medicineID {
		return nil, fmt.Errorf("stock %d not found for medicine %d", stockID, medicineID)
	}

	if err := s.expiry.CancelForStock(ctx, medicineID, stockID); err != nil {
		return nil, err
	}
	return s.expiry.ScheduleForStock(ctx, med, stock, s.now())
}

// CancelMedicineNotifications removes the expiry warning series for one
// stock entry, used when the entry is deleted or its date cleared.
func (s *Service) CancelMedicineNotifications(ctx context.Context, medicineID, stockID int64) error {
	return s.expiry.CancelForStock(ctx, medicineID, stockID)
}

// CancelAllForMedicine removes every notification that references the
// medicine: expiry warnings for all its stock entries and reminder intakes
// that include it. Called when the medicine itself is deleted.
func (s *Service) CancelAllForMedicine(ctx context.Context, medicineID int64) error {
	stocks, err := s.medicineStore.ListStocks(medicineID)
	if err != nil {
		return err
	}
	for _, stock := range stocks {
		if err := s.expiry.CancelForStock(ctx, medicineID, stock.ID); err != nil {
			return err
		}
	}
	return s.reminders.CancelForMedicine(ctx, medicineID)
}

// TodayIntakes lists today's scheduled intakes in firing order.
func (s *Service) TodayIntakes(ctx context.Context) ([]TodayIntake, error) {
	return s.views.TodayIntakes(ctx, s.now())
}

// ActiveReminders lists active reminder definitions with their pending
// schedule summary.
func (s *Service) ActiveReminders(ctx context.Context) ([]ReminderOverview, error) {
	return s.views.ActiveReminders(ctx)
}

// MarkTaken records that the intake behind a pending notification was
// taken. Recording twice for the same notification keeps the first record.
func (s *Service) MarkTaken(ctx context.Context, notificationID string, familyMemberID *int64) (*model.IntakeRecord, error) {
	pending, err := s.views.gateway.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range pending {
		if n.ID != notificationID {
			continue
		}
		p, err := DecodePayload(n.Payload)
		if err != nil {
			return nil, fmt.Errorf("decode payload for %s: %w", notificationID, err)
		}
		if p.Kind != model.KindReminder {
			return nil, fmt.Errorf("notification %s is not an intake", notificationID)
		}
		return s.intakeStore.MarkTaken(p.Owner.ReminderID, notificationID, familyMemberID, s.now())
	}
	return nil, fmt.Errorf("notification %s not found", notificationID)
}
