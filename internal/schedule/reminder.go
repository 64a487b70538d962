package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FonTain1991/aidkit/internal/model"
	"github.com/FonTain1991/aidkit/internal/recurrence"

	"go.uber.org/multierr"
)

// ReminderScheduler expands a reminder definition into pending notifications
// and keeps the notification center in step when the definition changes.
//
// All expansion happens in loc. Stored anchor times are converted into loc
// before re-expanding, so a cancel recomputes the exact id set the original
// schedule produced even after the anchor round-trips through storage as UTC.
type ReminderScheduler struct {
	gateway Gateway
	horizon recurrence.Horizon
	loc     *time.Location
	logger  *slog.Logger
}

func NewReminderScheduler(gateway Gateway, horizon recurrence.Horizon, loc *time.Location, logger *slog.Logger) *ReminderScheduler {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderScheduler{gateway: gateway, horizon: horizon, loc: loc, logger: logger}
}

// Schedule expands rem relative to now and submits one notification per
// point. A failing point is recorded in the report and the pass continues;
// a spec that cannot be expanded at all fails the whole call.
func (s *ReminderScheduler) Schedule(ctx context.Context, rem *model.Reminder, now time.Time) (*Report, error) {
	spec, err := reminderSpec(rem)
	if err != nil {
		return nil, err
	}

	points, err := recurrence.Expand(spec, now.In(s.loc), s.horizon)
	if err != nil {
		return nil, err
	}

	owner := ReminderOwner(rem.ID)
	perPeriod := spec.Intakes()
	report := &Report{}

	for _, point := range points {
		id := DeriveID(model.KindReminder, owner, point.PeriodIndex, point.IntakeIndex)
		n := &model.PendingNotification{
			ID:     id,
			Kind:   model.KindReminder,
			FireAt: point.FireAt,
			Title:  rem.Title,
			Body:   intakeBody(rem, point),
			Payload: EncodePayload(Payload{
				Kind:           model.KindReminder,
				Owner:          owner,
				MedicineIDs:    rem.MedicineIDs,
				FamilyMemberID: rem.FamilyMemberID,
				PeriodIndex:    point.PeriodIndex,
				IntakeIndex:    point.IntakeIndex,
				TotalIntakes:   perPeriod,
			}),
		}

		if err := s.gateway.ScheduleAt(ctx, n); err != nil {
			s.logger.Warn("schedule reminder point", "reminder_id", rem.ID, "fire_at", point.FireAt, "error", err)
			report.fail(id, point.FireAt, err)
			continue
		}
		report.add(id)
	}

	s.logger.Info("reminder scheduled",
		"reminder_id", rem.ID, "points", len(points), "failed", len(report.Failed))

	return report, nil
}

// CancelAll removes every pending notification belonging to rem. When the
// definition still carries its expansion anchor, ids are recomputed without
// listing anything. Otherwise it falls back to scanning pending payloads.
// Safe on a definition that was never fully scheduled: it cancels whatever
// subset exists.
func (s *ReminderScheduler) CancelAll(ctx context.Context, rem *model.Reminder) error {
	if rem.ScheduledFrom != nil {
		err := s.cancelByRecomputedIDs(ctx, rem)
		if err == nil {
			return nil
		}
		s.logger.Warn("cancel by recomputed ids failed, falling back to payload scan",
			"reminder_id", rem.ID, "error", err)
	}
	return s.CancelByOwner(ctx, ReminderOwner(rem.ID))
}

func (s *ReminderScheduler) cancelByRecomputedIDs(ctx context.Context, rem *model.Reminder) error {
	spec, err := reminderSpec(rem)
	if err != nil {
		return err
	}

	points, err := recurrence.Expand(spec, rem.ScheduledFrom.In(s.loc), s.horizon)
	if err != nil {
		return err
	}

	owner := ReminderOwner(rem.ID)
	var errs error
	for _, point := range points {
		id := DeriveID(model.KindReminder, owner, point.PeriodIndex, point.IntakeIndex)
		errs = multierr.Append(errs, s.gateway.Cancel(ctx, id))
	}
	return errs
}

// CancelByOwner cancels every pending entry whose payload owner matches.
// This is the general path: it works when the recurrence spec is long gone.
// Entries that fail to decode are skipped, never aborting the scan.
func (s *ReminderScheduler) CancelByOwner(ctx context.Context, owner OwnerKey) error {
	pending, err := s.gateway.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}

	var errs error
	for _, n := range pending {
		p, err := DecodePayload(n.Payload)
		if err != nil {
			s.logger.Warn("skip undecodable pending entry", "id", n.ID, "error", err)
			continue
		}
		if p.Owner != owner {
			continue
		}
		errs = multierr.Append(errs, s.gateway.Cancel(ctx, n.ID))
	}
	return errs
}

// CancelForMedicine cancels every pending reminder notification whose plan
// covers the medicine. Used when a medicine is deleted and its reminders'
// specs may already be gone.
func (s *ReminderScheduler) CancelForMedicine(ctx context.Context, medicineID int64) error {
	pending, err := s.gateway.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}

	var errs error
	for _, n := range pending {
		p, err := DecodePayload(n.Payload)
		if err != nil {
			continue
		}
		if p.Kind != model.KindReminder || !containsID(p.MedicineIDs, medicineID) {
			continue
		}
		errs = multierr.Append(errs, s.gateway.Cancel(ctx, n.ID))
	}
	return errs
}

// Update replaces old's notifications with new's. The cancel pass completes
// before the first create call: both definitions share the same derived id
// space, so an in-flight cancel must never race a fresh create.
func (s *ReminderScheduler) Update(ctx context.Context, old, updated *model.Reminder, now time.Time) (*Report, error) {
	if err := s.CancelAll(ctx, old); err != nil {
		return nil, fmt.Errorf("cancel previous schedule: %w", err)
	}
	return s.Schedule(ctx, updated, now)
}

// reminderSpec builds the expansion spec from the stored definition.
func reminderSpec(rem *model.Reminder) (recurrence.Spec, error) {
	anchors := make([]recurrence.AnchorTime, 0, len(rem.AnchorTimes))
	for _, raw := range rem.AnchorTimes {
		a, err := recurrence.ParseAnchorTime(raw)
		if err != nil {
			return recurrence.Spec{}, fmt.Errorf("reminder %d: %w", rem.ID, err)
		}
		anchors = append(anchors, a)
	}

	spec := recurrence.Spec{
		Frequency:        recurrence.Frequency(rem.Frequency),
		AnchorTimes:      anchors,
		IntakesPerPeriod: rem.IntakesPerPeriod,
	}
	if err := spec.Validate(); err != nil {
		return recurrence.Spec{}, fmt.Errorf("reminder %d: %w", rem.ID, err)
	}
	return spec, nil
}

func intakeBody(rem *model.Reminder, point recurrence.Point) string {
	var b strings.Builder
	b.WriteString("Time to take your medicine")
	if len(rem.MedicineIDs) > 1 {
		b.WriteString("s")
	}
	if rem.Frequency != model.FreqOnce {
		fmt.Fprintf(&b, " (intake %d)", point.IntakeIndex+1)
	}
	return b.String()
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
