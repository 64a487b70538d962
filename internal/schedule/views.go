package schedule

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/FonTain1991/aidkit/internal/model"
	"github.com/FonTain1991/aidkit/internal/store"
)

// TodayIntake is one scheduled intake falling on the current day, joined
// with the records a screen needs to render it. Never persisted; always
// recomputed from the pending list and current domain records.
type TodayIntake struct {
	NotificationID string              `json:"notification_id"`
	ReminderID     int64               `json:"reminder_id"`
	Title          string              `json:"title"`
	FireAt         time.Time           `json:"fire_at"`
	Medicines      []model.Medicine    `json:"medicines"`
	FamilyMember   *model.FamilyMember `json:"family_member,omitempty"`
	IntakeIndex    int                 `json:"intake_index"`
	TotalIntakes   int                 `json:"total_intakes"`
	Taken          bool                `json:"taken"`
	TakenAt        *time.Time          `json:"taken_at,omitempty"`
}

// ReminderOverview is one active reminder with its remaining schedule
// summarized from the pending list.
type ReminderOverview struct {
	Reminder     model.Reminder   `json:"reminder"`
	Medicines    []model.Medicine `json:"medicines"`
	NextFireAt   *time.Time       `json:"next_fire_at,omitempty"`
	PendingCount int              `json:"pending_count"`
}

// ViewBuilder reconstructs user-facing groupings from the pending
// notification list. Pure read side: it never mutates the gateway or the
// domain store.
type ViewBuilder struct {
	gateway   Gateway
	medicines *store.MedicineStore
	reminders *store.ReminderStore
	members   *store.FamilyMemberStore
	intakes   *store.IntakeStore
	logger    *slog.Logger
}

func NewViewBuilder(gateway Gateway, medicines *store.MedicineStore, reminders *store.ReminderStore, members *store.FamilyMemberStore, intakes *store.IntakeStore, logger *slog.Logger) *ViewBuilder {
	return &ViewBuilder{
		gateway:   gateway,
		medicines: medicines,
		reminders: reminders,
		members:   members,
		intakes:   intakes,
		logger:    logger,
	}
}

// TodayIntakes lists the reminder notifications firing within the day that
// contains now, sorted by fire time. Entries whose payload no longer
// decodes, or whose reminder record is gone, are skipped and logged; one
// corrupt entry must not hide the rest of the day.
func (b *ViewBuilder) TodayIntakes(ctx context.Context, now time.Time) ([]TodayIntake, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	pending, err := b.gateway.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	taken, err := b.intakes.TakenBetween(dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	var views []TodayIntake
	for _, n := range pending {
		if n.Kind != model.KindReminder {
			continue
		}
		fireAt := n.FireAt.In(now.Location())
		if fireAt.Before(dayStart) || !fireAt.Before(dayEnd) {
			continue
		}

		p, err := DecodePayload(n.Payload)
		if err != nil {
			b.logger.Warn("skip undecodable pending entry", "id", n.ID, "error", err)
			continue
		}

		rem, err := b.reminders.GetByID(p.Owner.ReminderID)
		if err != nil {
			return nil, err
		}
		if rem == nil {
			b.logger.Warn("pending entry references missing reminder", "id", n.ID, "reminder_id", p.Owner.ReminderID)
			continue
		}

		view := TodayIntake{
			NotificationID: n.ID,
			ReminderID:     rem.ID,
			Title:          rem.Title,
			FireAt:         fireAt,
			IntakeIndex:    p.IntakeIndex,
			TotalIntakes:   p.TotalIntakes,
		}

		view.Medicines, err = b.lookupMedicines(p.MedicineIDs)
		if err != nil {
			return nil, err
		}
		if p.FamilyMemberID != nil {
			member, err := b.members.GetByID(*p.FamilyMemberID)
			if err != nil {
				return nil, err
			}
			view.FamilyMember = member
		}
		if at, ok := taken[n.ID]; ok {
			view.Taken = true
			view.TakenAt = &at
		}

		views = append(views, view)
	}

	sort.Slice(views, func(i, j int) bool { return views[i].FireAt.Before(views[j].FireAt) })
	return views, nil
}

// ActiveReminders lists every active reminder definition with its next fire
// time and remaining notification count, earliest next first. Reminders
// with nothing left pending sort last.
func (b *ViewBuilder) ActiveReminders(ctx context.Context) ([]ReminderOverview, error) {
	reminders, err := b.reminders.ListActive()
	if err != nil {
		return nil, err
	}

	pending, err := b.gateway.ListPending(ctx)
	if err != nil {
		return nil, err
	}

	// Group pending reminder entries by owning reminder id.
	next := make(map[int64]time.Time)
	counts := make(map[int64]int)
	for _, n := range pending {
		if n.Kind != model.KindReminder {
			continue
		}
		p, err := DecodePayload(n.Payload)
		if err != nil {
			b.logger.Warn("skip undecodable pending entry", "id", n.ID, "error", err)
			continue
		}
		id := p.Owner.ReminderID
		counts[id]++
		if first, ok := next[id]; !ok || n.FireAt.Before(first) {
			next[id] = n.FireAt
		}
	}

	views := make([]ReminderOverview, 0, len(reminders))
	for _, rem := range reminders {
		view := ReminderOverview{Reminder: rem, PendingCount: counts[rem.ID]}
		if at, ok := next[rem.ID]; ok {
			view.NextFireAt = &at
		}
		view.Medicines, err = b.lookupMedicines(rem.MedicineIDs)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	sort.SliceStable(views, func(i, j int) bool {
		ni, nj := views[i].NextFireAt, views[j].NextFireAt
		switch {
		case ni == nil:
			return false
		case nj == nil:
			return true
		default:
			return ni.Before(*nj)
		}
	})

	return views, nil
}

func (b *ViewBuilder) lookupMedicines(ids []int64) ([]model.Medicine, error) {
	var medicines []model.Medicine
	for _, id := range ids {
		med, err := b.medicines.GetByID(id)
		if err != nil {
			return nil, err
		}
		if med == nil {
			continue // deleted medicine: drop from display, keep the intake
		}
		medicines = append(medicines, *med)
	}
	return medicines, nil
}
