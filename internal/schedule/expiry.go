package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FonTain1991/aidkit/internal/model"

	"go.uber.org/multierr"
)

// ExpiryOffsets is the table of day offsets around a stock's expiry date at
// which warnings fire. Unlike reminder recurrence, this is a global policy
// constant, not per-medicine configuration.
type ExpiryOffsets struct {
	Before []int // days before expiry
	After  []int // days after expiry, repeated warnings for already-expired stock
}

// DefaultExpiryOffsets is the production offset table.
var DefaultExpiryOffsets = ExpiryOffsets{
	Before: []int{30, 14, 7, 3, 2, 1, 0},
	After:  []int{1, 3, 7},
}

// expiryNotifyHour is the wall-clock hour at which expiry warnings fire.
const expiryNotifyHour = 9

// flatten lays the table out as (dayDelta, positionIndex) pairs. The
// position index keys id derivation, so its order must never change for a
// given table.
func (o ExpiryOffsets) flatten() []int {
	deltas := make([]int, 0, len(o.Before)+len(o.After))
	for _, d := range o.Before {
		deltas = append(deltas, -d)
	}
	for _, d := range o.After {
		deltas = append(deltas, d)
	}
	return deltas
}

// ExpiryScheduler maintains expiry-warning notifications for medicine
// stocks.
type ExpiryScheduler struct {
	gateway Gateway
	offsets ExpiryOffsets
	logger  *slog.Logger
}

func NewExpiryScheduler(gateway Gateway, offsets ExpiryOffsets, logger *slog.Logger) *ExpiryScheduler {
	return &ExpiryScheduler{gateway: gateway, offsets: offsets, logger: logger}
}

// ScheduleForStock schedules one warning per table offset, skipping any that
// already elapsed. A stock with no expiry date schedules nothing.
func (s *ExpiryScheduler) ScheduleForStock(ctx context.Context, med *model.Medicine, stock *model.MedicineStock, now time.Time) (*Report, error) {
	report := &Report{}
	if stock.ExpiryDate == nil {
		return report, nil
	}

	owner := StockOwner(med.ID, stock.ID)
	expiry := *stock.ExpiryDate

	for position, delta := range s.offsets.flatten() {
		fireAt := warningTime(expiry, delta, now.Location())
		if !fireAt.After(now) {
			continue
		}

		id := DeriveID(model.KindExpiryWarning, owner, position, 0)
		n := &model.PendingNotification{
			ID:     id,
			Kind:   model.KindExpiryWarning,
			FireAt: fireAt,
			Title:  fmt.Sprintf("%s expiry", med.Name),
			Body:   expiryBody(med.Name, delta),
			Payload: EncodePayload(Payload{
				Kind:        model.KindExpiryWarning,
				Owner:       owner,
				PeriodIndex: position,
			}),
		}

		if err := s.gateway.ScheduleAt(ctx, n); err != nil {
			s.logger.Warn("schedule expiry warning", "medicine_id", med.ID, "stock_id", stock.ID, "fire_at", fireAt, "error", err)
			report.fail(id, fireAt, err)
			continue
		}
		report.add(id)
	}

	return report, nil
}

// CancelForStock cancels every warning the table could have produced for
// the stock. Ids depend only on (owner, position), never on the expiry date
// itself, so recomputation needs no stored state. Must run before any
// re-schedule on edit, and on stock or medicine deletion.
func (s *ExpiryScheduler) CancelForStock(ctx context.Context, medicineID, stockID int64) error {
	owner := StockOwner(medicineID, stockID)

	var errs error
	for position := range s.offsets.flatten() {
		id := DeriveID(model.KindExpiryWarning, owner, position, 0)
		errs = multierr.Append(errs, s.gateway.Cancel(ctx, id))
	}
	return errs
}

// warningTime places a warning at the notify hour of expiry+delta days.
func warningTime(expiry time.Time, deltaDays int, loc *time.Location) time.Time {
	day := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), expiryNotifyHour, 0, 0, 0, loc)
	return day.AddDate(0, 0, deltaDays)
}

func expiryBody(name string, delta int) string {
	switch {
	case delta < -1:
		return fmt.Sprintf("%s expires in %d days", name, -delta)
	case delta == -1:
		return fmt.Sprintf("%s expires tomorrow", name)
	case delta == 0:
		return fmt.Sprintf("%s expires today", name)
	case delta == 1:
		return fmt.Sprintf("%s expired yesterday, replace it", name)
	default:
		return fmt.Sprintf("%s expired %d days ago, replace it", name, delta)
	}
}
