package schedule

import (
	"time"

	"go.uber.org/multierr"
)

// PointFailure records one expansion point that could not be scheduled or
// cancelled. Sibling points are unaffected: one bad timestamp must not drop
// the rest of a 30-day plan.
type PointFailure struct {
	NotificationID string    `json:"notification_id"`
	FireAt         time.Time `json:"fire_at"`
	Err            error     `json:"-"`
	Reason         string    `json:"reason"`
}

// Report is the outcome of one batch pass over a definition's expansion
// points. Failures are collected, never thrown mid-batch, so the caller can
// decide whether a partial schedule is acceptable.
type Report struct {
	Scheduled []string       `json:"scheduled"`
	Failed    []PointFailure `json:"failed"`
}

func (r *Report) add(id string) {
	r.Scheduled = append(r.Scheduled, id)
}

func (r *Report) fail(id string, fireAt time.Time, err error) {
	r.Failed = append(r.Failed, PointFailure{
		NotificationID: id,
		FireAt:         fireAt,
		Err:            err,
		Reason:         err.Error(),
	})
}

// Partial reports whether some but not all points went through.
func (r *Report) Partial() bool {
	return len(r.Failed) > 0 && len(r.Scheduled) > 0
}

// Err aggregates every point failure into a single error, or nil when the
// whole batch succeeded.
func (r *Report) Err() error {
	var err error
	for _, f := range r.Failed {
		err = multierr.Append(err, f.Err)
	}
	return err
}
