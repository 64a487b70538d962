package schedule

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/FonTain1991/aidkit/internal/model"
)

// Gateway is the stable interface over the platform notification center.
// Implementations must make ScheduleAt idempotent per id (scheduling the
// same id twice replaces the prior entry) and treat Cancel of an unknown id
// as already-cancelled, not an error. ListPending returns a finite snapshot
// taken at call time.
type Gateway interface {
	ScheduleAt(ctx context.Context, n *model.PendingNotification) error
	Cancel(ctx context.Context, id string) error
	ListPending(ctx context.Context) ([]model.PendingNotification, error)
}

// DeriveID computes the notification id for one expansion point. The id is
// a pure function of (kind, owner, position), so a scheduler that still
// knows the owning definition can recompute every id for cancellation
// without listing the pending store.
func DeriveID(kind string, owner OwnerKey, periodIndex, intakeIndex int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d|%d", kind, owner, periodIndex, intakeIndex))
	return hex.EncodeToString(sum[:12])
}
