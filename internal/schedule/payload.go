// Package schedule turns reminder definitions and stock expiry dates into
// concrete pending notifications, and rebuilds user-facing views from them.
// The notification center keeps no foreign key into the domain store; the
// only link back is the flat string payload encoded here.
package schedule

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/FonTain1991/aidkit/internal/model"
)

// payloadVersion is written into every payload so future codecs can branch.
const payloadVersion = "1"

// OwnerKey identifies the domain entity a notification belongs to. It is a
// tagged value: reminders are keyed by reminder id, expiry warnings by
// medicine and stock id. Keeping the tag explicit prevents cross-talk
// between the two id spaces.
type OwnerKey struct {
	ReminderID int64 // set when the owner is a reminder
	MedicineID int64 // set when the owner is a medicine stock
	StockID    int64
}

// ReminderOwner keys a notification to a reminder definition.
func ReminderOwner(reminderID int64) OwnerKey {
	return OwnerKey{ReminderID: reminderID}
}

// StockOwner keys a notification to a medicine stock.
func StockOwner(medicineID, stockID int64) OwnerKey {
	return OwnerKey{MedicineID: medicineID, StockID: stockID}
}

func (k OwnerKey) String() string {
	if k.ReminderID != 0 {
		return fmt.Sprintf("reminder:%d", k.ReminderID)
	}
	return fmt.Sprintf("stock:%d:%d", k.MedicineID, k.StockID)
}

// Payload is the decoded form of the per-notification metadata. It must be
// enough to reconstruct the owning entity reference and recurrence position
// without consulting the domain store.
type Payload struct {
	Kind           string
	Owner          OwnerKey
	MedicineIDs    []int64 // all medicines a reminder covers; empty for expiry
	FamilyMemberID *int64
	PeriodIndex    int
	IntakeIndex    int
	TotalIntakes   int
}

// DecodeError reports a payload that cannot be linked back to its owner.
// Optional fields never produce one; only a missing kind or owner id does.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode payload: %s: %s", e.Field, e.Reason)
}

// EncodePayload flattens p into string-keyed primitives. The platform store
// only round-trips flat string maps reliably, so there is no nesting.
func EncodePayload(p Payload) map[string]string {
	m := map[string]string{
		"v":             payloadVersion,
		"kind":          p.Kind,
		"period":        strconv.Itoa(p.PeriodIndex),
		"intake":        strconv.Itoa(p.IntakeIndex),
		"total_intakes": strconv.Itoa(p.TotalIntakes),
	}

	if p.Kind == model.KindReminder {
		m["reminder_id"] = strconv.FormatInt(p.Owner.ReminderID, 10)
	} else {
		m["medicine_id"] = strconv.FormatInt(p.Owner.MedicineID, 10)
		m["stock_id"] = strconv.FormatInt(p.Owner.StockID, 10)
	}
	if len(p.MedicineIDs) > 0 {
		m["medicine_ids"] = joinIDs(p.MedicineIDs)
	}
	if p.FamilyMemberID != nil {
		m["family_member_id"] = strconv.FormatInt(*p.FamilyMemberID, 10)
	}

	return m
}

// DecodePayload is the inverse of EncodePayload. Unknown keys are ignored
// and missing optional fields default to their zero value, so payloads
// written by older versions still decode. A missing kind or owner id is a
// DecodeError: such an entry can never be joined back to the domain.
func DecodePayload(m map[string]string) (Payload, error) {
	var p Payload

	kind, ok := m["kind"]
	if !ok || kind == "" {
		return Payload{}, &DecodeError{Field: "kind", Reason: "missing"}
	}

	switch kind {
	case model.KindReminder:
		id, err := parseID(m["reminder_id"])
		if err != nil {
			return Payload{}, &DecodeError{Field: "reminder_id", Reason: "missing or malformed"}
		}
		p.Owner = ReminderOwner(id)
	case model.KindExpiryWarning:
		medID, err := parseID(m["medicine_id"])
		if err != nil {
			return Payload{}, &DecodeError{Field: "medicine_id", Reason: "missing or malformed"}
		}
		stockID, err := parseID(m["stock_id"])
		if err != nil {
			return Payload{}, &DecodeError{Field: "stock_id", Reason: "missing or malformed"}
		}
		p.Owner = StockOwner(medID, stockID)
	default:
		return Payload{}, &DecodeError{Field: "kind", Reason: fmt.Sprintf("unknown kind %q", kind)}
	}
	p.Kind = kind

	// Optional fields: malformed values degrade to zero rather than failing
	// the whole entry.
	p.PeriodIndex, _ = strconv.Atoi(m["period"])
	p.IntakeIndex, _ = strconv.Atoi(m["intake"])
	p.TotalIntakes, _ = strconv.Atoi(m["total_intakes"])
	if ids := m["medicine_ids"]; ids != "" {
		p.MedicineIDs = splitIDs(ids)
	}
	if v := m["family_member_id"]; v != "" {
		if id, err := parseID(v); err == nil {
			p.FamilyMemberID = &id
		}
	}

	return p, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func splitIDs(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		if id, err := parseID(strings.TrimSpace(part)); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}
