package schedule

import (
	"errors"
	"testing"
)

func TestPayloadRoundTripReminder(t *testing.T) {
	memberID := int64(4)
	p := Payload{
		Kind:           "reminder",
		Owner:          ReminderOwner(17),
		MedicineIDs:    []int64{3, 9, 12},
		FamilyMemberID: &memberID,
		PeriodIndex:    5,
		IntakeIndex:    1,
		TotalIntakes:   2,
	}

	decoded, err := DecodePayload(EncodePayload(p))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Kind != p.Kind {
		t.Errorf("kind = %q, want %q", decoded.Kind, p.Kind)
	}
	if decoded.Owner != p.Owner {
		t.Errorf("owner = %v, want %v", decoded.Owner, p.Owner)
	}
	if len(decoded.MedicineIDs) != 3 || decoded.MedicineIDs[2] != 12 {
		t.Errorf("medicine ids = %v, want %v", decoded.MedicineIDs, p.MedicineIDs)
	}
	if decoded.FamilyMemberID == nil || *decoded.FamilyMemberID != memberID {
		t.Errorf("family member id = %v, want %d", decoded.FamilyMemberID, memberID)
	}
	if decoded.PeriodIndex != 5 || decoded.IntakeIndex != 1 || decoded.TotalIntakes != 2 {
		t.Errorf("indices = %d/%d/%d, want 5/1/2", decoded.PeriodIndex, decoded.IntakeIndex, decoded.TotalIntakes)
	}
}

func TestPayloadRoundTripExpiry(t *testing.T) {
	p := Payload{
		Kind:        "expiry-warning",
		Owner:       StockOwner(8, 21),
		PeriodIndex: 3,
	}

	decoded, err := DecodePayload(EncodePayload(p))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Owner.MedicineID != 8 || decoded.Owner.StockID != 21 {
		t.Errorf("owner = %v, want stock 8/21", decoded.Owner)
	}
	if decoded.Owner.ReminderID != 0 {
		t.Errorf("reminder id = %d, want 0", decoded.Owner.ReminderID)
	}
}

func TestDecodeMissingKind(t *testing.T) {
	_, err := DecodePayload(map[string]string{"reminder_id": "5"})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Field != "kind" {
		t.Errorf("field = %q, want kind", de.Field)
	}
}

func TestDecodeMissingOwner(t *testing.T) {
	_, err := DecodePayload(map[string]string{"v": "1", "kind": "reminder"})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestDecodeTolerantOptionalFields(t *testing.T) {
	// Optional fields that are malformed degrade to zero values instead of
	// failing the whole entry.
	decoded, err := DecodePayload(map[string]string{
		"v":                "1",
		"kind":             "reminder",
		"reminder_id":      "9",
		"medicine_ids":     "3,garbage,7",
		"family_member_id": "not-a-number",
		"period":           "xx",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Owner.ReminderID != 9 {
		t.Errorf("reminder id = %d, want 9", decoded.Owner.ReminderID)
	}
	if decoded.FamilyMemberID != nil {
		t.Errorf("family member id = %v, want nil", decoded.FamilyMemberID)
	}
	if decoded.PeriodIndex != 0 {
		t.Errorf("period = %d, want 0", decoded.PeriodIndex)
	}
}

func TestDecodeUnknownKeysIgnored(t *testing.T) {
	decoded, err := DecodePayload(map[string]string{
		"v":           "1",
		"kind":        "reminder",
		"reminder_id": "2",
		"extra":       "ignored",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Owner.ReminderID != 2 {
		t.Errorf("reminder id = %d, want 2", decoded.Owner.ReminderID)
	}
}

func TestOwnerKeyStringDistinct(t *testing.T) {
	// Reminder and stock owners must never collide even with equal numbers.
	if ReminderOwner(5).String() == StockOwner(5, 5).String() {
		t.Error("reminder and stock owner keys collide")
	}
}

func TestDeriveIDStable(t *testing.T) {
	a := DeriveID("reminder", ReminderOwner(7), 2, 1)
	b := DeriveID("reminder", ReminderOwner(7), 2, 1)
	if a != b {
		t.Errorf("id not deterministic: %q vs %q", a, b)
	}
	if a == DeriveID("reminder", ReminderOwner(7), 2, 0) {
		t.Error("ids for different intake indexes collide")
	}
	if a == DeriveID("expiry-warning", ReminderOwner(7), 2, 1) {
		t.Error("ids for different kinds collide")
	}
}
