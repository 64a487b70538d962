package store

import (
	"testing"

	"github.com/FonTain1991/aidkit/internal/database"
)

func setupPushTestDB(t *testing.T) *PushStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPushStore(db)
}

func TestCreateSubscription(t *testing.T) {
	ps := setupPushTestDB(t)

	sub, err := ps.CreateSubscription("https://push.example.com/sub1", "p256dh_key1", "auth_key1", "Chrome Desktop")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if sub.Endpoint != "https://push.example.com/sub1" {
		t.Errorf("endpoint = %q, want %q", sub.Endpoint, "https://push.example.com/sub1")
	}
	if sub.DeviceName != "Chrome Desktop" {
		t.Errorf("device_name = %q, want %q", sub.DeviceName, "Chrome Desktop")
	}
}

func TestCreateSubscriptionUpsert(t *testing.T) {
	ps := setupPushTestDB(t)

	sub1, err := ps.CreateSubscription("https://push.example.com/sub1", "key1", "auth1", "Device A")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	sub2, err := ps.CreateSubscription("https://push.example.com/sub1", "key2", "auth2", "Device B")
	if err != nil {
		t.Fatalf("upsert subscription: %v", err)
	}
	if sub1.ID != sub2.ID {
		t.Errorf("upsert created a new row: %d vs %d", sub1.ID, sub2.ID)
	}
	if sub2.P256dhKey != "key2" {
		t.Errorf("p256dh = %q, want the updated key2", sub2.P256dhKey)
	}

	subs, err := ps.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("got %d subscriptions, want 1", len(subs))
	}
}

func TestDeleteByEndpoint(t *testing.T) {
	ps := setupPushTestDB(t)

	if _, err := ps.CreateSubscription("https://push.example.com/sub1", "key1", "auth1", "Device A"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := ps.DeleteByEndpoint("https://push.example.com/sub1"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}

	got, err := ps.GetByEndpoint("https://push.example.com/sub1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Error("subscription still present after delete")
	}

	// Deleting an unknown endpoint is a no-op.
	if err := ps.DeleteByEndpoint("https://push.example.com/unknown"); err != nil {
		t.Fatalf("delete unknown endpoint: %v", err)
	}
}
