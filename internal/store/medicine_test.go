package store

import (
	"testing"
	"time"

	"github.com/FonTain1991/aidkit/internal/database"
)

func setupMedicineTestDB(t *testing.T) (*MedicineStore, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	kit, err := NewKitStore(db).Create("Bathroom", "upstairs")
	if err != nil {
		t.Fatalf("create kit: %v", err)
	}
	return NewMedicineStore(db), kit.ID
}

func TestMedicineCreateAndList(t *testing.T) {
	ms, kitID := setupMedicineTestDB(t)

	med, err := ms.Create(kitID, "Ibuprofen", "tablet", "200mg", "with food")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if med.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if med.KitID != kitID {
		t.Errorf("kit_id = %d, want %d", med.KitID, kitID)
	}

	byKit, err := ms.ListByKit(kitID)
	if err != nil {
		t.Fatalf("list by kit: %v", err)
	}
	if len(byKit) != 1 || byKit[0].Name != "Ibuprofen" {
		t.Errorf("list = %v, want one Ibuprofen", byKit)
	}
}

func TestMedicineStockLifecycle(t *testing.T) {
	ms, kitID := setupMedicineTestDB(t)

	med, err := ms.Create(kitID, "Ibuprofen", "tablet", "200mg", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	expiry := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	stock, err := ms.CreateStock(med.ID, 20, "tablets", &expiry)
	if err != nil {
		t.Fatalf("create stock: %v", err)
	}
	if stock.ExpiryDate == nil || !stock.ExpiryDate.Equal(expiry) {
		t.Errorf("expiry = %v, want %v", stock.ExpiryDate, expiry)
	}

	// Clearing the expiry date must persist as NULL, not zero time.
	updated, err := ms.UpdateStock(stock.ID, 15, "tablets", nil)
	if err != nil {
		t.Fatalf("update stock: %v", err)
	}
	if updated.ExpiryDate != nil {
		t.Errorf("expiry = %v, want nil", updated.ExpiryDate)
	}
	if updated.Quantity != 15 {
		t.Errorf("quantity = %v, want 15", updated.Quantity)
	}

	if err := ms.DeleteStock(stock.ID); err != nil {
		t.Fatalf("delete stock: %v", err)
	}
	got, err := ms.GetStock(stock.ID)
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestMedicineDeleteCascadesStocks(t *testing.T) {
	ms, kitID := setupMedicineTestDB(t)

	med, err := ms.Create(kitID, "Ibuprofen", "tablet", "200mg", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := ms.CreateStock(med.ID, 20, "tablets", nil); err != nil {
		t.Fatalf("create stock: %v", err)
	}

	if err := ms.Delete(med.ID); err != nil {
		t.Fatalf("delete medicine: %v", err)
	}

	stocks, err := ms.ListStocks(med.ID)
	if err != nil {
		t.Fatalf("list stocks: %v", err)
	}
	if len(stocks) != 0 {
		t.Errorf("got %d stocks after medicine delete, want 0", len(stocks))
	}
}
