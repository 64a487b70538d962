package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/FonTain1991/aidkit/internal/model"
)

type MedicineStore struct {
	db *sql.DB
}

func NewMedicineStore(db *sql.DB) *MedicineStore {
	return &MedicineStore{db: db}
}

func (s *MedicineStore) Create(kitID int64, name, form, dose, notes string) (*model.Medicine, error) {
	result, err := s.db.Exec(
		"INSERT INTO medicines (kit_id, name, form, dose, notes) VALUES (?, ?, ?, ?, ?)",
		kitID, name, form, dose, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("insert medicine: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *MedicineStore) GetByID(id int64) (*model.Medicine, error) {
	var m model.Medicine
	err := s.db.QueryRow(
		"SELECT id, kit_id, name, form, dose, notes, created_at, updated_at FROM medicines WHERE id = ?", id,
	).Scan(&m.ID, &m.KitID, &m.Name, &m.Form, &m.Dose, &m.Notes, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query medicine: %w", err)
	}
	return &m, nil
}

func (s *MedicineStore) ListByKit(kitID int64) ([]model.Medicine, error) {
	rows, err := s.db.Query(
		"SELECT id, kit_id, name, form, dose, notes, created_at, updated_at FROM medicines WHERE kit_id = ? ORDER BY name",
		kitID,
	)
	if err != nil {
		return nil, fmt.Errorf("query medicines by kit: %w", err)
	}
	defer rows.Close()
	return scanMedicines(rows)
}

func (s *MedicineStore) List() ([]model.Medicine, error) {
	rows, err := s.db.Query(
		"SELECT id, kit_id, name, form, dose, notes, created_at, updated_at FROM medicines ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("query medicines: %w", err)
	}
	defer rows.Close()
	return scanMedicines(rows)
}

func (s *MedicineStore) Update(id int64, kitID int64, name, form, dose, notes string) (*model.Medicine, error) {
	_, err := s.db.Exec(
		"UPDATE medicines SET kit_id = ?, name = ?, form = ?, dose = ?, notes = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		kitID, name, form, dose, notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update medicine: %w", err)
	}
	return s.GetByID(id)
}

func (s *MedicineStore) Delete(id int64) error {
	_, err := s.db.Exec("DELETE FROM medicines WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete medicine: %w", err)
	}
	return nil
}

func scanMedicines(rows *sql.Rows) ([]model.Medicine, error) {
	var medicines []model.Medicine
	for rows.Next() {
		var m model.Medicine
		if err := rows.Scan(&m.ID, &m.KitID, &m.Name, &m.Form, &m.Dose, &m.Notes, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan medicine: %w", err)
		}
		medicines = append(medicines, m)
	}
	return medicines, rows.Err()
}

// Stock methods live on MedicineStore: a stock never exists apart from its
// medicine.

func (s *MedicineStore) CreateStock(medicineID int64, quantity float64, unit string, expiryDate *time.Time) (*model.MedicineStock, error) {
	var expiry any
	if expiryDate != nil {
		expiry = expiryDate.UTC()
	}

	result, err := s.db.Exec(
		"INSERT INTO medicine_stocks (medicine_id, quantity, unit, expiry_date) VALUES (?, ?, ?, ?)",
		medicineID, quantity, unit, expiry,
	)
	if err != nil {
		return nil, fmt.Errorf("insert stock: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetStock(id)
}

func (s *MedicineStore) GetStock(id int64) (*model.MedicineStock, error) {
	var st model.MedicineStock
	var expiry sql.NullTime
	err := s.db.QueryRow(
		"SELECT id, medicine_id, quantity, unit, expiry_date, created_at, updated_at FROM medicine_stocks WHERE id = ?", id,
	).Scan(&st.ID, &st.MedicineID, &st.Quantity, &st.Unit, &expiry, &st.CreatedAt, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	if expiry.Valid {
		st.ExpiryDate = &expiry.Time
	}
	return &st, nil
}

func (s *MedicineStore) ListStocks(medicineID int64) ([]model.MedicineStock, error) {
	rows, err := s.db.Query(
		"SELECT id, medicine_id, quantity, unit, expiry_date, created_at, updated_at FROM medicine_stocks WHERE medicine_id = ? ORDER BY expiry_date",
		medicineID,
	)
	if err != nil {
		return nil, fmt.Errorf("query stocks: %w", err)
	}
	defer rows.Close()

	var stocks []model.MedicineStock
	for rows.Next() {
		var st model.MedicineStock
		var expiry sql.NullTime
		if err := rows.Scan(&st.ID, &st.MedicineID, &st.Quantity, &st.Unit, &expiry, &st.CreatedAt, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		if expiry.Valid {
			st.ExpiryDate = &expiry.Time
		}
		stocks = append(stocks, st)
	}
	return stocks, rows.Err()
}

func (s *MedicineStore) UpdateStock(id int64, quantity float64, unit string, expiryDate *time.Time) (*model.MedicineStock, error) {
	var expiry any
	if expiryDate != nil {
		expiry = expiryDate.UTC()
	}

	_, err := s.db.Exec(
		"UPDATE medicine_stocks SET quantity = ?, unit = ?, expiry_date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		quantity, unit, expiry, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update stock: %w", err)
	}
	return s.GetStock(id)
}

func (s *MedicineStore) DeleteStock(id int64) error {
	_, err := s.db.Exec("DELETE FROM medicine_stocks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete stock: %w", err)
	}
	return nil
}
