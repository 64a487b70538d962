package store

import (
	"database/sql"
	"fmt"

	"github.com/FonTain1991/aidkit/internal/model"
)

type KitStore struct {
	db *sql.DB
}

func NewKitStore(db *sql.DB) *KitStore {
	return &KitStore{db: db}
}

func (s *KitStore) Create(name, location string) (*model.Kit, error) {
	var maxOrder int
	err := s.db.QueryRow("SELECT COALESCE(MAX(sort_order), -1) FROM kits").Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	result, err := s.db.Exec(
		"INSERT INTO kits (name, location, sort_order) VALUES (?, ?, ?)",
		name, location, maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("insert kit: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *KitStore) GetByID(id int64) (*model.Kit, error) {
	var k model.Kit
	err := s.db.QueryRow(
		"SELECT id, name, location, sort_order, created_at, updated_at FROM kits WHERE id = ?", id,
	).Scan(&k.ID, &k.Name, &k.Location, &k.SortOrder, &k.CreatedAt, &k.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query kit: %w", err)
	}
	return &k, nil
}

func (s *KitStore) List() ([]model.Kit, error) {
	rows, err := s.db.Query(
		"SELECT id, name, location, sort_order, created_at, updated_at FROM kits ORDER BY sort_order",
	)
	if err != nil {
		return nil, fmt.Errorf("query kits: %w", err)
	}
	defer rows.Close()

	var kits []model.Kit
	for rows.Next() {
		var k model.Kit
		if err := rows.Scan(&k.ID, &k.Name, &k.Location, &k.SortOrder, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan kit: %w", err)
		}
		kits = append(kits, k)
	}
	return kits, rows.Err()
}

func (s *KitStore) Update(id int64, name, location string) (*model.Kit, error) {
	_, err := s.db.Exec(
		"UPDATE kits SET name = ?, location = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		name, location, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update kit: %w", err)
	}
	return s.GetByID(id)
}

func (s *KitStore) Delete(id int64) error {
	_, err := s.db.Exec("DELETE FROM kits WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete kit: %w", err)
	}
	return nil
}
