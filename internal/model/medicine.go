package model

import "time"

type Kit struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Medicine struct {
	ID        int64     `json:"id"`
	KitID     int64     `json:"kit_id"`
	Name      string    `json:"name"`
	Form      string    `json:"form"`
	Dose      string    `json:"dose"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MedicineStock struct {
	ID         int64      `json:"id"`
	MedicineID int64      `json:"medicine_id"`
	Quantity   float64    `json:"quantity"`
	Unit       string     `json:"unit"`
	ExpiryDate *time.Time `json:"expiry_date"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
