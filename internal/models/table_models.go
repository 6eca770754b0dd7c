package models

import "time"

const (
	TableStatusFree     = "free"
	TableStatusOccupied = "occupied"
)

// DiningTable is a physical table in the restaurant.
type DiningTable struct {
	ID          int64     `json:"id" db:"id"`
	TenantID    int64     `json:"tenant_id" db:"tenant_id"`
	Name        string    `json:"name" db:"name"`
	Seats       int       `json:"seats" db:"seats"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
	OpenOrderID *int64    `json:"open_order_id,omitempty"`
}
