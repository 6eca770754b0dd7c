package models

import "time"

// Client represents a customer of the restaurant, referenced by invoices.
type Client struct {
	ID             int64     `json:"id" db:"id"`
	TenantID       int64     `json:"tenant_id" db:"tenant_id"`
	FullName       string    `json:"full_name" db:"full_name"`
	DocumentNumber *string   `json:"document_number,omitempty" db:"document_number"`
	Phone          *string   `json:"phone,omitempty" db:"phone"`
	Email          *string   `json:"email,omitempty" db:"email"`
	Address        *string   `json:"address,omitempty" db:"address"`
	Notes          *string   `json:"notes,omitempty" db:"notes"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
