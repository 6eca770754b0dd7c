package models

import "time"

// Tenant is a restaurant account. Every other business entity hangs off a tenant.
type Tenant struct {
	ID         int64     `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Slug       string    `json:"slug" db:"slug"`
	Plan       string    `json:"plan" db:"plan"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	InvoiceSeq int64     `json:"-" db:"invoice_seq"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// TenantUsage counts the plan-limited resources of a tenant.
type TenantUsage struct {
	Users             int `json:"users"`
	Products          int `json:"products"`
	Tables            int `json:"tables"`
	InvoicesThisMonth int `json:"invoices_this_month"`
}
