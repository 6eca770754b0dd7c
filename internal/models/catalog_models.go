package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale units for products.
const (
	UnitKg    = "kg"
	UnitUnit  = "unit"
	UnitPound = "lb"
)

// IsValidUnit reports whether u is a known sale unit.
func IsValidUnit(u string) bool {
	return u == UnitKg || u == UnitUnit || u == UnitPound
}

// Category groups products in the catalog.
type Category struct {
	ID          int64     `json:"id" db:"id"`
	TenantID    int64     `json:"tenant_id" db:"tenant_id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Product is a sellable catalog item priced per kg, unit or pound.
type Product struct {
	ID             int64           `json:"id" db:"id"`
	TenantID       int64           `json:"tenant_id" db:"tenant_id"`
	CategoryID     *int64          `json:"category_id,omitempty" db:"category_id"`
	Name           string          `json:"name" db:"name"`
	SKU            *string         `json:"sku,omitempty" db:"sku"`
	Description    *string         `json:"description,omitempty" db:"description"`
	Price          decimal.Decimal `json:"price" db:"price"`
	Unit           string          `json:"unit" db:"unit"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	SendsToKitchen bool            `json:"sends_to_kitchen" db:"sends_to_kitchen"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
	CategoryName   *string         `json:"category_name,omitempty"`
}

// ProductFilters narrows product listings.
type ProductFilters struct {
	CategoryID *int64
	Active     *bool
	Search     *string
	Page       int
	PageSize   int
}
