package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment methods. PaymentMixed is only valid on the invoice header.
const (
	PaymentCash     = "cash"
	PaymentCard     = "card"
	PaymentTransfer = "transfer"
	PaymentMixed    = "mixed"
)

const (
	InvoiceStatusPaid   = "paid"
	InvoiceStatusVoided = "voided"
)

// IsValidPaymentMethod accepts any header method, including mixed.
func IsValidPaymentMethod(m string) bool {
	return IsValidSplitMethod(m) || m == PaymentMixed
}

// IsValidSplitMethod accepts the methods a single payment record may carry.
func IsValidSplitMethod(m string) bool {
	return m == PaymentCash || m == PaymentCard || m == PaymentTransfer
}

// Invoice is a sale document. Total equals the sum of item subtotals and the sum of payments.
type Invoice struct {
	ID            int64            `json:"id" db:"id"`
	TenantID      int64            `json:"tenant_id" db:"tenant_id"`
	Number        string           `json:"number" db:"number"`
	ClientID      int64            `json:"client_id" db:"client_id"`
	UserID        *int64           `json:"user_id,omitempty" db:"user_id"`
	OrderID       *int64           `json:"order_id,omitempty" db:"order_id"`
	Subtotal      decimal.Decimal  `json:"subtotal" db:"subtotal"`
	Total         decimal.Decimal  `json:"total" db:"total"`
	PaymentMethod string           `json:"payment_method" db:"payment_method"`
	Status        string           `json:"status" db:"status"`
	VoidReason    *string          `json:"void_reason,omitempty" db:"void_reason"`
	Notes         *string          `json:"notes,omitempty" db:"notes"`
	IssuedAt      time.Time        `json:"issued_at" db:"issued_at"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
	ClientName    *string          `json:"client_name,omitempty"`
	Items         []InvoiceItem    `json:"items,omitempty"`
	Payments      []InvoicePayment `json:"payments,omitempty"`
}

// InvoiceItem snapshots the product at the time of sale.
type InvoiceItem struct {
	ID          int64           `json:"id" db:"id"`
	InvoiceID   int64           `json:"invoice_id" db:"invoice_id"`
	ProductID   int64           `json:"product_id" db:"product_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	Unit        string          `json:"unit" db:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal" db:"subtotal"`
}

// InvoicePayment is one leg of the settlement of an invoice.
type InvoicePayment struct {
	ID        int64           `json:"id" db:"id"`
	InvoiceID int64           `json:"invoice_id" db:"invoice_id"`
	Method    string          `json:"method" db:"method"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	Reference *string         `json:"reference,omitempty" db:"reference"`
}

// InvoiceFilters narrows invoice listings. Dates are inclusive calendar days.
type InvoiceFilters struct {
	From          *time.Time
	To            *time.Time
	ClientID      *int64
	PaymentMethod *string
	Status        *string
	Page          int
	PageSize      int
}
