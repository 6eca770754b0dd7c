package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusOpen      = "open"
	OrderStatusClosed    = "closed"
	OrderStatusCancelled = "cancelled"
)

// Kitchen states of an order item. Items only ever move forward through this list.
const (
	ItemStatusPending   = "pending"
	ItemStatusSent      = "sent"
	ItemStatusPreparing = "preparing"
	ItemStatusReady     = "ready"
	ItemStatusServed    = "served"
)

// itemTransitions maps a target state to the single state it may be reached from.
// pending -> sent is not listed: it only happens through the dispatch operation.
var itemTransitions = map[string]string{
	ItemStatusPreparing: ItemStatusSent,
	ItemStatusReady:     ItemStatusPreparing,
	ItemStatusServed:    ItemStatusReady,
}

// PreviousItemStatus returns the state an item must be in to move to target.
func PreviousItemStatus(target string) (string, bool) {
	from, ok := itemTransitions[target]
	return from, ok
}

// ItemStatusTimestampColumn names the column stamped when an item enters status.
func ItemStatusTimestampColumn(status string) string {
	switch status {
	case ItemStatusSent:
		return "sent_at"
	case ItemStatusPreparing:
		return "prepared_at"
	case ItemStatusReady:
		return "ready_at"
	case ItemStatusServed:
		return "served_at"
	}
	return ""
}

// Order is an open table tab (or a counter order when TableID is nil).
type Order struct {
	ID        int64       `json:"id" db:"id"`
	TenantID  int64       `json:"tenant_id" db:"tenant_id"`
	TableID   *int64      `json:"table_id,omitempty" db:"table_id"`
	UserID    *int64      `json:"user_id,omitempty" db:"user_id"`
	Status    string      `json:"status" db:"status"`
	Notes     *string     `json:"notes,omitempty" db:"notes"`
	OpenedAt  time.Time   `json:"opened_at" db:"opened_at"`
	ClosedAt  *time.Time  `json:"closed_at,omitempty" db:"closed_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
	TableName *string     `json:"table_name,omitempty"`
	Items     []OrderItem `json:"items,omitempty"`
}

// OrderItem is a line of an order travelling through the kitchen.
// InvoiceID is set once the item has been billed.
type OrderItem struct {
	ID          int64           `json:"id" db:"id"`
	OrderID     int64           `json:"order_id" db:"order_id"`
	TenantID    int64           `json:"tenant_id" db:"tenant_id"`
	ProductID   int64           `json:"product_id" db:"product_id"`
	InvoiceID   *int64          `json:"invoice_id,omitempty" db:"invoice_id"`
	ProductName string          `json:"product_name" db:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	Notes       *string         `json:"notes,omitempty" db:"notes"`
	Status      string          `json:"status" db:"status"`
	SentAt      *time.Time      `json:"sent_at,omitempty" db:"sent_at"`
	PreparedAt  *time.Time      `json:"prepared_at,omitempty" db:"prepared_at"`
	ReadyAt     *time.Time      `json:"ready_at,omitempty" db:"ready_at"`
	ServedAt    *time.Time      `json:"served_at,omitempty" db:"served_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderFilters defines the available filters for querying orders.
type OrderFilters struct {
	TableID  *int64
	Status   *string
	Page     int
	PageSize int
}

// KitchenTicket is one entry of the kitchen board.
type KitchenTicket struct {
	ItemID         int64           `json:"item_id"`
	OrderID        int64           `json:"order_id"`
	TableName      *string         `json:"table_name,omitempty"`
	ProductName    string          `json:"product_name"`
	Quantity       decimal.Decimal `json:"quantity"`
	Notes          *string         `json:"notes,omitempty"`
	Status         string          `json:"status"`
	SentAt         *time.Time      `json:"sent_at,omitempty"`
	ElapsedSeconds int64           `json:"elapsed_seconds"`
}
