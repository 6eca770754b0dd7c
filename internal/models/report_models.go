package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySales aggregates paid invoices per calendar day.
type DailySales struct {
	Date         string          `json:"date"`
	InvoiceCount int             `json:"invoice_count"`
	Total        decimal.Decimal `json:"total"`
}

// ProductSales aggregates invoice lines per product.
type ProductSales struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	Total       decimal.Decimal `json:"total"`
}

// PaymentMethodSales aggregates payment legs per method.
type PaymentMethodSales struct {
	Method string          `json:"method"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// SalesReport bundles the three breakdowns for one date range.
type SalesReport struct {
	From     time.Time            `json:"from"`
	To       time.Time            `json:"to"`
	Total    decimal.Decimal      `json:"total"`
	Daily    []DailySales         `json:"daily"`
	Products []ProductSales       `json:"products"`
	Methods  []PaymentMethodSales `json:"payment_methods"`
}

// DashboardSummary holds key metrics for the dashboard.
type DashboardSummary struct {
	SalesToday     decimal.Decimal `json:"sales_today"`
	InvoicesToday  int             `json:"invoices_today"`
	SalesThisMonth decimal.Decimal `json:"sales_this_month"`
	OpenOrders     int             `json:"open_orders"`
	KitchenBacklog int             `json:"kitchen_backlog"`
	OccupiedTables int             `json:"occupied_tables"`
}
