package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"restaurant_pos_backend/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ReportRepository runs the aggregate queries behind the dashboard and sales reports.
// Only paid invoices count as sales.
type ReportRepository interface {
	GetSalesTotals(ctx context.Context, tenantID int64, from, to time.Time) (decimal.Decimal, int, error)
	CountOpenOrders(ctx context.Context, tenantID int64) (int, error)
	CountKitchenBacklog(ctx context.Context, tenantID int64) (int, error)
	CountOccupiedTables(ctx context.Context, tenantID int64) (int, error)
	GetDailySales(ctx context.Context, tenantID int64, from, to time.Time) ([]models.DailySales, error)
	GetProductSales(ctx context.Context, tenantID int64, from, to time.Time) ([]models.ProductSales, error)
	GetPaymentMethodSales(ctx context.Context, tenantID int64, from, to time.Time) ([]models.PaymentMethodSales, error)
}

type reportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new instance of ReportRepository.
func NewReportRepository(db *sql.DB) ReportRepository {
	return &reportRepository{db: db}
}

// GetSalesTotals sums paid invoices issued in [from, to).
func (r *reportRepository) GetSalesTotals(ctx context.Context, tenantID int64, from, to time.Time) (decimal.Decimal, int, error) {
	var total decimal.Decimal
	var count int
	query := `SELECT COALESCE(SUM(total), 0), COUNT(*) FROM invoices
	          WHERE tenant_id = $1 AND status = $2 AND issued_at >= $3 AND issued_at < $4`
	err := r.db.QueryRowContext(ctx, query, tenantID, models.InvoiceStatusPaid, from, to).Scan(&total, &count)
	if err != nil {
		return decimal.Zero, 0, mapDBError(err, "summing sales")
	}
	return total, count, nil
}

func (r *reportRepository) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *reportRepository) CountOpenOrders(ctx context.Context, tenantID int64) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM orders WHERE tenant_id = $1 AND status = $2`, tenantID, models.OrderStatusOpen)
	if err != nil {
		return 0, mapDBError(err, "counting open orders")
	}
	return n, nil
}

func (r *reportRepository) CountKitchenBacklog(ctx context.Context, tenantID int64) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM order_items WHERE tenant_id = $1 AND status = ANY($2)`,
		tenantID, pq.Array(queueStatuses))
	if err != nil {
		return 0, mapDBError(err, "counting kitchen backlog")
	}
	return n, nil
}

func (r *reportRepository) CountOccupiedTables(ctx context.Context, tenantID int64) (int, error) {
	n, err := r.count(ctx, `SELECT COUNT(*) FROM dining_tables WHERE tenant_id = $1 AND status = $2`, tenantID, models.TableStatusOccupied)
	if err != nil {
		return 0, mapDBError(err, "counting occupied tables")
	}
	return n, nil
}

func (r *reportRepository) GetDailySales(ctx context.Context, tenantID int64, from, to time.Time) ([]models.DailySales, error) {
	daily := []models.DailySales{}
	query := `SELECT TO_CHAR(DATE(issued_at), 'YYYY-MM-DD') AS day, COUNT(*), COALESCE(SUM(total), 0)
	          FROM invoices
	          WHERE tenant_id = $1 AND status = $2 AND issued_at >= $3 AND issued_at < $4
	          GROUP BY DATE(issued_at)
	          ORDER BY DATE(issued_at)`
	rows, err := r.db.QueryContext(ctx, query, tenantID, models.InvoiceStatusPaid, from, to)
	if err != nil {
		return nil, mapDBError(err, "querying daily sales")
	}
	defer rows.Close()

	for rows.Next() {
		var d models.DailySales
		if err := rows.Scan(&d.Date, &d.InvoiceCount, &d.Total); err != nil {
			return nil, mapDBError(err, "scanning daily sales")
		}
		daily = append(daily, d)
	}
	if err = rows.Err(); err != nil {
		return nil, mapDBError(err, "iterating daily sales")
	}
	return daily, nil
}

func (r *reportRepository) GetProductSales(ctx context.Context, tenantID int64, from, to time.Time) ([]models.ProductSales, error) {
	products := []models.ProductSales{}
	query := `SELECT ii.product_id, MAX(ii.product_name), MAX(ii.unit), SUM(ii.quantity), SUM(ii.subtotal)
	          FROM invoice_items ii
	          JOIN invoices i ON ii.invoice_id = i.id
	          WHERE i.tenant_id = $1 AND i.status = $2 AND i.issued_at >= $3 AND i.issued_at < $4
	          GROUP BY ii.product_id
	          ORDER BY SUM(ii.subtotal) DESC`
	rows, err := r.db.QueryContext(ctx, query, tenantID, models.InvoiceStatusPaid, from, to)
	if err != nil {
		return nil, mapDBError(err, "querying product sales")
	}
	defer rows.Close()

	for rows.Next() {
		var p models.ProductSales
		if err := rows.Scan(&p.ProductID, &p.ProductName, &p.Unit, &p.Quantity, &p.Total); err != nil {
			return nil, mapDBError(err, "scanning product sales")
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, mapDBError(err, "iterating product sales")
	}
	return products, nil
}

func (r *reportRepository) GetPaymentMethodSales(ctx context.Context, tenantID int64, from, to time.Time) ([]models.PaymentMethodSales, error) {
	methods := []models.PaymentMethodSales{}
	query := `SELECT p.method, COUNT(*), SUM(p.amount)
	          FROM invoice_payments p
	          JOIN invoices i ON p.invoice_id = i.id
	          WHERE i.tenant_id = $1 AND i.status = $2 AND i.issued_at >= $3 AND i.issued_at < $4
	          GROUP BY p.method
	          ORDER BY p.method`
	rows, err := r.db.QueryContext(ctx, query, tenantID, models.InvoiceStatusPaid, from, to)
	if err != nil {
		return nil, mapDBError(err, fmt.Sprintf("querying payment method sales for tenant %d", tenantID))
	}
	defer rows.Close()

	for rows.Next() {
		var m models.PaymentMethodSales
		if err := rows.Scan(&m.Method, &m.Count, &m.Total); err != nil {
			return nil, mapDBError(err, "scanning payment method sales")
		}
		methods = append(methods, m)
	}
	if err = rows.Err(); err != nil {
		return nil, mapDBError(err, "iterating payment method sales")
	}
	return methods, nil
}
