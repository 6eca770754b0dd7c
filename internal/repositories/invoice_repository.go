package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"restaurant_pos_backend/internal/models"
)

// InvoiceRepository defines the database operations on invoices, their items and payments.
type InvoiceRepository interface {
	CreateInvoice(ctx context.Context, executor SQLExecutor, invoice *models.Invoice) (int64, error)
	CreateInvoiceItem(ctx context.Context, executor SQLExecutor, item *models.InvoiceItem) (int64, error)
	CreateInvoicePayment(ctx context.Context, executor SQLExecutor, payment *models.InvoicePayment) (int64, error)
	GetInvoiceByID(ctx context.Context, executor SQLExecutor, tenantID, id int64) (*models.Invoice, error)
	GetInvoiceItems(ctx context.Context, executor SQLExecutor, invoiceID int64) ([]models.InvoiceItem, error)
	GetInvoicePayments(ctx context.Context, executor SQLExecutor, invoiceID int64) ([]models.InvoicePayment, error)
	GetInvoices(ctx context.Context, tenantID int64, filters models.InvoiceFilters) ([]models.Invoice, int, error)
	VoidInvoice(ctx context.Context, executor SQLExecutor, tenantID, id int64, reason string) error
	IsClientReferenced(ctx context.Context, tenantID, clientID int64) (bool, error)
}

type invoiceRepository struct {
	db *sql.DB
}

// NewInvoiceRepository creates a new instance of InvoiceRepository.
func NewInvoiceRepository(db *sql.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) exec(executor SQLExecutor) SQLExecutor {
	if executor == nil {
		return r.db
	}
	return executor
}

const invoiceSelect = `SELECT i.id, i.tenant_id, i.number, i.client_id, i.user_id, i.order_id, i.subtotal, i.total,
	       i.payment_method, i.status, i.void_reason, i.notes, i.issued_at, i.created_at, i.updated_at,
	       c.full_name AS client_name
	FROM invoices i
	LEFT JOIN clients c ON i.client_id = c.id`

func scanInvoice(row scanner, inv *models.Invoice, extra ...interface{}) error {
	var userID, orderID sql.NullInt64
	dest := []interface{}{&inv.ID, &inv.TenantID, &inv.Number, &inv.ClientID, &userID, &orderID, &inv.Subtotal,
		&inv.Total, &inv.PaymentMethod, &inv.Status, &inv.VoidReason, &inv.Notes, &inv.IssuedAt, &inv.CreatedAt,
		&inv.UpdatedAt, &inv.ClientName}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	if userID.Valid {
		inv.UserID = &userID.Int64
	}
	if orderID.Valid {
		inv.OrderID = &orderID.Int64
	}
	return nil
}

// CreateInvoice inserts the invoice header only. Items and payments are inserted separately
// inside the same transaction.
func (r *invoiceRepository) CreateInvoice(ctx context.Context, executor SQLExecutor, invoice *models.Invoice) (int64, error) {
	query := `INSERT INTO invoices
	            (tenant_id, number, client_id, user_id, order_id, subtotal, total, payment_method, status, notes,
	             issued_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11, $11)
	          RETURNING id`
	now := time.Now()
	if invoice.Status == "" {
		invoice.Status = models.InvoiceStatusPaid
	}
	err := r.exec(executor).QueryRowContext(ctx, query,
		invoice.TenantID, invoice.Number, invoice.ClientID, invoice.UserID, invoice.OrderID, invoice.Subtotal,
		invoice.Total, invoice.PaymentMethod, invoice.Status, invoice.Notes, now,
	).Scan(&invoice.ID)
	if err != nil {
		return 0, mapDBError(err, fmt.Sprintf("creating invoice %s", invoice.Number))
	}
	invoice.IssuedAt, invoice.CreatedAt, invoice.UpdatedAt = now, now, now
	return invoice.ID, nil
}

func (r *invoiceRepository) CreateInvoiceItem(ctx context.Context, executor SQLExecutor, item *models.InvoiceItem) (int64, error) {
	query := `INSERT INTO invoice_items (invoice_id, product_id, product_name, unit, unit_price, quantity, subtotal)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	err := r.exec(executor).QueryRowContext(ctx, query,
		item.InvoiceID, item.ProductID, item.ProductName, item.Unit, item.UnitPrice, item.Quantity, item.Subtotal,
	).Scan(&item.ID)
	if err != nil {
		return 0, mapDBError(err, fmt.Sprintf("adding item to invoice %d", item.InvoiceID))
	}
	return item.ID, nil
}

func (r *invoiceRepository) CreateInvoicePayment(ctx context.Context, executor SQLExecutor, payment *models.InvoicePayment) (int64, error) {
	query := `INSERT INTO invoice_payments (invoice_id, method, amount, reference)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`
	err := r.exec(executor).QueryRowContext(ctx, query, payment.InvoiceID, payment.Method, payment.Amount, payment.Reference).Scan(&payment.ID)
	if err != nil {
		return 0, mapDBError(err, fmt.Sprintf("adding payment to invoice %d", payment.InvoiceID))
	}
	return payment.ID, nil
}

func (r *invoiceRepository) GetInvoiceByID(ctx context.Context, executor SQLExecutor, tenantID, id int64) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	query := invoiceSelect + ` WHERE i.id = $1 AND i.tenant_id = $2`
	if err := scanInvoice(r.exec(executor).QueryRowContext(ctx, query, id, tenantID), invoice); err != nil {
		return nil, mapDBError(err, fmt.Sprintf("getting invoice by ID %d", id))
	}
	return invoice, nil
}

func (r *invoiceRepository) GetInvoiceItems(ctx context.Context, executor SQLExecutor, invoiceID int64) ([]models.InvoiceItem, error) {
	items := []models.InvoiceItem{}
	query := `SELECT id, invoice_id, product_id, product_name, unit, unit_price, quantity, subtotal
	          FROM invoice_items WHERE invoice_id = $1 ORDER BY id`
	rows, err := r.exec(executor).QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, mapDBError(err, fmt.Sprintf("querying items of invoice %d", invoiceID))
	}
	defer rows.Close()

	for rows.Next() {
		var it models.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ProductID, &it.ProductName, &it.Unit, &it.UnitPrice,
			&it.Quantity, &it.Subtotal); err != nil {
			return nil, mapDBError(err, "scanning invoice item")
		}
		items = append(items, it)
	}
	if err = rows.Err(); err != nil {
		return nil, mapDBError(err, "iterating invoice item rows")
	}
	return items, nil
}

func (r *invoiceRepository) GetInvoicePayments(ctx context.Context, executor SQLExecutor, invoiceID int64) ([]models.InvoicePayment, error) {
	payments := []models.InvoicePayment{}
	query := `SELECT id, invoice_id, method, amount, reference FROM invoice_payments WHERE invoice_id = $1 ORDER BY id`
	rows, err := r.exec(executor).QueryContext(ctx, query, invoiceID)
	if err != nil {
		return nil, mapDBError(err, fmt.Sprintf("querying payments of invoice %d", invoiceID))
	}
	defer rows.Close()

	for rows.Next() {
		var p models.InvoicePayment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Method, &p.Amount, &p.Reference); err != nil {
			return nil, mapDBError(err, "scanning invoice payment")
		}
		payments = append(payments, p)
	}
	if err = rows.Err(); err != nil {
		return nil, mapDBError(err, "iterating invoice payment rows")
	}
	return payments, nil
}

func (r *invoiceRepository) GetInvoices(ctx context.Context, tenantID int64, filters models.InvoiceFilters) ([]models.Invoice, int, error) {
	invoices := []models.Invoice{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(strings.Replace(invoiceSelect, "c.full_name AS client_name", "c.full_name AS client_name, COUNT(*) OVER() AS total_count", 1))

	conditions := []string{"i.tenant_id = $1"}
	args := []interface{}{tenantID}
	argCounter := 2

	if filters.From != nil {
		conditions = append(conditions, fmt.Sprintf("i.issued_at >= $%d", argCounter))
		args = append(args, *filters.From)
		argCounter++
	}
	if filters.To != nil {
		// To is inclusive: everything before the start of the following day.
		conditions = append(conditions, fmt.Sprintf("i.issued_at < $%d", argCounter))
		args = append(args, filters.To.AddDate(0, 0, 1))
		argCounter++
	}
	if filters.ClientID != nil {
		conditions = append(conditions, fmt.Sprintf("i.client_id = $%d", argCounter))
		args = append(args, *filters.ClientID)
		argCounter++
	}
	if filters.PaymentMethod != nil && *filters.PaymentMethod != "" {
		conditions = append(conditions, fmt.Sprintf("i.payment_method = $%d", argCounter))
		args = append(args, *filters.PaymentMethod)
		argCounter++
	}
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", argCounter))
		args = append(args, *filters.Status)
		argCounter++
	}

	queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	queryBuilder.WriteString(" ORDER BY i.issued_at DESC, i.id DESC")
	limit, args := pageClause(filters.Page, filters.PageSize, argCounter, args)
	queryBuilder.WriteString(limit)

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, mapDBError(err, "querying invoices")
	}
	defer rows.Close()

	for rows.Next() {
		var inv models.Invoice
		if err := scanInvoice(rows, &inv, &totalCount); err != nil {
			return nil, 0, mapDBError(err, "scanning invoice")
		}
		invoices = append(invoices, inv)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, mapDBError(err, "iterating invoice rows")
	}
	return invoices, totalCount, nil
}

// VoidInvoice moves a paid invoice to voided. An invoice that is already voided yields ErrConflict.
func (r *invoiceRepository) VoidInvoice(ctx context.Context, executor SQLExecutor, tenantID, id int64, reason string) error {
	ex := r.exec(executor)
	query := `UPDATE invoices SET status = $1, void_reason = $2, updated_at = $3
	          WHERE id = $4 AND tenant_id = $5 AND status = $6`
	result, err := ex.ExecContext(ctx, query, models.InvoiceStatusVoided, reason, time.Now(), id, tenantID, models.InvoiceStatusPaid)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("voiding invoice ID %d", id))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for invoice void: %v", ErrDatabaseError, err)
	}
	if rowsAffected > 0 {
		return nil
	}
	var status string
	if err := ex.QueryRowContext(ctx, `SELECT status FROM invoices WHERE id = $1 AND tenant_id = $2`, id, tenantID).Scan(&status); err != nil {
		return mapDBError(err, fmt.Sprintf("checking invoice ID %d", id))
	}
	return fmt.Errorf("%w: invoice ID %d is already %s", ErrConflict, id, status)
}

func (r *invoiceRepository) IsClientReferenced(ctx context.Context, tenantID, clientID int64) (bool, error) {
	var referenced bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE client_id = $1 AND tenant_id = $2)`,
		clientID, tenantID).Scan(&referenced)
	if err != nil {
		return false, mapDBError(err, fmt.Sprintf("checking invoices of client %d", clientID))
	}
	return referenced, nil
}
