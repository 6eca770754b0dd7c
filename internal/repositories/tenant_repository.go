package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"restaurant_pos_backend/internal/models"
)

// TenantRepository defines the database operations on restaurant accounts.
type TenantRepository interface {
	CreateTenant(ctx context.Context, executor SQLExecutor, tenant *models.Tenant) (int64, error)
	GetTenantByID(ctx context.Context, id int64) (*models.Tenant, error)
	GetTenants(ctx context.Context, page, pageSize int) ([]models.Tenant, int, error)
	UpdateTenant(ctx context.Context, executor SQLExecutor, tenant *models.Tenant) error
	SetTenantActive(ctx context.Context, executor SQLExecutor, id int64, active bool) error
	NextInvoiceSequence(ctx context.Context, executor SQLExecutor, tenantID int64) (int64, error)
	GetUsage(ctx context.Context, executor SQLExecutor, tenantID int64, monthStart time.Time) (*models.TenantUsage, error)
}

type tenantRepository struct {
	db *sql.DB
}

// NewTenantRepository creates a new instance of TenantRepository.
func NewTenantRepository(db *sql.DB) TenantRepository {
	return &tenantRepository{db: db}
}

const tenantColumns = `id, name, slug, plan, is_active, invoice_seq, created_at, updated_at`

func scanTenant(row scanner, t *models.Tenant, extra ...interface{}) error {
	dest := []interface{}{&t.ID, &t.Name, &t.Slug, &t.Plan, &t.IsActive, &t.InvoiceSeq, &t.CreatedAt, &t.UpdatedAt}
	return row.Scan(append(dest, extra...)...)
}

func (r *tenantRepository) CreateTenant(ctx context.Context, executor SQLExecutor, tenant *models.Tenant) (int64, error) {
	query := `INSERT INTO tenants (name, slug, plan, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $5)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRowContext(ctx, query, tenant.Name, tenant.Slug, tenant.Plan, tenant.IsActive, now).Scan(&tenant.ID)
	if err != nil {
		return 0, mapDBError(err, "creating tenant")
	}
	tenant.CreatedAt, tenant.UpdatedAt = now, now
	return tenant.ID, nil
}

func (r *tenantRepository) GetTenantByID(ctx context.Context, id int64) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	if err := scanTenant(r.db.QueryRowContext(ctx, query, id), tenant); err != nil {
		return nil, mapDBError(err, fmt.Sprintf("getting tenant by ID %d", id))
	}
	return tenant, nil
}

func (r *tenantRepository) GetTenants(ctx context.Context, page, pageSize int) ([]models.Tenant, int, error) {
	tenants := []models.Tenant{}
	totalCount := 0

	query := `SELECT ` + tenantColumns + `, COUNT(*) OVER() AS total_count FROM tenants ORDER BY name`
	limit, args := pageClause(page, pageSize, 1, nil)
	rows, err := r.db.QueryContext(ctx, query+limit, args...)
	if err != nil {
		return nil, 0, mapDBError(err, "querying tenants")
	}
	defer rows.Close()

	for rows.Next() {
		var t models.Tenant
		if err := scanTenant(rows, &t, &totalCount); err != nil {
			return nil, 0, mapDBError(err, "scanning tenant")
		}
		tenants = append(tenants, t)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, mapDBError(err, "iterating tenant rows")
	}
	return tenants, totalCount, nil
}

func (r *tenantRepository) UpdateTenant(ctx context.Context, executor SQLExecutor, tenant *models.Tenant) error {
	query := `UPDATE tenants SET name = $1, plan = $2, updated_at = $3 WHERE id = $4`
	tenant.UpdatedAt = time.Now()
	result, err := executor.ExecContext(ctx, query, tenant.Name, tenant.Plan, tenant.UpdatedAt, tenant.ID)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("updating tenant ID %d", tenant.ID))
	}
	return expectOneRow(result, "tenant update")
}

func (r *tenantRepository) SetTenantActive(ctx context.Context, executor SQLExecutor, id int64, active bool) error {
	result, err := executor.ExecContext(ctx, `UPDATE tenants SET is_active = $1, updated_at = $2 WHERE id = $3`, active, time.Now(), id)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("setting active flag of tenant ID %d", id))
	}
	return expectOneRow(result, "tenant activation")
}

// NextInvoiceSequence bumps the tenant's counter. The UPDATE holds the tenant row lock
// until the surrounding transaction ends, so concurrent invoices get distinct numbers.
func (r *tenantRepository) NextInvoiceSequence(ctx context.Context, executor SQLExecutor, tenantID int64) (int64, error) {
	var seq int64
	err := executor.QueryRowContext(ctx, `UPDATE tenants SET invoice_seq = invoice_seq + 1 WHERE id = $1 RETURNING invoice_seq`, tenantID).Scan(&seq)
	if err != nil {
		return 0, mapDBError(err, fmt.Sprintf("issuing invoice number for tenant %d", tenantID))
	}
	return seq, nil
}

func (r *tenantRepository) GetUsage(ctx context.Context, executor SQLExecutor, tenantID int64, monthStart time.Time) (*models.TenantUsage, error) {
	usage := &models.TenantUsage{}
	query := `SELECT
	            (SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND is_active = TRUE),
	            (SELECT COUNT(*) FROM products WHERE tenant_id = $1 AND is_active = TRUE),
	            (SELECT COUNT(*) FROM dining_tables WHERE tenant_id = $1),
	            (SELECT COUNT(*) FROM invoices WHERE tenant_id = $1 AND issued_at >= $2)`
	err := executor.QueryRowContext(ctx, query, tenantID, monthStart).Scan(
		&usage.Users, &usage.Products, &usage.Tables, &usage.InvoicesThisMonth,
	)
	if err != nil {
		return nil, mapDBError(err, fmt.Sprintf("counting usage of tenant %d", tenantID))
	}
	return usage, nil
}
