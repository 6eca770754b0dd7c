package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"restaurant_pos_backend/internal/models"
)

// TableRepository defines the database operations on dining tables.
type TableRepository interface {
	CreateTable(ctx context.Context, executor SQLExecutor, table *models.DiningTable) (int64, error)
	GetTableByID(ctx context.Context, tenantID, id int64) (*models.DiningTable, error)
	LockTable(ctx context.Context, executor SQLExecutor, tenantID, id int64) (*models.DiningTable, error)
	GetTables(ctx context.Context, tenantID int64) ([]models.DiningTable, error)
	UpdateTable(ctx context.Context, executor SQLExecutor, table *models.DiningTable) error
	SetTableStatus(ctx context.Context, executor SQLExecutor, tenantID, id int64, status string) error
	DeleteTable(ctx context.Context, executor SQLExecutor, tenantID, id int64) error
}

type tableRepository struct {
	db *sql.DB
}

// NewTableRepository creates a new instance of TableRepository.
func NewTableRepository(db *sql.DB) TableRepository {
	return &tableRepository{db: db}
}

const tableSelect = `SELECT t.id, t.tenant_id, t.name, t.seats, t.status, t.created_at, t.updated_at, o.id AS open_order_id
	FROM dining_tables t
	LEFT JOIN orders o ON o.table_id = t.id AND o.status = 'open'`

func scanTable(row scanner, t *models.DiningTable) error {
	var openOrderID sql.NullInt64
	if err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Seats, &t.Status, &t.CreatedAt, &t.UpdatedAt, &openOrderID); err != nil {
		return err
	}
	if openOrderID.Valid {
		t.OpenOrderID = &openOrderID.Int64
	}
	return nil
}

func (r *tableRepository) CreateTable(ctx context.Context, executor SQLExecutor, table *models.DiningTable) (int64, error) {
	query := `INSERT INTO dining_tables (tenant_id, name, seats, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $5)
	          RETURNING id`
	now := time.Now()
	if table.Status == "" {
		table.Status = models.TableStatusFree
	}
	err := executor.QueryRowContext(ctx, query, table.TenantID, table.Name, table.Seats, table.Status, now).Scan(&table.ID)
	if err != nil {
		return 0, mapDBError(err, fmt.Sprintf("creating table '%s'", table.Name))
	}
	table.CreatedAt, table.UpdatedAt = now, now
	return table.ID, nil
}

func (r *tableRepository) GetTableByID(ctx context.Context, tenantID, id int64) (*models.DiningTable, error) {
	table := &models.DiningTable{}
	if err := scanTable(r.db.QueryRowContext(ctx, tableSelect+` WHERE t.id = $1 AND t.tenant_id = $2`, id, tenantID), table); err != nil {
		return nil, mapDBError(err, fmt.Sprintf("getting table by ID %d", id))
	}
	return table, nil
}

// LockTable reads the table with a row lock held until the transaction ends.
// Opening and closing orders serialize on this lock.
func (r *tableRepository) LockTable(ctx context.Context, executor SQLExecutor, tenantID, id int64) (*models.DiningTable, error) {
	table := &models.DiningTable{}
	query := `SELECT id, tenant_id, name, seats, status, created_at, updated_at
	          FROM dining_tables WHERE id = $1 AND tenant_id = $2 FOR UPDATE`
	err := executor.QueryRowContext(ctx, query, id, tenantID).Scan(
		&table.ID, &table.TenantID, &table.Name, &table.Seats, &table.Status, &table.CreatedAt, &table.UpdatedAt,
	)
	if err != nil {
		return nil, mapDBError(err, fmt.Sprintf("locking table ID %d", id))
	}
	return table, nil
}

func (r *tableRepository) GetTables(ctx context.Context, tenantID int64) ([]models.DiningTable, error) {
	tables := []models.DiningTable{}
	rows, err := r.db.QueryContext(ctx, tableSelect+` WHERE t.tenant_id = $1 ORDER BY t.name`, tenantID)
	if err != nil {
		return nil, mapDBError(err, "querying tables")
	}
	defer rows.Close()

	for rows.Next() {
		var t models.DiningTable
		if err := scanTable(rows, &t); err != nil {
			return nil, mapDBError(err, "scanning table")
		}
		tables = append(tables, t)
	}
	if err = rows.Err(); err != nil {
		return nil, mapDBError(err, "iterating table rows")
	}
	return tables, nil
}

func (r *tableRepository) UpdateTable(ctx context.Context, executor SQLExecutor, table *models.DiningTable) error {
	table.UpdatedAt = time.Now()
	result, err := executor.ExecContext(ctx, `UPDATE dining_tables SET name = $1, seats = $2, updated_at = $3 WHERE id = $4 AND tenant_id = $5`,
		table.Name, table.Seats, table.UpdatedAt, table.ID, table.TenantID)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("updating table ID %d", table.ID))
	}
	return expectOneRow(result, "table update")
}

func (r *tableRepository) SetTableStatus(ctx context.Context, executor SQLExecutor, tenantID, id int64, status string) error {
	result, err := executor.ExecContext(ctx, `UPDATE dining_tables SET status = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4`,
		status, time.Now(), id, tenantID)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("setting status of table ID %d", id))
	}
	return expectOneRow(result, "table status update")
}

// DeleteTable refuses occupied tables with ErrInUse. Past orders of the table
// lose their table reference.
func (r *tableRepository) DeleteTable(ctx context.Context, executor SQLExecutor, tenantID, id int64) error {
	result, err := executor.ExecContext(ctx, `DELETE FROM dining_tables WHERE id = $1 AND tenant_id = $2 AND status = $3`,
		id, tenantID, models.TableStatusFree)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("deleting table ID %d", id))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for table delete: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		var status string
		err := executor.QueryRowContext(ctx, `SELECT status FROM dining_tables WHERE id = $1 AND tenant_id = $2`, id, tenantID).Scan(&status)
		if err != nil {
			return mapDBError(err, fmt.Sprintf("checking table ID %d", id))
		}
		return fmt.Errorf("%w: table ID %d is %s", ErrInUse, id, status)
	}
	return nil
}
