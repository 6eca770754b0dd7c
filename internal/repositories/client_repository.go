package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"restaurant_pos_backend/internal/models"
)

// ClientRepository defines the database operations on clients.
type ClientRepository interface {
	CreateClient(ctx context.Context, executor SQLExecutor, client *models.Client) (int64, error)
	GetClientByID(ctx context.Context, executor SQLExecutor, tenantID, id int64) (*models.Client, error)
	GetClients(ctx context.Context, tenantID int64, search string, page, pageSize int) ([]models.Client, int, error)
	UpdateClient(ctx context.Context, executor SQLExecutor, client *models.Client) error
	DeleteClient(ctx context.Context, executor SQLExecutor, tenantID, id int64) error
}

type clientRepository struct {
	db *sql.DB
}

// NewClientRepository creates a new instance of ClientRepository.
func NewClientRepository(db *sql.DB) ClientRepository {
	return &clientRepository{db: db}
}

const clientColumns = `id, tenant_id, full_name, document_number, phone, email, address, notes, created_at, updated_at`

func scanClient(row scanner, c *models.Client, extra ...interface{}) error {
	dest := []interface{}{&c.ID, &c.TenantID, &c.FullName, &c.DocumentNumber, &c.Phone, &c.Email,
		&c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt}
	return row.Scan(append(dest, extra...)...)
}

func (r *clientRepository) CreateClient(ctx context.Context, executor SQLExecutor, client *models.Client) (int64, error) {
	query := `INSERT INTO clients (tenant_id, full_name, document_number, phone, email, address, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRowContext(ctx, query,
		client.TenantID, client.FullName, client.DocumentNumber, client.Phone, client.Email,
		client.Address, client.Notes, now,
	).Scan(&client.ID)
	if err != nil {
		return 0, mapDBError(err, "creating client")
	}
	client.CreatedAt, client.UpdatedAt = now, now
	return client.ID, nil
}

// GetClientByID takes an executor so invoice creation can check the client inside its transaction.
func (r *clientRepository) GetClientByID(ctx context.Context, executor SQLExecutor, tenantID, id int64) (*models.Client, error) {
	if executor == nil {
		executor = r.db
	}
	client := &models.Client{}
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1 AND tenant_id = $2`
	if err := scanClient(executor.QueryRowContext(ctx, query, id, tenantID), client); err != nil {
		return nil, mapDBError(err, fmt.Sprintf("getting client by ID %d", id))
	}
	return client, nil
}

func (r *clientRepository) GetClients(ctx context.Context, tenantID int64, search string, page, pageSize int) ([]models.Client, int, error) {
	clients := []models.Client{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + clientColumns + `, COUNT(*) OVER() AS total_count FROM clients WHERE tenant_id = $1`)
	args := []interface{}{tenantID}
	argCounter := 2

	if search = strings.TrimSpace(search); search != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND (full_name ILIKE $%d OR document_number ILIKE $%d OR phone ILIKE $%d)",
			argCounter, argCounter, argCounter))
		args = append(args, "%"+search+"%")
		argCounter++
	}
	queryBuilder.WriteString(" ORDER BY full_name")
	limit, args := pageClause(page, pageSize, argCounter, args)
	queryBuilder.WriteString(limit)

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, mapDBError(err, "querying clients")
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Client
		if err := scanClient(rows, &c, &totalCount); err != nil {
			return nil, 0, mapDBError(err, "scanning client")
		}
		clients = append(clients, c)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, mapDBError(err, "iterating client rows")
	}
	return clients, totalCount, nil
}

func (r *clientRepository) UpdateClient(ctx context.Context, executor SQLExecutor, client *models.Client) error {
	query := `UPDATE clients SET full_name = $1, document_number = $2, phone = $3, email = $4, address = $5,
	            notes = $6, updated_at = $7
	          WHERE id = $8 AND tenant_id = $9`
	client.UpdatedAt = time.Now()
	result, err := executor.ExecContext(ctx, query,
		client.FullName, client.DocumentNumber, client.Phone, client.Email, client.Address,
		client.Notes, client.UpdatedAt, client.ID, client.TenantID,
	)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("updating client ID %d", client.ID))
	}
	return expectOneRow(result, "client update")
}

// DeleteClient removes a client. Invoices referencing the client make it fail with ErrInUse.
func (r *clientRepository) DeleteClient(ctx context.Context, executor SQLExecutor, tenantID, id int64) error {
	result, err := executor.ExecContext(ctx, `DELETE FROM clients WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		mapped := mapDBError(err, fmt.Sprintf("deleting client ID %d", id))
		if isForeignKey(mapped) {
			return fmt.Errorf("%w: %w", ErrInUse, mapped)
		}
		return mapped
	}
	return expectOneRow(result, "client delete")
}
