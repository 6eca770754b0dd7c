package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"restaurant_pos_backend/internal/models"

	"github.com/lib/pq"
)

// KitchenRepository reads the kitchen board and moves items through their states.
type KitchenRepository interface {
	GetQueue(ctx context.Context, tenantID int64) ([]models.KitchenTicket, error)
	GetItem(ctx context.Context, executor SQLExecutor, tenantID, itemID int64) (*models.OrderItem, error)
	// AdvanceItem moves an item from -> to. It reports false when the item was not in from.
	AdvanceItem(ctx context.Context, executor SQLExecutor, tenantID, itemID int64, from, to string) (bool, error)
}

type kitchenRepository struct {
	db *sql.DB
}

// NewKitchenRepository creates a new instance of KitchenRepository.
func NewKitchenRepository(db *sql.DB) KitchenRepository {
	return &kitchenRepository{db: db}
}

var queueStatuses = []string{models.ItemStatusSent, models.ItemStatusPreparing, models.ItemStatusReady}

func (r *kitchenRepository) GetQueue(ctx context.Context, tenantID int64) ([]models.KitchenTicket, error) {
	tickets := []models.KitchenTicket{}
	query := `SELECT oi.id, oi.order_id, t.name, oi.product_name, oi.quantity, oi.notes, oi.status, oi.sent_at
	          FROM order_items oi
	          JOIN orders o ON oi.order_id = o.id
	          LEFT JOIN dining_tables t ON o.table_id = t.id
	          WHERE oi.tenant_id = $1 AND oi.status = ANY($2)
	          ORDER BY oi.sent_at ASC NULLS LAST, oi.id ASC`
	rows, err := r.db.QueryContext(ctx, query, tenantID, pq.Array(queueStatuses))
	if err != nil {
		return nil, mapDBError(err, "querying kitchen queue")
	}
	defer rows.Close()

	now := time.Now()
	for rows.Next() {
		var tk models.KitchenTicket
		var sentAt sql.NullTime
		if err := rows.Scan(&tk.ItemID, &tk.OrderID, &tk.TableName, &tk.ProductName, &tk.Quantity, &tk.Notes,
			&tk.Status, &sentAt); err != nil {
			return nil, mapDBError(err, "scanning kitchen ticket")
		}
		if sentAt.Valid {
			tk.SentAt = &sentAt.Time
			tk.ElapsedSeconds = int64(now.Sub(sentAt.Time).Seconds())
		}
		tickets = append(tickets, tk)
	}
	if err = rows.Err(); err != nil {
		return nil, mapDBError(err, "iterating kitchen queue")
	}
	return tickets, nil
}

func (r *kitchenRepository) GetItem(ctx context.Context, executor SQLExecutor, tenantID, itemID int64) (*models.OrderItem, error) {
	if executor == nil {
		executor = r.db
	}
	item := &models.OrderItem{}
	query := `SELECT ` + orderItemColumns + ` FROM order_items WHERE id = $1 AND tenant_id = $2`
	if err := scanOrderItem(executor.QueryRowContext(ctx, query, itemID, tenantID), item); err != nil {
		return nil, mapDBError(err, fmt.Sprintf("getting order item %d", itemID))
	}
	return item, nil
}

func (r *kitchenRepository) AdvanceItem(ctx context.Context, executor SQLExecutor, tenantID, itemID int64, from, to string) (bool, error) {
	if executor == nil {
		executor = r.db
	}
	column := models.ItemStatusTimestampColumn(to)
	if column == "" {
		return false, fmt.Errorf("%w: no timestamp column for status %q", ErrDatabaseError, to)
	}
	// column comes from a fixed whitelist, never from input.
	query := fmt.Sprintf(`UPDATE order_items SET status = $1, %s = $2, updated_at = $2
	                      WHERE id = $3 AND tenant_id = $4 AND status = $5`, column)
	result, err := executor.ExecContext(ctx, query, to, time.Now(), itemID, tenantID, from)
	if err != nil {
		return false, mapDBError(err, fmt.Sprintf("moving item %d to %s", itemID, to))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: getting rows affected for item transition: %v", ErrDatabaseError, err)
	}
	return rowsAffected == 1, nil
}
