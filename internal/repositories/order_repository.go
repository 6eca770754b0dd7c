package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"restaurant_pos_backend/internal/models"

	"github.com/lib/pq"
)

// OrderRepository defines the database operations on table orders and their items.
type OrderRepository interface {
	CreateOrder(ctx context.Context, executor SQLExecutor, order *models.Order) (int64, error)
	GetOrderByID(ctx context.Context, executor SQLExecutor, tenantID, id int64) (*models.Order, error)
	LockOrder(ctx context.Context, executor SQLExecutor, tenantID, id int64) (*models.Order, error)
	GetOpenOrderByTable(ctx context.Context, executor SQLExecutor, tenantID, tableID int64) (*models.Order, error)
	GetOrders(ctx context.Context, tenantID int64, filters models.OrderFilters) ([]models.Order, int, error)
	UpdateOrderStatus(ctx context.Context, executor SQLExecutor, tenantID, id int64, from, to string) error

	CreateOrderItem(ctx context.Context, executor SQLExecutor, item *models.OrderItem) (int64, error)
	GetOrderItem(ctx context.Context, executor SQLExecutor, tenantID, orderID, itemID int64) (*models.OrderItem, error)
	GetOrderItems(ctx context.Context, executor SQLExecutor, tenantID, orderID int64) ([]models.OrderItem, error)
	DeleteOrderItem(ctx context.Context, executor SQLExecutor, tenantID, orderID, itemID int64) error
	DispatchPendingItems(ctx context.Context, executor SQLExecutor, tenantID, orderID int64, itemIDs []int64) ([]int64, error)
	MarkItemsInvoiced(ctx context.Context, executor SQLExecutor, tenantID, orderID, invoiceID int64) (int64, error)
	CountItemsPastPending(ctx context.Context, executor SQLExecutor, tenantID, orderID int64) (int, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository.
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) exec(executor SQLExecutor) SQLExecutor {
	if executor == nil {
		return r.db
	}
	return executor
}

const orderSelect = `SELECT o.id, o.tenant_id, o.table_id, o.user_id, o.status, o.notes, o.opened_at, o.closed_at,
	       o.updated_at, t.name AS table_name
	FROM orders o
	LEFT JOIN dining_tables t ON o.table_id = t.id`

func scanOrder(row scanner, o *models.Order, extra ...interface{}) error {
	var tableID, userID sql.NullInt64
	var closedAt sql.NullTime
	dest := []interface{}{&o.ID, &o.TenantID, &tableID, &userID, &o.Status, &o.Notes, &o.OpenedAt, &closedAt,
		&o.UpdatedAt, &o.TableName}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return err
	}
	if tableID.Valid {
		o.TableID = &tableID.Int64
	}
	if userID.Valid {
		o.UserID = &userID.Int64
	}
	if closedAt.Valid {
		o.ClosedAt = &closedAt.Time
	}
	return nil
}

func (r *orderRepository) CreateOrder(ctx context.Context, executor SQLExecutor, order *models.Order) (int64, error) {
	query := `INSERT INTO orders (tenant_id, table_id, user_id, status, notes, opened_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $6)
	          RETURNING id`
	now := time.Now()
	if order.Status == "" {
		order.Status = models.OrderStatusOpen
	}
	err := r.exec(executor).QueryRowContext(ctx, query, order.TenantID, order.TableID, order.UserID, order.Status, order.Notes, now).Scan(&order.ID)
	if err != nil {
		return 0, mapDBError(err, "creating order")
	}
	order.OpenedAt, order.UpdatedAt = now, now
	return order.ID, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, executor SQLExecutor, tenantID, id int64) (*models.Order, error) {
	order := &models.Order{}
	if err := scanOrder(r.exec(executor).QueryRowContext(ctx, orderSelect+` WHERE o.id = $1 AND o.tenant_id = $2`, id, tenantID), order); err != nil {
		return nil, mapDBError(err, fmt.Sprintf("getting order by ID %d", id))
	}
	return order, nil
}

// LockOrder reads the order with a row lock held until the transaction ends.
func (r *orderRepository) LockOrder(ctx context.Context, executor SQLExecutor, tenantID, id int64) (*models.Order, error) {
	order := &models.Order{}
	query := orderSelect + ` WHERE o.id = $1 AND o.tenant_id = $2 FOR UPDATE OF o`
	if err := scanOrder(r.exec(executor).QueryRowContext(ctx, query, id, tenantID), order); err != nil {
		return nil, mapDBError(err, fmt.Sprintf("locking order ID %d", id))
	}
	return order, nil
}

func (r *orderRepository) GetOpenOrderByTable(ctx context.Context, executor SQLExecutor, tenantID, tableID int64) (*models.Order, error) {
	order := &models.Order{}
	query := orderSelect + ` WHERE o.table_id = $1 AND o.tenant_id = $2 AND o.status = $3`
	if err := scanOrder(r.exec(executor).QueryRowContext(ctx, query, tableID, tenantID, models.OrderStatusOpen), order); err != nil {
		return nil, mapDBError(err, fmt.Sprintf("getting open order of table %d", tableID))
	}
	return order, nil
}

func (r *orderRepository) GetOrders(ctx context.Context, tenantID int64, filters models.OrderFilters) ([]models.Order, int, error) {
	orders := []models.Order{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(strings.Replace(orderSelect, "t.name AS table_name", "t.name AS table_name, COUNT(*) OVER() AS total_count", 1))

	conditions := []string{"o.tenant_id = $1"}
	args := []interface{}{tenantID}
	argCounter := 2

	if filters.TableID != nil {
		conditions = append(conditions, fmt.Sprintf("o.table_id = $%d", argCounter))
		args = append(args, *filters.TableID)
		argCounter++
	}
	if filters.Status != nil && *filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argCounter))
		args = append(args, *filters.Status)
		argCounter++
	}

	queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	queryBuilder.WriteString(" ORDER BY o.opened_at DESC")
	limit, args := pageClause(filters.Page, filters.PageSize, argCounter, args)
	queryBuilder.WriteString(limit)

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, mapDBError(err, "querying orders")
	}
	defer rows.Close()

	for rows.Next() {
		var o models.Order
		if err := scanOrder(rows, &o, &totalCount); err != nil {
			return nil, 0, mapDBError(err, "scanning order")
		}
		orders = append(orders, o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, mapDBError(err, "iterating order rows")
	}
	return orders, totalCount, nil
}

// UpdateOrderStatus moves an order from one status to another. An order that is
// no longer in status from yields ErrConflict.
func (r *orderRepository) UpdateOrderStatus(ctx context.Context, executor SQLExecutor, tenantID, id int64, from, to string) error {
	now := time.Now()
	var closedAt interface{}
	if to != models.OrderStatusOpen {
		closedAt = now
	}
	query := `UPDATE orders SET status = $1, closed_at = $2, updated_at = $3
	          WHERE id = $4 AND tenant_id = $5 AND status = $6`
	result, err := r.exec(executor).ExecContext(ctx, query, to, closedAt, now, id, tenantID, from)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("updating status of order ID %d", id))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for order status: %v", ErrDatabaseError, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: order ID %d is not %s", ErrConflict, id, from)
	}
	return nil
}

// --- Order item methods ---

const orderItemColumns = `id, order_id, tenant_id, product_id, invoice_id, product_name, unit_price, quantity, notes,
	status, sent_at, prepared_at, ready_at, served_at, created_at, updated_at`

func scanOrderItem(row scanner, it *models.OrderItem) error {
	var invoiceID sql.NullInt64
	var sentAt, preparedAt, readyAt, servedAt sql.NullTime
	err := row.Scan(&it.ID, &it.OrderID, &it.TenantID, &it.ProductID, &invoiceID, &it.ProductName, &it.UnitPrice,
		&it.Quantity, &it.Notes, &it.Status, &sentAt, &preparedAt, &readyAt, &servedAt, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return err
	}
	if invoiceID.Valid {
		it.InvoiceID = &invoiceID.Int64
	}
	it.SentAt = nullTimePtr(sentAt)
	it.PreparedAt = nullTimePtr(preparedAt)
	it.ReadyAt = nullTimePtr(readyAt)
	it.ServedAt = nullTimePtr(servedAt)
	return nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// CreateOrderItem inserts a pending item. Items born from an invoice carry its InvoiceID.
func (r *orderRepository) CreateOrderItem(ctx context.Context, executor SQLExecutor, item *models.OrderItem) (int64, error) {
	query := `INSERT INTO order_items
	            (order_id, tenant_id, product_id, invoice_id, product_name, unit_price, quantity, notes, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	          RETURNING id`
	now := time.Now()
	item.Status = models.ItemStatusPending
	err := r.exec(executor).QueryRowContext(ctx, query,
		item.OrderID, item.TenantID, item.ProductID, item.InvoiceID, item.ProductName, item.UnitPrice,
		item.Quantity, item.Notes, item.Status, now,
	).Scan(&item.ID)
	if err != nil {
		return 0, mapDBError(err, fmt.Sprintf("adding item to order %d", item.OrderID))
	}
	item.CreatedAt, item.UpdatedAt = now, now
	return item.ID, nil
}

// GetOrderItem loads one item, scoped to its order and tenant.
func (r *orderRepository) GetOrderItem(ctx context.Context, executor SQLExecutor, tenantID, orderID, itemID int64) (*models.OrderItem, error) {
	item := &models.OrderItem{}
	query := `SELECT ` + orderItemColumns + ` FROM order_items WHERE id = $1 AND order_id = $2 AND tenant_id = $3`
	if err := scanOrderItem(r.exec(executor).QueryRowContext(ctx, query, itemID, orderID, tenantID), item); err != nil {
		return nil, mapDBError(err, fmt.Sprintf("getting item %d of order %d", itemID, orderID))
	}
	return item, nil
}

func (r *orderRepository) GetOrderItems(ctx context.Context, executor SQLExecutor, tenantID, orderID int64) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	query := `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 AND tenant_id = $2 ORDER BY id`
	rows, err := r.exec(executor).QueryContext(ctx, query, orderID, tenantID)
	if err != nil {
		return nil, mapDBError(err, fmt.Sprintf("querying items of order %d", orderID))
	}
	defer rows.Close()

	for rows.Next() {
		var it models.OrderItem
		if err := scanOrderItem(rows, &it); err != nil {
			return nil, mapDBError(err, "scanning order item")
		}
		items = append(items, it)
	}
	if err = rows.Err(); err != nil {
		return nil, mapDBError(err, "iterating order item rows")
	}
	return items, nil
}

// DeleteOrderItem removes a pending item. An item already dispatched yields ErrConflict.
func (r *orderRepository) DeleteOrderItem(ctx context.Context, executor SQLExecutor, tenantID, orderID, itemID int64) error {
	ex := r.exec(executor)
	result, err := ex.ExecContext(ctx, `DELETE FROM order_items WHERE id = $1 AND order_id = $2 AND tenant_id = $3 AND status = $4`,
		itemID, orderID, tenantID, models.ItemStatusPending)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("removing item %d from order %d", itemID, orderID))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: getting rows affected for order item delete: %v", ErrDatabaseError, err)
	}
	if rowsAffected > 0 {
		return nil
	}
	var status string
	err = ex.QueryRowContext(ctx, `SELECT status FROM order_items WHERE id = $1 AND order_id = $2 AND tenant_id = $3`,
		itemID, orderID, tenantID).Scan(&status)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("checking item %d", itemID))
	}
	return fmt.Errorf("%w: item ID %d is already %s", ErrConflict, itemID, status)
}

// DispatchPendingItems moves pending items of the order to sent in one guarded UPDATE.
// A nil itemIDs dispatches every pending item. The ids actually moved are returned.
func (r *orderRepository) DispatchPendingItems(ctx context.Context, executor SQLExecutor, tenantID, orderID int64, itemIDs []int64) ([]int64, error) {
	dispatched := []int64{}
	if itemIDs != nil && len(itemIDs) == 0 {
		return dispatched, nil
	}

	now := time.Now()
	query := `UPDATE order_items SET status = $1, sent_at = $2, updated_at = $2
	          WHERE order_id = $3 AND tenant_id = $4 AND status = $5`
	args := []interface{}{models.ItemStatusSent, now, orderID, tenantID, models.ItemStatusPending}
	if itemIDs != nil {
		query += ` AND id = ANY($6)`
		args = append(args, pq.Array(itemIDs))
	}
	query += ` RETURNING id`

	rows, err := r.exec(executor).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapDBError(err, fmt.Sprintf("dispatching items of order %d", orderID))
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapDBError(err, "scanning dispatched item")
		}
		dispatched = append(dispatched, id)
	}
	if err = rows.Err(); err != nil {
		return nil, mapDBError(err, "iterating dispatched items")
	}
	return dispatched, nil
}

// MarkItemsInvoiced stamps every not yet billed item of the order with invoiceID.
func (r *orderRepository) MarkItemsInvoiced(ctx context.Context, executor SQLExecutor, tenantID, orderID, invoiceID int64) (int64, error) {
	result, err := r.exec(executor).ExecContext(ctx,
		`UPDATE order_items SET invoice_id = $1, updated_at = $2 WHERE order_id = $3 AND tenant_id = $4 AND invoice_id IS NULL`,
		invoiceID, time.Now(), orderID, tenantID)
	if err != nil {
		return 0, mapDBError(err, fmt.Sprintf("marking items of order %d as invoiced", orderID))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: getting rows affected for invoiced items: %v", ErrDatabaseError, err)
	}
	return n, nil
}

func (r *orderRepository) CountItemsPastPending(ctx context.Context, executor SQLExecutor, tenantID, orderID int64) (int, error) {
	var count int
	err := r.exec(executor).QueryRowContext(ctx, `SELECT COUNT(*) FROM order_items WHERE order_id = $1 AND tenant_id = $2 AND status <> $3`,
		orderID, tenantID, models.ItemStatusPending).Scan(&count)
	if err != nil {
		return 0, mapDBError(err, fmt.Sprintf("counting dispatched items of order %d", orderID))
	}
	return count, nil
}
