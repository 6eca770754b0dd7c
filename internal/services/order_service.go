package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/notifier"
	"restaurant_pos_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderNotOpen         = errors.New("order is not open")
	ErrItemAlreadySent      = errors.New("item has already been sent to the kitchen")
	ErrNothingToSend        = errors.New("order has no pending items")
	ErrOrderHasKitchenItems = errors.New("order has items already sent to the kitchen")
	ErrItemNotInOrder       = errors.New("item does not belong to this order")
)

// --- Order DTOs ---

type OpenOrderRequest struct {
	TableID *int64  `json:"table_id"`
	Notes   *string `json:"notes"`
}

type OrderItemRequest struct {
	ProductID int64           `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	Notes     *string         `json:"notes" binding:"omitempty,max=300"`
}

type AddItemsRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// --- OrderService Interface ---
type OrderService interface {
	OpenOrder(ctx context.Context, tenantID, userID int64, req OpenOrderRequest) (*models.Order, error)
	AddItems(ctx context.Context, tenantID, orderID int64, req AddItemsRequest) (*models.Order, error)
	RemoveItem(ctx context.Context, tenantID, orderID, itemID int64) (*models.Order, error)
	SendToKitchen(ctx context.Context, tenantID, orderID int64) (*models.Order, error)
	MarkServed(ctx context.Context, tenantID int64, role string, orderID, itemID int64) (*models.OrderItem, error)
	Checkout(ctx context.Context, tenantID, userID, orderID int64, req CheckoutRequest) (*CheckoutResult, error)
	CancelOrder(ctx context.Context, tenantID, orderID int64) (*models.Order, error)
	GetOrders(ctx context.Context, tenantID int64, filters models.OrderFilters) ([]models.Order, int, error)
	GetOrderByID(ctx context.Context, tenantID, orderID int64) (*models.Order, error)
}

// --- orderService Implementation ---
type orderService struct {
	orderRepo   repositories.OrderRepository
	tableRepo   repositories.TableRepository
	catalogRepo repositories.CatalogRepository
	invoices    InvoiceService
	kitchen     KitchenService
	events      notifier.Notifier
	db          *sql.DB
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	tableRepo repositories.TableRepository,
	catalogRepo repositories.CatalogRepository,
	invoices InvoiceService,
	kitchen KitchenService,
	events notifier.Notifier,
	db *sql.DB,
) OrderService {
	if events == nil {
		events = notifier.Noop{}
	}
	return &orderService{
		orderRepo:   orderRepo,
		tableRepo:   tableRepo,
		catalogRepo: catalogRepo,
		invoices:    invoices,
		kitchen:     kitchen,
		events:      events,
		db:          db,
	}
}

// lockOpenOrder locks the order for the rest of tx and checks it is still open.
func (s *orderService) lockOpenOrder(ctx context.Context, tx *sql.Tx, tenantID, orderID int64) (*models.Order, error) {
	order, err := s.orderRepo.LockOrder(ctx, tx, tenantID, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	if order.Status != models.OrderStatusOpen {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderNotOpen, order.Status)
	}
	return order, nil
}

// OpenOrder starts a tab. A table can only have one open order; opening it marks the
// table occupied. Without a table the order is a counter order.
func (s *orderService) OpenOrder(ctx context.Context, tenantID, userID int64, req OpenOrderRequest) (*models.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if req.TableID != nil {
		table, err := s.tableRepo.LockTable(ctx, tx, tenantID, *req.TableID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, ErrTableNotFound
			}
			return nil, fmt.Errorf("failed to lock table: %w", err)
		}
		if table.Status == models.TableStatusOccupied {
			return nil, ErrTableOccupied
		}
	}

	order := &models.Order{TenantID: tenantID, TableID: req.TableID, UserID: &userID, Status: models.OrderStatusOpen, Notes: req.Notes}
	if _, err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrTableOccupied
		}
		return nil, fmt.Errorf("failed to create order record: %w", err)
	}
	if req.TableID != nil {
		if err := s.tableRepo.SetTableStatus(ctx, tx, tenantID, *req.TableID, models.TableStatusOccupied); err != nil {
			return nil, fmt.Errorf("failed to occupy table: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order transaction: %w", err)
	}
	return s.GetOrderByID(ctx, tenantID, order.ID)
}

// AddItems appends pending items, snapshotting product name and price.
func (s *orderService) AddItems(ctx context.Context, tenantID, orderID int64, req AddItemsRequest) (*models.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.lockOpenOrder(ctx, tx, tenantID, orderID); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := s.catalogRepo.GetProductsByIDs(ctx, tx, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	for i, it := range req.Items {
		product, err := sellableLine(products, it.ProductID, it.Quantity, i+1)
		if err != nil {
			return nil, err
		}
		item := &models.OrderItem{
			OrderID:     orderID,
			TenantID:    tenantID,
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    it.Quantity,
			Notes:       trimmed(it.Notes),
		}
		if _, err := s.orderRepo.CreateOrderItem(ctx, tx, item); err != nil {
			return nil, fmt.Errorf("failed to create order item (product_id: %d): %w", product.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order items: %w", err)
	}
	return s.GetOrderByID(ctx, tenantID, orderID)
}

func (s *orderService) RemoveItem(ctx context.Context, tenantID, orderID, itemID int64) (*models.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.lockOpenOrder(ctx, tx, tenantID, orderID); err != nil {
		return nil, err
	}
	if err := s.orderRepo.DeleteOrderItem(ctx, tx, tenantID, orderID, itemID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrOrderItemNotFound
		case errors.Is(err, repositories.ErrConflict):
			return nil, ErrItemAlreadySent
		}
		return nil, fmt.Errorf("failed to remove order item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit item removal: %w", err)
	}
	return s.GetOrderByID(ctx, tenantID, orderID)
}

// SendToKitchen dispatches every pending item of the order in one guarded UPDATE.
func (s *orderService) SendToKitchen(ctx context.Context, tenantID, orderID int64) (*models.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.lockOpenOrder(ctx, tx, tenantID, orderID); err != nil {
		return nil, err
	}
	dispatched, err := s.orderRepo.DispatchPendingItems(ctx, tx, tenantID, orderID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dispatch order items: %w", err)
	}
	if len(dispatched) == 0 {
		return nil, ErrNothingToSend
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit dispatch: %w", err)
	}

	publishKitchenEvents(s.events, dispatchEvents(tenantID, orderID, dispatched)...)
	return s.GetOrderByID(ctx, tenantID, orderID)
}

// MarkServed is the waiter's ready -> served step, scoped to one order.
func (s *orderService) MarkServed(ctx context.Context, tenantID int64, role string, orderID, itemID int64) (*models.OrderItem, error) {
	if _, err := s.orderRepo.GetOrderItem(ctx, nil, tenantID, orderID, itemID); err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("failed to load order item: %w", err)
		}
		if _, err := s.orderRepo.GetOrderByID(ctx, nil, tenantID, orderID); errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, ErrItemNotInOrder
	}
	return s.kitchen.Advance(ctx, tenantID, role, itemID, models.ItemStatusServed)
}

// Checkout bills the order through the invoice service, which also closes the
// order and frees its table.
func (s *orderService) Checkout(ctx context.Context, tenantID, userID, orderID int64, req CheckoutRequest) (*CheckoutResult, error) {
	return s.invoices.CheckoutOrder(ctx, tenantID, userID, orderID, req)
}

// CancelOrder drops an order nothing of which reached the kitchen.
func (s *orderService) CancelOrder(ctx context.Context, tenantID, orderID int64) (*models.Order, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	order, err := s.lockOpenOrder(ctx, tx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	dispatched, err := s.orderRepo.CountItemsPastPending(ctx, tx, tenantID, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to check order items: %w", err)
	}
	if dispatched > 0 {
		return nil, ErrOrderHasKitchenItems
	}
	if err := s.orderRepo.UpdateOrderStatus(ctx, tx, tenantID, orderID, models.OrderStatusOpen, models.OrderStatusCancelled); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, ErrOrderNotOpen
		}
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	if order.TableID != nil {
		if err := s.tableRepo.SetTableStatus(ctx, tx, tenantID, *order.TableID, models.TableStatusFree); err != nil {
			return nil, fmt.Errorf("failed to free table: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cancellation: %w", err)
	}
	return s.GetOrderByID(ctx, tenantID, orderID)
}

func (s *orderService) GetOrders(ctx context.Context, tenantID int64, filters models.OrderFilters) ([]models.Order, int, error) {
	orders, total, err := s.orderRepo.GetOrders(ctx, tenantID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, total, nil
}

func (s *orderService) GetOrderByID(ctx context.Context, tenantID, orderID int64) (*models.Order, error) {
	order, err := s.orderRepo.GetOrderByID(ctx, nil, tenantID, orderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order by ID from repository: %w", err)
	}
	if order.Items, err = s.orderRepo.GetOrderItems(ctx, nil, tenantID, orderID); err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	return order, nil
}
