package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/notifier"
	"restaurant_pos_backend/internal/plans"
	"restaurant_pos_backend/internal/repositories"
	"restaurant_pos_backend/pkg/utils"

	"github.com/shopspring/decimal"
)

var (
	ErrInvoiceNotFound      = errors.New("invoice not found")
	ErrInvoiceAlreadyVoided = errors.New("invoice is already voided")
	ErrInvalidPayment       = errors.New("invalid payment")
	ErrPaymentMismatch      = errors.New("payments do not add up to the invoice total")
)

// --- Invoice DTOs ---

type InvoiceItemRequest struct {
	ProductID int64           `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type PaymentRequest struct {
	Method    string          `json:"method" binding:"required,payment_method"`
	Amount    decimal.Decimal `json:"amount"`
	Reference *string         `json:"reference" binding:"omitempty,max=100"`
}

// KitchenRequest asks for invoice lines to be cooked. TableID nil means a counter
// sale. ItemIndexes point into the invoice items; nil selects every product that
// sends to the kitchen.
type KitchenRequest struct {
	TableID     *int64 `json:"table_id"`
	ItemIndexes []int  `json:"item_indexes"`
}

type CreateInvoiceRequest struct {
	ClientID      int64                `json:"client_id" binding:"required"`
	PaymentMethod string               `json:"payment_method" binding:"required,payment_method"`
	Items         []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
	Payments      []PaymentRequest     `json:"payments" binding:"omitempty,dive"`
	Notes         *string              `json:"notes"`
	Kitchen       *KitchenRequest      `json:"kitchen"`
}

type CheckoutRequest struct {
	ClientID      int64            `json:"client_id" binding:"required"`
	PaymentMethod string           `json:"payment_method" binding:"required,payment_method"`
	Payments      []PaymentRequest `json:"payments" binding:"omitempty,dive"`
	Notes         *string          `json:"notes"`
}

// CheckoutResult is the closed order and the invoice billing it. Invoice is nil when
// every item had already been billed.
type CheckoutResult struct {
	Order   *models.Order   `json:"order"`
	Invoice *models.Invoice `json:"invoice,omitempty"`
}

type VoidInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// --- InvoiceService Interface ---
type InvoiceService interface {
	CreateInvoice(ctx context.Context, tenantID, userID int64, req CreateInvoiceRequest) (*models.Invoice, error)
	CheckoutOrder(ctx context.Context, tenantID, userID, orderID int64, req CheckoutRequest) (*CheckoutResult, error)
	GetInvoices(ctx context.Context, tenantID int64, filters models.InvoiceFilters) ([]models.Invoice, int, error)
	GetInvoiceByID(ctx context.Context, tenantID, id int64) (*models.Invoice, error)
	VoidInvoice(ctx context.Context, tenantID, id int64, req VoidInvoiceRequest) (*models.Invoice, error)
}

type invoiceService struct {
	invoiceRepo repositories.InvoiceRepository
	clientRepo  repositories.ClientRepository
	catalogRepo repositories.CatalogRepository
	orderRepo   repositories.OrderRepository
	tableRepo   repositories.TableRepository
	tenantRepo  repositories.TenantRepository
	guard       *planGuard
	events      notifier.Notifier
	db          *sql.DB
}

// NewInvoiceService creates a new instance of InvoiceService.
func NewInvoiceService(
	invoiceRepo repositories.InvoiceRepository,
	clientRepo repositories.ClientRepository,
	catalogRepo repositories.CatalogRepository,
	orderRepo repositories.OrderRepository,
	tableRepo repositories.TableRepository,
	tenantRepo repositories.TenantRepository,
	catalog *plans.Catalog,
	events notifier.Notifier,
	db *sql.DB,
) InvoiceService {
	if events == nil {
		events = notifier.Noop{}
	}
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		clientRepo:  clientRepo,
		catalogRepo: catalogRepo,
		orderRepo:   orderRepo,
		tableRepo:   tableRepo,
		tenantRepo:  tenantRepo,
		guard:       newPlanGuard(tenantRepo, catalog),
		events:      events,
		db:          db,
	}
}

// resolvePayments validates the payment split against total, or defaults it.
//
//   - mixed: at least two legs, each with a concrete method and a positive amount.
//   - single method without legs: one leg of the full total.
//   - single method with legs: every leg uses that method.
//
// In every case the legs must add up to total within utils.MoneyTolerance.
func resolvePayments(method string, total decimal.Decimal, reqs []PaymentRequest) ([]models.InvoicePayment, error) {
	if !models.IsValidPaymentMethod(method) {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidPayment, method)
	}

	if method != models.PaymentMixed && len(reqs) == 0 {
		if !total.IsPositive() {
			return []models.InvoicePayment{}, nil
		}
		return []models.InvoicePayment{{Method: method, Amount: total}}, nil
	}
	if method == models.PaymentMixed && len(reqs) < 2 {
		return nil, fmt.Errorf("%w: a mixed payment needs at least two payments", ErrInvalidPayment)
	}

	payments := make([]models.InvoicePayment, 0, len(reqs))
	sum := decimal.Zero
	for i, p := range reqs {
		if !models.IsValidSplitMethod(p.Method) {
			return nil, fmt.Errorf("%w: payment %d has method %q", ErrInvalidPayment, i+1, p.Method)
		}
		if method != models.PaymentMixed && p.Method != method {
			return nil, fmt.Errorf("%w: payment %d is %s but the invoice is paid by %s", ErrInvalidPayment, i+1, p.Method, method)
		}
		amount := utils.RoundMoney(p.Amount)
		if !amount.IsPositive() {
			return nil, fmt.Errorf("%w: payment %d must have a positive amount", ErrInvalidPayment, i+1)
		}
		sum = sum.Add(amount)
		payments = append(payments, models.InvoicePayment{Method: p.Method, Amount: amount, Reference: trimmed(p.Reference)})
	}
	if !utils.MoneyEqual(sum, total) {
		return nil, fmt.Errorf("%w: payments sum %s, total is %s", ErrPaymentMismatch, sum.StringFixed(2), total.StringFixed(2))
	}
	return payments, nil
}

// quantityPlaces matches the NUMERIC(12,3) quantity columns.
const quantityPlaces = 3

// sellableLine checks one requested line against the loaded products and returns
// the product it sells. line is 1-based and only used in messages.
func sellableLine(products map[int64]models.Product, productID int64, qty decimal.Decimal, line int) (models.Product, error) {
	if !qty.IsPositive() {
		return models.Product{}, fmt.Errorf("%w: item %d must have a positive quantity", ErrValidation, line)
	}
	if !qty.Equal(qty.Truncate(quantityPlaces)) {
		return models.Product{}, fmt.Errorf("%w: item %d quantity allows at most %d decimals", ErrValidation, line, quantityPlaces)
	}
	product, ok := products[productID]
	if !ok {
		return models.Product{}, fmt.Errorf("%w: product ID %d", ErrProductNotFound, productID)
	}
	if !product.IsActive {
		return models.Product{}, fmt.Errorf("%w: %s", ErrProductInactive, product.Name)
	}
	if product.Unit == models.UnitUnit && !qty.Equal(qty.Truncate(0)) {
		return models.Product{}, fmt.Errorf("%w: %s is sold by unit, quantity must be whole", ErrValidation, product.Name)
	}
	return product, nil
}

// buildInvoiceLines snapshots the products and computes rounded line subtotals.
func buildInvoiceLines(reqs []InvoiceItemRequest, products map[int64]models.Product) ([]models.InvoiceItem, decimal.Decimal, error) {
	lines := make([]models.InvoiceItem, 0, len(reqs))
	total := decimal.Zero
	for i, it := range reqs {
		product, err := sellableLine(products, it.ProductID, it.Quantity, i+1)
		if err != nil {
			return nil, decimal.Zero, err
		}
		subtotal := utils.RoundMoney(product.Price.Mul(it.Quantity))
		total = total.Add(subtotal)
		lines = append(lines, models.InvoiceItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Unit:        product.Unit,
			UnitPrice:   product.Price,
			Quantity:    it.Quantity,
			Subtotal:    subtotal,
		})
	}
	return lines, total, nil
}

// kitchenSelection returns the indexes of the invoice lines to cook, in line order.
func kitchenSelection(indexes []int, lines []models.InvoiceItem, products map[int64]models.Product) ([]int, error) {
	if indexes == nil {
		var selected []int
		for i, line := range lines {
			if products[line.ProductID].SendsToKitchen {
				selected = append(selected, i)
			}
		}
		return selected, nil
	}
	seen := make(map[int]bool, len(indexes))
	selected := make([]int, 0, len(indexes))
	for _, i := range indexes {
		if i < 0 || i >= len(lines) {
			return nil, fmt.Errorf("%w: kitchen item index %d is out of range", ErrValidation, i)
		}
		if !seen[i] {
			seen[i] = true
			selected = append(selected, i)
		}
	}
	sort.Ints(selected)
	return selected, nil
}

func productIDs(reqs []InvoiceItemRequest) []int64 {
	ids := make([]int64, 0, len(reqs))
	seen := make(map[int64]bool, len(reqs))
	for _, it := range reqs {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	return ids
}

func (s *invoiceService) checkClient(ctx context.Context, tx *sql.Tx, tenantID, clientID int64) error {
	if _, err := s.clientRepo.GetClientByID(ctx, tx, tenantID, clientID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrClientNotFound
		}
		return fmt.Errorf("failed to check client: %w", err)
	}
	return nil
}

// insertInvoice numbers the invoice and writes header, lines and payments.
func (s *invoiceService) insertInvoice(ctx context.Context, tx *sql.Tx, invoice *models.Invoice, lines []models.InvoiceItem, payments []models.InvoicePayment) error {
	seq, err := s.tenantRepo.NextInvoiceSequence(ctx, tx, invoice.TenantID)
	if err != nil {
		return fmt.Errorf("failed to number invoice: %w", err)
	}
	invoice.Number = fmt.Sprintf("INV-%06d", seq)
	invoice.Status = models.InvoiceStatusPaid

	if _, err := s.invoiceRepo.CreateInvoice(ctx, tx, invoice); err != nil {
		return fmt.Errorf("failed to create invoice record: %w", err)
	}
	for i := range lines {
		lines[i].InvoiceID = invoice.ID
		if _, err := s.invoiceRepo.CreateInvoiceItem(ctx, tx, &lines[i]); err != nil {
			return fmt.Errorf("failed to create invoice item (product_id: %d): %w", lines[i].ProductID, err)
		}
	}
	for i := range payments {
		payments[i].InvoiceID = invoice.ID
		if _, err := s.invoiceRepo.CreateInvoicePayment(ctx, tx, &payments[i]); err != nil {
			return fmt.Errorf("failed to create invoice payment: %w", err)
		}
	}
	invoice.Items = lines
	invoice.Payments = payments
	return nil
}

// cascadeOrder finds or opens the order that receives kitchen items. A table joins
// its open tab; a counter sale gets its own order, closed once its items are sent.
func (s *invoiceService) cascadeOrder(ctx context.Context, tx *sql.Tx, tenantID, userID int64, tableID *int64) (*models.Order, bool, error) {
	if tableID == nil {
		order := &models.Order{TenantID: tenantID, UserID: &userID, Status: models.OrderStatusOpen}
		if _, err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
			return nil, false, fmt.Errorf("failed to create counter order: %w", err)
		}
		return order, true, nil
	}

	if _, err := s.tableRepo.LockTable(ctx, tx, tenantID, *tableID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, false, ErrTableNotFound
		}
		return nil, false, fmt.Errorf("failed to lock table: %w", err)
	}
	order, err := s.orderRepo.GetOpenOrderByTable(ctx, tx, tenantID, *tableID)
	if err == nil {
		return order, false, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to look up open order: %w", err)
	}
	order = &models.Order{TenantID: tenantID, TableID: tableID, UserID: &userID, Status: models.OrderStatusOpen}
	if _, err := s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		return nil, false, fmt.Errorf("failed to open table order: %w", err)
	}
	if err := s.tableRepo.SetTableStatus(ctx, tx, tenantID, *tableID, models.TableStatusOccupied); err != nil {
		return nil, false, fmt.Errorf("failed to occupy table: %w", err)
	}
	return order, false, nil
}

// CreateInvoice validates the sale, recomputes the total, validates or defaults the
// payment split, and writes everything in one transaction. With a kitchen block the
// selected lines also become order items dispatched to the kitchen in that transaction.
func (s *invoiceService) CreateInvoice(ctx context.Context, tenantID, userID int64, req CreateInvoiceRequest) (*models.Invoice, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.guard.check(ctx, tx, tenantID, plans.ResourceInvoices); err != nil {
		return nil, err
	}
	if err := s.checkClient(ctx, tx, tenantID, req.ClientID); err != nil {
		return nil, err
	}
	products, err := s.catalogRepo.GetProductsByIDs(ctx, tx, tenantID, productIDs(req.Items))
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	lines, total, err := buildInvoiceLines(req.Items, products)
	if err != nil {
		return nil, err
	}
	payments, err := resolvePayments(req.PaymentMethod, total, req.Payments)
	if err != nil {
		return nil, err
	}

	invoice := &models.Invoice{
		TenantID:      tenantID,
		ClientID:      req.ClientID,
		UserID:        &userID,
		Subtotal:      total,
		Total:         total,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	}

	var kitchenOrder *models.Order
	var counterSale bool
	var selected []int
	if req.Kitchen != nil {
		selected, err = kitchenSelection(req.Kitchen.ItemIndexes, lines, products)
		if err != nil {
			return nil, err
		}
		if len(selected) > 0 {
			kitchenOrder, counterSale, err = s.cascadeOrder(ctx, tx, tenantID, userID, req.Kitchen.TableID)
			if err != nil {
				return nil, err
			}
			invoice.OrderID = &kitchenOrder.ID
		}
	}

	if err := s.insertInvoice(ctx, tx, invoice, lines, payments); err != nil {
		return nil, err
	}

	var dispatched []int64
	if kitchenOrder != nil {
		itemIDs := make([]int64, 0, len(selected))
		for _, i := range selected {
			item := &models.OrderItem{
				OrderID:     kitchenOrder.ID,
				TenantID:    tenantID,
				ProductID:   lines[i].ProductID,
				InvoiceID:   &invoice.ID,
				ProductName: lines[i].ProductName,
				UnitPrice:   lines[i].UnitPrice,
				Quantity:    lines[i].Quantity,
			}
			if _, err := s.orderRepo.CreateOrderItem(ctx, tx, item); err != nil {
				return nil, fmt.Errorf("failed to create kitchen item: %w", err)
			}
			itemIDs = append(itemIDs, item.ID)
		}
		dispatched, err = s.orderRepo.DispatchPendingItems(ctx, tx, tenantID, kitchenOrder.ID, itemIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to send items to the kitchen: %w", err)
		}
		if counterSale {
			if err := s.orderRepo.UpdateOrderStatus(ctx, tx, tenantID, kitchenOrder.ID, models.OrderStatusOpen, models.OrderStatusClosed); err != nil {
				return nil, fmt.Errorf("failed to close counter order: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit invoice transaction: %w", err)
	}
	if kitchenOrder != nil {
		publishKitchenEvents(s.events, dispatchEvents(tenantID, kitchenOrder.ID, dispatched)...)
	}
	return s.GetInvoiceByID(ctx, tenantID, invoice.ID)
}

// CheckoutOrder bills every item of the order not billed yet, closes the order and
// frees its table, all in one transaction.
func (s *invoiceService) CheckoutOrder(ctx context.Context, tenantID, userID, orderID int64, req CheckoutRequest) (*CheckoutResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start database transaction: %w", err)
	}
	defer tx.Rollback()

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

	items, err := s.orderRepo.GetOrderItems(ctx, tx, tenantID, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	var billable []models.OrderItem
	for _, it := range items {
		if it.InvoiceID == nil {
			billable = append(billable, it)
		}
	}

	var invoice *models.Invoice
	if len(billable) > 0 {
		if err := s.guard.check(ctx, tx, tenantID, plans.ResourceInvoices); err != nil {
			return nil, err
		}
		if err := s.checkClient(ctx, tx, tenantID, req.ClientID); err != nil {
			return nil, err
		}

		ids := make([]int64, 0, len(billable))
		for _, it := range billable {
			ids = append(ids, it.ProductID)
		}
		products, err := s.catalogRepo.GetProductsByIDs(ctx, tx, tenantID, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load products: %w", err)
		}

		lines := make([]models.InvoiceItem, 0, len(billable))
		total := decimal.Zero
		for _, it := range billable {
			unit := models.UnitUnit
			if p, ok := products[it.ProductID]; ok {
				unit = p.Unit
			}
			subtotal := utils.RoundMoney(it.UnitPrice.Mul(it.Quantity))
			total = total.Add(subtotal)
			lines = append(lines, models.InvoiceItem{
				ProductID:   it.ProductID,
				ProductName: it.ProductName,
				Unit:        unit,
				UnitPrice:   it.UnitPrice,
				Quantity:    it.Quantity,
				Subtotal:    subtotal,
			})
		}
		payments, err := resolvePayments(req.PaymentMethod, total, req.Payments)
		if err != nil {
			return nil, err
		}

		invoice = &models.Invoice{
			TenantID:      tenantID,
			ClientID:      req.ClientID,
			UserID:        &userID,
			OrderID:       &orderID,
			Subtotal:      total,
			Total:         total,
			PaymentMethod: req.PaymentMethod,
			Notes:         req.Notes,
		}
		if err := s.insertInvoice(ctx, tx, invoice, lines, payments); err != nil {
			return nil, err
		}
		if _, err := s.orderRepo.MarkItemsInvoiced(ctx, tx, tenantID, orderID, invoice.ID); err != nil {
			return nil, fmt.Errorf("failed to mark order items as invoiced: %w", err)
		}
	}

	if err := s.orderRepo.UpdateOrderStatus(ctx, tx, tenantID, orderID, models.OrderStatusOpen, models.OrderStatusClosed); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, ErrOrderNotOpen
		}
		return nil, fmt.Errorf("failed to close order: %w", err)
	}
	if order.TableID != nil {
		if err := s.tableRepo.SetTableStatus(ctx, tx, tenantID, *order.TableID, models.TableStatusFree); err != nil {
			return nil, fmt.Errorf("failed to free table: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit checkout transaction: %w", err)
	}

	result := &CheckoutResult{}
	if result.Order, err = s.orderRepo.GetOrderByID(ctx, nil, tenantID, orderID); err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	if invoice != nil {
		if result.Invoice, err = s.GetInvoiceByID(ctx, tenantID, invoice.ID); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *invoiceService) GetInvoices(ctx context.Context, tenantID int64, filters models.InvoiceFilters) ([]models.Invoice, int, error) {
	invoices, total, err := s.invoiceRepo.GetInvoices(ctx, tenantID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get invoices: %w", err)
	}
	return invoices, total, nil
}

func (s *invoiceService) GetInvoiceByID(ctx context.Context, tenantID, id int64) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.GetInvoiceByID(ctx, nil, tenantID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	if invoice.Items, err = s.invoiceRepo.GetInvoiceItems(ctx, nil, id); err != nil {
		return nil, fmt.Errorf("failed to get invoice items: %w", err)
	}
	if invoice.Payments, err = s.invoiceRepo.GetInvoicePayments(ctx, nil, id); err != nil {
		return nil, fmt.Errorf("failed to get invoice payments: %w", err)
	}
	return invoice, nil
}

// VoidInvoice cancels a paid invoice. Kitchen items it produced are left alone.
func (s *invoiceService) VoidInvoice(ctx context.Context, tenantID, id int64, req VoidInvoiceRequest) (*models.Invoice, error) {
	if err := s.invoiceRepo.VoidInvoice(ctx, s.db, tenantID, id, req.Reason); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrInvoiceNotFound
		case errors.Is(err, repositories.ErrConflict):
			return nil, ErrInvoiceAlreadyVoided
		}
		return nil, fmt.Errorf("failed to void invoice: %w", err)
	}
	return s.GetInvoiceByID(ctx, tenantID, id)
}
