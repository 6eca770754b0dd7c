package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/notifier"
	"restaurant_pos_backend/internal/repositories"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// newTxMock returns a sqlmock-backed *sql.DB. Fakes below ignore the executor, so
// the mock only has to see BEGIN, COMMIT and ROLLBACK.
func newTxMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// --- tenants ---

type fakeTenantRepo struct {
	tenants map[int64]*models.Tenant
	usage   models.TenantUsage
	seq     int64
}

func newFakeTenantRepo(plan string) *fakeTenantRepo {
	return &fakeTenantRepo{tenants: map[int64]*models.Tenant{
		1: {ID: 1, Name: "Casa", Slug: "casa", Plan: plan, IsActive: true},
	}}
}

func (f *fakeTenantRepo) CreateTenant(_ context.Context, _ repositories.SQLExecutor, t *models.Tenant) (int64, error) {
	for _, existing := range f.tenants {
		if existing.Slug == t.Slug {
			return 0, fmt.Errorf("%w: slug", repositories.ErrDuplicateKey)
		}
	}
	t.ID = int64(len(f.tenants) + 1)
	copied := *t
	f.tenants[t.ID] = &copied
	return t.ID, nil
}

func (f *fakeTenantRepo) GetTenantByID(_ context.Context, id int64) (*models.Tenant, error) {
	t, ok := f.tenants[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTenantRepo) GetTenants(_ context.Context, page, pageSize int) ([]models.Tenant, int, error) {
	var out []models.Tenant
	for _, t := range f.tenants {
		out = append(out, *t)
	}
	return out, len(out), nil
}

func (f *fakeTenantRepo) UpdateTenant(_ context.Context, _ repositories.SQLExecutor, t *models.Tenant) error {
	if _, ok := f.tenants[t.ID]; !ok {
		return repositories.ErrNotFound
	}
	copied := *t
	f.tenants[t.ID] = &copied
	return nil
}

func (f *fakeTenantRepo) SetTenantActive(_ context.Context, _ repositories.SQLExecutor, id int64, active bool) error {
	t, ok := f.tenants[id]
	if !ok {
		return repositories.ErrNotFound
	}
	t.IsActive = active
	return nil
}

func (f *fakeTenantRepo) NextInvoiceSequence(_ context.Context, _ repositories.SQLExecutor, tenantID int64) (int64, error) {
	f.seq++
	return f.seq, nil
}

func (f *fakeTenantRepo) GetUsage(_ context.Context, _ repositories.SQLExecutor, tenantID int64, monthStart time.Time) (*models.TenantUsage, error) {
	u := f.usage
	return &u, nil
}

// --- users ---

type fakeAuthRepo struct {
	users  map[int64]*models.User
	hashes map[int64]string
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{users: map[int64]*models.User{}, hashes: map[int64]string{}}
}

func (f *fakeAuthRepo) CreateUser(_ context.Context, _ repositories.SQLExecutor, u *models.User, hash string) (int64, error) {
	for _, existing := range f.users {
		if existing.Username == u.Username {
			return 0, fmt.Errorf("%w: username", repositories.ErrDuplicateKey)
		}
	}
	u.ID = int64(len(f.users) + 1)
	u.IsActive = true
	copied := *u
	f.users[u.ID] = &copied
	f.hashes[u.ID] = hash
	return u.ID, nil
}

func (f *fakeAuthRepo) FindUserByUsername(_ context.Context, username string) (*models.User, string, bool, error) {
	for id, u := range f.users {
		if u.Username == username {
			copied := *u
			return &copied, f.hashes[id], true, nil
		}
	}
	return nil, "", false, repositories.ErrNotFound
}

func (f *fakeAuthRepo) FindUserByID(_ context.Context, id int64) (*models.User, bool, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, false, repositories.ErrNotFound
	}
	copied := *u
	return &copied, true, nil
}

func (f *fakeAuthRepo) GetUsersByTenant(_ context.Context, tenantID int64) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		if u.TenantID != nil && *u.TenantID == tenantID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeAuthRepo) UpdateUser(_ context.Context, _ repositories.SQLExecutor, u *models.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return repositories.ErrNotFound
	}
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeAuthRepo) UpdatePassword(_ context.Context, _ repositories.SQLExecutor, tenantID, userID int64, hash string) error {
	u, ok := f.users[userID]
	if !ok || u.TenantID == nil || *u.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	f.hashes[userID] = hash
	return nil
}

// --- clients ---

type fakeClientRepo struct {
	clients   map[int64]*models.Client
	deleteErr error
}

func (f *fakeClientRepo) CreateClient(_ context.Context, _ repositories.SQLExecutor, c *models.Client) (int64, error) {
	c.ID = int64(len(f.clients) + 1)
	copied := *c
	f.clients[c.ID] = &copied
	return c.ID, nil
}

func (f *fakeClientRepo) GetClientByID(_ context.Context, _ repositories.SQLExecutor, tenantID, id int64) (*models.Client, error) {
	c, ok := f.clients[id]
	if !ok || c.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeClientRepo) GetClients(_ context.Context, tenantID int64, search string, page, pageSize int) ([]models.Client, int, error) {
	return nil, 0, nil
}

func (f *fakeClientRepo) UpdateClient(_ context.Context, _ repositories.SQLExecutor, c *models.Client) error {
	return nil
}

func (f *fakeClientRepo) DeleteClient(_ context.Context, _ repositories.SQLExecutor, tenantID, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if c, ok := f.clients[id]; !ok || c.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	delete(f.clients, id)
	return nil
}

// --- catalog ---

type fakeCatalogRepo struct {
	products   map[int64]models.Product
	categories []models.Category
	// referenced marks products that invoices or orders point at.
	referenced map[int64]bool
	deleteErr  error
}

func (f *fakeCatalogRepo) CreateCategory(_ context.Context, _ repositories.SQLExecutor, c *models.Category) (int64, error) {
	c.ID = int64(len(f.categories) + 1)
	f.categories = append(f.categories, *c)
	return c.ID, nil
}
func (f *fakeCatalogRepo) GetCategoryByID(_ context.Context, tenantID, id int64) (*models.Category, error) {
	for _, c := range f.categories {
		if c.ID == id && c.TenantID == tenantID {
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeCatalogRepo) GetCategories(_ context.Context, tenantID int64) ([]models.Category, error) {
	return f.categories, nil
}
func (f *fakeCatalogRepo) UpdateCategory(_ context.Context, _ repositories.SQLExecutor, c *models.Category) error {
	return nil
}
func (f *fakeCatalogRepo) DeleteCategory(_ context.Context, _ repositories.SQLExecutor, tenantID, id int64) error {
	for _, p := range f.products {
		if p.CategoryID != nil && *p.CategoryID == id && p.TenantID == tenantID {
			return fmt.Errorf("%w: category ID %d", repositories.ErrInUse, id)
		}
	}
	for i, c := range f.categories {
		if c.ID == id && c.TenantID == tenantID {
			f.categories = append(f.categories[:i], f.categories[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}
func (f *fakeCatalogRepo) CreateProduct(_ context.Context, _ repositories.SQLExecutor, p *models.Product) (int64, error) {
	p.ID = int64(len(f.products) + 100)
	f.products[p.ID] = *p
	return p.ID, nil
}
func (f *fakeCatalogRepo) GetProductByID(_ context.Context, tenantID, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok || p.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	return &p, nil
}
func (f *fakeCatalogRepo) GetProducts(_ context.Context, tenantID int64, filters models.ProductFilters) ([]models.Product, int, error) {
	var out []models.Product
	for _, p := range f.products {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}
func (f *fakeCatalogRepo) GetProductsByIDs(_ context.Context, _ repositories.SQLExecutor, tenantID int64, ids []int64) (map[int64]models.Product, error) {
	out := map[int64]models.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok && p.TenantID == tenantID {
			out[id] = p
		}
	}
	return out, nil
}
func (f *fakeCatalogRepo) FindProductForImport(_ context.Context, _ repositories.SQLExecutor, tenantID int64, sku *string, name string) (*models.Product, error) {
	for _, p := range f.products {
		if p.TenantID != tenantID {
			continue
		}
		if sku != nil && p.SKU != nil && *p.SKU == *sku {
			return &p, nil
		}
		if sku == nil && p.Name == name {
			return &p, nil
		}
	}
	return nil, repositories.ErrNotFound
}
func (f *fakeCatalogRepo) UpdateProduct(_ context.Context, _ repositories.SQLExecutor, p *models.Product) error {
	if _, ok := f.products[p.ID]; !ok {
		return repositories.ErrNotFound
	}
	f.products[p.ID] = *p
	return nil
}
func (f *fakeCatalogRepo) DeleteProduct(_ context.Context, _ repositories.SQLExecutor, tenantID, id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.products, id)
	return nil
}
func (f *fakeCatalogRepo) IsProductReferenced(_ context.Context, tenantID, id int64) (bool, error) {
	return f.referenced[id], nil
}

// --- tables ---

type fakeTableRepo struct {
	tables map[int64]*models.DiningTable
}

func (f *fakeTableRepo) CreateTable(_ context.Context, _ repositories.SQLExecutor, t *models.DiningTable) (int64, error) {
	t.ID = int64(len(f.tables) + 1)
	copied := *t
	f.tables[t.ID] = &copied
	return t.ID, nil
}
func (f *fakeTableRepo) GetTableByID(_ context.Context, tenantID, id int64) (*models.DiningTable, error) {
	t, ok := f.tables[id]
	if !ok || t.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	copied := *t
	return &copied, nil
}
func (f *fakeTableRepo) LockTable(ctx context.Context, _ repositories.SQLExecutor, tenantID, id int64) (*models.DiningTable, error) {
	return f.GetTableByID(ctx, tenantID, id)
}
func (f *fakeTableRepo) GetTables(_ context.Context, tenantID int64) ([]models.DiningTable, error) {
	return nil, nil
}
func (f *fakeTableRepo) UpdateTable(_ context.Context, _ repositories.SQLExecutor, t *models.DiningTable) error {
	return nil
}
func (f *fakeTableRepo) SetTableStatus(_ context.Context, _ repositories.SQLExecutor, tenantID, id int64, status string) error {
	t, ok := f.tables[id]
	if !ok {
		return repositories.ErrNotFound
	}
	t.Status = status
	return nil
}
func (f *fakeTableRepo) DeleteTable(_ context.Context, _ repositories.SQLExecutor, tenantID, id int64) error {
	t, ok := f.tables[id]
	if !ok || t.TenantID != tenantID {
		return repositories.ErrNotFound
	}
	if t.Status != models.TableStatusFree {
		return fmt.Errorf("%w: table ID %d is %s", repositories.ErrInUse, id, t.Status)
	}
	delete(f.tables, id)
	return nil
}

// --- orders ---

type fakeOrderRepo struct {
	orders map[int64]*models.Order
	items  map[int64]*models.OrderItem
	nextID int64
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[int64]*models.Order{}, items: map[int64]*models.OrderItem{}}
}

func (f *fakeOrderRepo) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeOrderRepo) CreateOrder(_ context.Context, _ repositories.SQLExecutor, o *models.Order) (int64, error) {
	if o.TableID != nil {
		for _, existing := range f.orders {
			if existing.TableID != nil && *existing.TableID == *o.TableID && existing.Status == models.OrderStatusOpen {
				return 0, fmt.Errorf("%w: orders_one_open_per_table", repositories.ErrDuplicateKey)
			}
		}
	}
	o.ID = f.id()
	copied := *o
	f.orders[o.ID] = &copied
	return o.ID, nil
}

func (f *fakeOrderRepo) GetOrderByID(_ context.Context, _ repositories.SQLExecutor, tenantID, id int64) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok || o.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOrderRepo) LockOrder(ctx context.Context, ex repositories.SQLExecutor, tenantID, id int64) (*models.Order, error) {
	return f.GetOrderByID(ctx, ex, tenantID, id)
}

func (f *fakeOrderRepo) GetOpenOrderByTable(_ context.Context, _ repositories.SQLExecutor, tenantID, tableID int64) (*models.Order, error) {
	for _, o := range f.orders {
		if o.TenantID == tenantID && o.TableID != nil && *o.TableID == tableID && o.Status == models.OrderStatusOpen {
			copied := *o
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeOrderRepo) GetOrders(_ context.Context, tenantID int64, filters models.OrderFilters) ([]models.Order, int, error) {
	return nil, 0, nil
}

func (f *fakeOrderRepo) UpdateOrderStatus(_ context.Context, _ repositories.SQLExecutor, tenantID, id int64, from, to string) error {
	o, ok := f.orders[id]
	if !ok || o.Status != from {
		return repositories.ErrConflict
	}
	o.Status = to
	return nil
}

func (f *fakeOrderRepo) CreateOrderItem(_ context.Context, _ repositories.SQLExecutor, it *models.OrderItem) (int64, error) {
	it.ID = f.id()
	it.Status = models.ItemStatusPending
	copied := *it
	f.items[it.ID] = &copied
	return it.ID, nil
}

func (f *fakeOrderRepo) GetOrderItem(_ context.Context, _ repositories.SQLExecutor, tenantID, orderID, itemID int64) (*models.OrderItem, error) {
	it, ok := f.items[itemID]
	if !ok || it.OrderID != orderID || it.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	copied := *it
	return &copied, nil
}

func (f *fakeOrderRepo) GetOrderItems(_ context.Context, _ repositories.SQLExecutor, tenantID, orderID int64) ([]models.OrderItem, error) {
	out := []models.OrderItem{}
	for id := int64(1); id <= f.nextID; id++ {
		if it, ok := f.items[id]; ok && it.OrderID == orderID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) DeleteOrderItem(_ context.Context, _ repositories.SQLExecutor, tenantID, orderID, itemID int64) error {
	it, ok := f.items[itemID]
	if !ok || it.OrderID != orderID {
		return repositories.ErrNotFound
	}
	if it.Status != models.ItemStatusPending {
		return repositories.ErrConflict
	}
	delete(f.items, itemID)
	return nil
}

func (f *fakeOrderRepo) DispatchPendingItems(_ context.Context, _ repositories.SQLExecutor, tenantID, orderID int64, itemIDs []int64) ([]int64, error) {
	wanted := map[int64]bool{}
	for _, id := range itemIDs {
		wanted[id] = true
	}
	moved := []int64{}
	for id := int64(1); id <= f.nextID; id++ {
		it, ok := f.items[id]
		if !ok || it.OrderID != orderID || it.Status != models.ItemStatusPending {
			continue
		}
		if itemIDs != nil && !wanted[id] {
			continue
		}
		it.Status = models.ItemStatusSent
		moved = append(moved, id)
	}
	return moved, nil
}

func (f *fakeOrderRepo) MarkItemsInvoiced(_ context.Context, _ repositories.SQLExecutor, tenantID, orderID, invoiceID int64) (int64, error) {
	var n int64
	for _, it := range f.items {
		if it.OrderID == orderID && it.InvoiceID == nil {
			id := invoiceID
			it.InvoiceID = &id
			n++
		}
	}
	return n, nil
}

func (f *fakeOrderRepo) CountItemsPastPending(_ context.Context, _ repositories.SQLExecutor, tenantID, orderID int64) (int, error) {
	n := 0
	for _, it := range f.items {
		if it.OrderID == orderID && it.Status != models.ItemStatusPending {
			n++
		}
	}
	return n, nil
}

// --- invoices ---

type fakeInvoiceRepo struct {
	invoices map[int64]*models.Invoice
	items    map[int64][]models.InvoiceItem
	payments map[int64][]models.InvoicePayment
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: map[int64]*models.Invoice{},
		items:    map[int64][]models.InvoiceItem{},
		payments: map[int64][]models.InvoicePayment{},
	}
}

func (f *fakeInvoiceRepo) CreateInvoice(_ context.Context, _ repositories.SQLExecutor, inv *models.Invoice) (int64, error) {
	inv.ID = int64(len(f.invoices) + 1)
	copied := *inv
	f.invoices[inv.ID] = &copied
	return inv.ID, nil
}
func (f *fakeInvoiceRepo) CreateInvoiceItem(_ context.Context, _ repositories.SQLExecutor, it *models.InvoiceItem) (int64, error) {
	it.ID = int64(len(f.items[it.InvoiceID]) + 1)
	f.items[it.InvoiceID] = append(f.items[it.InvoiceID], *it)
	return it.ID, nil
}
func (f *fakeInvoiceRepo) CreateInvoicePayment(_ context.Context, _ repositories.SQLExecutor, p *models.InvoicePayment) (int64, error) {
	p.ID = int64(len(f.payments[p.InvoiceID]) + 1)
	f.payments[p.InvoiceID] = append(f.payments[p.InvoiceID], *p)
	return p.ID, nil
}
func (f *fakeInvoiceRepo) GetInvoiceByID(_ context.Context, _ repositories.SQLExecutor, tenantID, id int64) (*models.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	copied := *inv
	return &copied, nil
}
func (f *fakeInvoiceRepo) GetInvoiceItems(_ context.Context, _ repositories.SQLExecutor, invoiceID int64) ([]models.InvoiceItem, error) {
	return f.items[invoiceID], nil
}
func (f *fakeInvoiceRepo) GetInvoicePayments(_ context.Context, _ repositories.SQLExecutor, invoiceID int64) ([]models.InvoicePayment, error) {
	return f.payments[invoiceID], nil
}
func (f *fakeInvoiceRepo) GetInvoices(_ context.Context, tenantID int64, filters models.InvoiceFilters) ([]models.Invoice, int, error) {
	return nil, 0, nil
}
func (f *fakeInvoiceRepo) VoidInvoice(_ context.Context, _ repositories.SQLExecutor, tenantID, id int64, reason string) error {
	inv, ok := f.invoices[id]
	if !ok {
		return repositories.ErrNotFound
	}
	if inv.Status != models.InvoiceStatusPaid {
		return repositories.ErrConflict
	}
	inv.Status = models.InvoiceStatusVoided
	inv.VoidReason = &reason
	return nil
}
func (f *fakeInvoiceRepo) IsClientReferenced(_ context.Context, tenantID, clientID int64) (bool, error) {
	for _, inv := range f.invoices {
		if inv.ClientID == clientID {
			return true, nil
		}
	}
	return false, nil
}

// --- kitchen ---

type fakeKitchenRepo struct {
	orders *fakeOrderRepo
}

func (f *fakeKitchenRepo) GetQueue(_ context.Context, tenantID int64) ([]models.KitchenTicket, error) {
	return nil, nil
}

func (f *fakeKitchenRepo) GetItem(_ context.Context, _ repositories.SQLExecutor, tenantID, itemID int64) (*models.OrderItem, error) {
	it, ok := f.orders.items[itemID]
	if !ok || it.TenantID != tenantID {
		return nil, repositories.ErrNotFound
	}
	copied := *it
	return &copied, nil
}

func (f *fakeKitchenRepo) AdvanceItem(_ context.Context, _ repositories.SQLExecutor, tenantID, itemID int64, from, to string) (bool, error) {
	it, ok := f.orders.items[itemID]
	if !ok || it.TenantID != tenantID || it.Status != from {
		return false, nil
	}
	it.Status = to
	return true, nil
}

// --- notifier ---

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifier.KitchenEvent
}

func (r *recordingNotifier) Publish(_ context.Context, events ...notifier.KitchenEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
	return nil
}

func (r *recordingNotifier) Close() error { return nil }
