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

// CatalogRepository defines the database operations on categories and products.
type CatalogRepository interface {
	// Category methods
	CreateCategory(ctx context.Context, executor SQLExecutor, category *models.Category) (int64, error)
	GetCategoryByID(ctx context.Context, tenantID, id int64) (*models.Category, error)
	GetCategories(ctx context.Context, tenantID int64) ([]models.Category, error)
	UpdateCategory(ctx context.Context, executor SQLExecutor, category *models.Category) error
	DeleteCategory(ctx context.Context, executor SQLExecutor, tenantID, id int64) error

	// Product methods
	CreateProduct(ctx context.Context, executor SQLExecutor, product *models.Product) (int64, error)
	GetProductByID(ctx context.Context, tenantID, id int64) (*models.Product, error)
	GetProducts(ctx context.Context, tenantID int64, filters models.ProductFilters) ([]models.Product, int, error)
	GetProductsByIDs(ctx context.Context, executor SQLExecutor, tenantID int64, ids []int64) (map[int64]models.Product, error)
	FindProductForImport(ctx context.Context, executor SQLExecutor, tenantID int64, sku *string, name string) (*models.Product, error)
	UpdateProduct(ctx context.Context, executor SQLExecutor, product *models.Product) error
	DeleteProduct(ctx context.Context, executor SQLExecutor, tenantID, id int64) error
	IsProductReferenced(ctx context.Context, tenantID, id int64) (bool, error)
}

type catalogRepository struct {
	db *sql.DB
}

// NewCatalogRepository creates a new instance of CatalogRepository.
func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

// --- Category Methods ---

func (r *catalogRepository) CreateCategory(ctx context.Context, executor SQLExecutor, category *models.Category) (int64, error) {
	query := `INSERT INTO categories (tenant_id, name, description, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $4)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRowContext(ctx, query, category.TenantID, category.Name, category.Description, now).Scan(&category.ID)
	if err != nil {
		return 0, mapDBError(err, fmt.Sprintf("creating category '%s'", category.Name))
	}
	category.CreatedAt, category.UpdatedAt = now, now
	return category.ID, nil
}

func (r *catalogRepository) GetCategoryByID(ctx context.Context, tenantID, id int64) (*models.Category, error) {
	c := &models.Category{}
	query := `SELECT id, tenant_id, name, description, created_at, updated_at
	          FROM categories WHERE id = $1 AND tenant_id = $2`
	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(&c.ID, &c.TenantID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err, fmt.Sprintf("getting category by ID %d", id))
	}
	return c, nil
}

func (r *catalogRepository) GetCategories(ctx context.Context, tenantID int64) ([]models.Category, error) {
	categories := []models.Category{}
	query := `SELECT id, tenant_id, name, description, created_at, updated_at
	          FROM categories WHERE tenant_id = $1 ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, mapDBError(err, "querying categories")
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, mapDBError(err, "scanning category")
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, mapDBError(err, "iterating category rows")
	}
	return categories, nil
}

func (r *catalogRepository) UpdateCategory(ctx context.Context, executor SQLExecutor, category *models.Category) error {
	query := `UPDATE categories SET name = $1, description = $2, updated_at = $3 WHERE id = $4 AND tenant_id = $5`
	category.UpdatedAt = time.Now()
	result, err := executor.ExecContext(ctx, query, category.Name, category.Description, category.UpdatedAt, category.ID, category.TenantID)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("updating category ID %d", category.ID))
	}
	return expectOneRow(result, "category update")
}

func (r *catalogRepository) DeleteCategory(ctx context.Context, executor SQLExecutor, tenantID, id int64) error {
	var count int
	err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1 AND tenant_id = $2`, id, tenantID).Scan(&count)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("checking if category %d is in use", id))
	}
	if count > 0 {
		return fmt.Errorf("%w: category ID %d is used by %d product(s)", ErrInUse, id, count)
	}

	result, err := executor.ExecContext(ctx, `DELETE FROM categories WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("deleting category ID %d", id))
	}
	return expectOneRow(result, "category delete")
}

// --- Product Methods ---

const productSelect = `SELECT p.id, p.tenant_id, p.category_id, p.name, p.sku, p.description, p.price, p.unit,
	       p.is_active, p.sends_to_kitchen, p.created_at, p.updated_at, c.name AS category_name
	FROM products p
	LEFT JOIN categories c ON p.category_id = c.id`

func scanProduct(row scanner, p *models.Product, extra ...interface{}) error {
	dest := []interface{}{&p.ID, &p.TenantID, &p.CategoryID, &p.Name, &p.SKU, &p.Description, &p.Price, &p.Unit,
		&p.IsActive, &p.SendsToKitchen, &p.CreatedAt, &p.UpdatedAt, &p.CategoryName}
	return row.Scan(append(dest, extra...)...)
}

func (r *catalogRepository) CreateProduct(ctx context.Context, executor SQLExecutor, product *models.Product) (int64, error) {
	query := `INSERT INTO products
	            (tenant_id, category_id, name, sku, description, price, unit, is_active, sends_to_kitchen, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	          RETURNING id`
	now := time.Now()
	err := executor.QueryRowContext(ctx, query,
		product.TenantID, product.CategoryID, product.Name, product.SKU, product.Description,
		product.Price, product.Unit, product.IsActive, product.SendsToKitchen, now,
	).Scan(&product.ID)
	if err != nil {
		return 0, mapDBError(err, fmt.Sprintf("creating product '%s'", product.Name))
	}
	product.CreatedAt, product.UpdatedAt = now, now
	return product.ID, nil
}

func (r *catalogRepository) GetProductByID(ctx context.Context, tenantID, id int64) (*models.Product, error) {
	p := &models.Product{}
	if err := scanProduct(r.db.QueryRowContext(ctx, productSelect+` WHERE p.id = $1 AND p.tenant_id = $2`, id, tenantID), p); err != nil {
		return nil, mapDBError(err, fmt.Sprintf("getting product by ID %d", id))
	}
	return p, nil
}

func (r *catalogRepository) GetProducts(ctx context.Context, tenantID int64, filters models.ProductFilters) ([]models.Product, int, error) {
	products := []models.Product{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(strings.Replace(productSelect, "c.name AS category_name", "c.name AS category_name, COUNT(*) OVER() AS total_count", 1))

	conditions := []string{"p.tenant_id = $1"}
	args := []interface{}{tenantID}
	argCounter := 2

	if filters.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", argCounter))
		args = append(args, *filters.CategoryID)
		argCounter++
	}
	if filters.Active != nil {
		conditions = append(conditions, fmt.Sprintf("p.is_active = $%d", argCounter))
		args = append(args, *filters.Active)
		argCounter++
	}
	if filters.Search != nil && *filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(p.name ILIKE $%d OR p.sku ILIKE $%d)", argCounter, argCounter))
		args = append(args, "%"+*filters.Search+"%")
		argCounter++
	}

	queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	queryBuilder.WriteString(" ORDER BY p.name")
	limit, args := pageClause(filters.Page, filters.PageSize, argCounter, args)
	queryBuilder.WriteString(limit)

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, mapDBError(err, "querying products")
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p, &totalCount); err != nil {
			return nil, 0, mapDBError(err, "scanning product")
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, mapDBError(err, "iterating product rows")
	}
	return products, totalCount, nil
}

// GetProductsByIDs loads the tenant's products among ids. Products of other tenants
// are simply absent from the result.
func (r *catalogRepository) GetProductsByIDs(ctx context.Context, executor SQLExecutor, tenantID int64, ids []int64) (map[int64]models.Product, error) {
	products := make(map[int64]models.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}
	rows, err := executor.QueryContext(ctx, productSelect+` WHERE p.tenant_id = $1 AND p.id = ANY($2)`, tenantID, pq.Array(ids))
	if err != nil {
		return nil, mapDBError(err, "querying products by IDs")
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, mapDBError(err, "scanning product")
		}
		products[p.ID] = p
	}
	if err = rows.Err(); err != nil {
		return nil, mapDBError(err, "iterating product rows")
	}
	return products, nil
}

// FindProductForImport matches by SKU when one is given, else by exact name.
func (r *catalogRepository) FindProductForImport(ctx context.Context, executor SQLExecutor, tenantID int64, sku *string, name string) (*models.Product, error) {
	p := &models.Product{}
	var row *sql.Row
	if sku != nil && *sku != "" {
		row = executor.QueryRowContext(ctx, productSelect+` WHERE p.tenant_id = $1 AND p.sku = $2`, tenantID, *sku)
	} else {
		row = executor.QueryRowContext(ctx, productSelect+` WHERE p.tenant_id = $1 AND LOWER(p.name) = LOWER($2) ORDER BY p.id LIMIT 1`, tenantID, name)
	}
	if err := scanProduct(row, p); err != nil {
		return nil, mapDBError(err, "finding product for import")
	}
	return p, nil
}

func (r *catalogRepository) UpdateProduct(ctx context.Context, executor SQLExecutor, product *models.Product) error {
	query := `UPDATE products SET
	            category_id = $1, name = $2, sku = $3, description = $4, price = $5, unit = $6,
	            is_active = $7, sends_to_kitchen = $8, updated_at = $9
	          WHERE id = $10 AND tenant_id = $11`
	product.UpdatedAt = time.Now()
	result, err := executor.ExecContext(ctx, query,
		product.CategoryID, product.Name, product.SKU, product.Description, product.Price, product.Unit,
		product.IsActive, product.SendsToKitchen, product.UpdatedAt, product.ID, product.TenantID,
	)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("updating product ID %d", product.ID))
	}
	return expectOneRow(result, "product update")
}

func (r *catalogRepository) DeleteProduct(ctx context.Context, executor SQLExecutor, tenantID, id int64) error {
	result, err := executor.ExecContext(ctx, `DELETE FROM products WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return mapDBError(err, fmt.Sprintf("deleting product ID %d", id))
	}
	return expectOneRow(result, "product delete")
}

// IsProductReferenced reports whether invoices or orders point at the product.
func (r *catalogRepository) IsProductReferenced(ctx context.Context, tenantID, id int64) (bool, error) {
	var referenced bool
	query := `SELECT EXISTS (SELECT 1 FROM invoice_items ii JOIN invoices i ON ii.invoice_id = i.id
	                         WHERE ii.product_id = $1 AND i.tenant_id = $2)
	              OR EXISTS (SELECT 1 FROM order_items WHERE product_id = $1 AND tenant_id = $2)`
	if err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(&referenced); err != nil {
		return false, mapDBError(err, fmt.Sprintf("checking references of product %d", id))
	}
	return referenced, nil
}
