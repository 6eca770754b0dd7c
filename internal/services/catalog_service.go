package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/plans"
	"restaurant_pos_backend/internal/repositories"

	"github.com/shopspring/decimal"
)

var (
	ErrCategoryNotFound   = errors.New("category not found")
	ErrCategoryNameExists = errors.New("category name already exists")
	ErrCategoryInUse      = errors.New("category is used by products")
	ErrProductNotFound    = errors.New("product not found")
	ErrProductSKUExists   = errors.New("product SKU already exists")
	ErrProductInactive    = errors.New("product is not active")
)

// --- Category DTOs ---
type CreateCategoryRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description"`
}

type UpdateCategoryRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description"`
}

// --- Product DTOs ---
type CreateProductRequest struct {
	CategoryID     *int64           `json:"category_id"`
	Name           string           `json:"name" binding:"required,max=150"`
	SKU            *string          `json:"sku" binding:"omitempty,max=60"`
	Description    *string          `json:"description"`
	Price          *decimal.Decimal `json:"price" binding:"required"`
	Unit           string           `json:"unit" binding:"required,product_unit"`
	IsActive       *bool            `json:"is_active"`
	SendsToKitchen *bool            `json:"sends_to_kitchen"`
}

type UpdateProductRequest struct {
	CategoryID     *int64           `json:"category_id"`
	Name           *string          `json:"name" binding:"omitempty,max=150"`
	SKU            *string          `json:"sku" binding:"omitempty,max=60"`
	Description    *string          `json:"description"`
	Price          *decimal.Decimal `json:"price"`
	Unit           *string          `json:"unit" binding:"omitempty,product_unit"`
	IsActive       *bool            `json:"is_active"`
	SendsToKitchen *bool            `json:"sends_to_kitchen"`
}

// DeleteProductResult tells the caller whether the product was removed or only deactivated.
type DeleteProductResult struct {
	Deleted     bool `json:"deleted"`
	Deactivated bool `json:"deactivated"`
}

// --- CatalogService Interface ---
type CatalogService interface {
	CreateCategory(ctx context.Context, tenantID int64, req CreateCategoryRequest) (*models.Category, error)
	GetCategoryByID(ctx context.Context, tenantID, id int64) (*models.Category, error)
	GetCategories(ctx context.Context, tenantID int64) ([]models.Category, error)
	UpdateCategory(ctx context.Context, tenantID, id int64, req UpdateCategoryRequest) (*models.Category, error)
	DeleteCategory(ctx context.Context, tenantID, id int64) error

	CreateProduct(ctx context.Context, tenantID int64, req CreateProductRequest) (*models.Product, error)
	GetProductByID(ctx context.Context, tenantID, id int64) (*models.Product, error)
	GetProducts(ctx context.Context, tenantID int64, filters models.ProductFilters) ([]models.Product, int, error)
	UpdateProduct(ctx context.Context, tenantID, id int64, req UpdateProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, tenantID, id int64) (*DeleteProductResult, error)

	ExportProducts(ctx context.Context, tenantID int64, w io.Writer) error
	ImportProducts(ctx context.Context, tenantID int64, r io.Reader) (*ImportResult, error)
}

type catalogService struct {
	catalogRepo repositories.CatalogRepository
	guard       *planGuard
	db          *sql.DB
}

// NewCatalogService creates a new instance of CatalogService.
func NewCatalogService(catalogRepo repositories.CatalogRepository, tenantRepo repositories.TenantRepository, catalog *plans.Catalog, db *sql.DB) CatalogService {
	return &catalogService{catalogRepo: catalogRepo, guard: newPlanGuard(tenantRepo, catalog), db: db}
}

// --- Categories ---

func (s *catalogService) CreateCategory(ctx context.Context, tenantID int64, req CreateCategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: category name cannot be empty", ErrValidation)
	}
	category := &models.Category{TenantID: tenantID, Name: name, Description: req.Description}
	if _, err := s.catalogRepo.CreateCategory(ctx, s.db, category); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrCategoryNameExists
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return category, nil
}

func (s *catalogService) GetCategoryByID(ctx context.Context, tenantID, id int64) (*models.Category, error) {
	category, err := s.catalogRepo.GetCategoryByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return category, nil
}

func (s *catalogService) GetCategories(ctx context.Context, tenantID int64) ([]models.Category, error) {
	categories, err := s.catalogRepo.GetCategories(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, tenantID, id int64, req UpdateCategoryRequest) (*models.Category, error) {
	category, err := s.GetCategoryByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: category name cannot be empty", ErrValidation)
		}
		category.Name = name
	}
	if req.Description != nil {
		category.Description = req.Description
	}
	if err := s.catalogRepo.UpdateCategory(ctx, s.db, category); err != nil {
		switch {
		case errors.Is(err, repositories.ErrDuplicateKey):
			return nil, ErrCategoryNameExists
		case errors.Is(err, repositories.ErrNotFound):
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return category, nil
}

func (s *catalogService) DeleteCategory(ctx context.Context, tenantID, id int64) error {
	err := s.catalogRepo.DeleteCategory(ctx, s.db, tenantID, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrInUse), errors.Is(err, repositories.ErrForeignKey):
		return ErrCategoryInUse
	case errors.Is(err, repositories.ErrNotFound):
		return ErrCategoryNotFound
	}
	return fmt.Errorf("failed to delete category: %w", err)
}

// --- Products ---

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	if !price.Equal(price.Round(2)) {
		return fmt.Errorf("%w: price has more than two decimals", ErrValidation)
	}
	return nil
}

func (s *catalogService) checkCategory(ctx context.Context, tenantID int64, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	if _, err := s.GetCategoryByID(ctx, tenantID, *categoryID); err != nil {
		return err
	}
	return nil
}

func mapProductWriteError(err error, op string) error {
	switch {
	case errors.Is(err, repositories.ErrDuplicateKey):
		return ErrProductSKUExists
	case errors.Is(err, repositories.ErrNotFound):
		return ErrProductNotFound
	case errors.Is(err, repositories.ErrForeignKey):
		return ErrCategoryNotFound
	}
	return fmt.Errorf("failed to %s product: %w", op, err)
}

// blankToNil treats an empty SKU as no SKU so the unique index ignores it.
func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func (s *catalogService) CreateProduct(ctx context.Context, tenantID int64, req CreateProductRequest) (*models.Product, error) {
	if !models.IsValidUnit(req.Unit) {
		return nil, fmt.Errorf("%w: unknown unit %q", ErrValidation, req.Unit)
	}
	if req.Price == nil {
		return nil, fmt.Errorf("%w: price is required", ErrValidation)
	}
	if err := validatePrice(*req.Price); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, tenantID, req.CategoryID); err != nil {
		return nil, err
	}
	if err := s.guard.check(ctx, s.db, tenantID, plans.ResourceProducts); err != nil {
		return nil, err
	}

	product := &models.Product{
		TenantID:       tenantID,
		CategoryID:     req.CategoryID,
		Name:           strings.TrimSpace(req.Name),
		SKU:            blankToNil(req.SKU),
		Description:    req.Description,
		Price:          *req.Price,
		Unit:           req.Unit,
		IsActive:       true,
		SendsToKitchen: true,
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if req.SendsToKitchen != nil {
		product.SendsToKitchen = *req.SendsToKitchen
	}
	if _, err := s.catalogRepo.CreateProduct(ctx, s.db, product); err != nil {
		return nil, mapProductWriteError(err, "create")
	}
	return s.GetProductByID(ctx, tenantID, product.ID)
}

func (s *catalogService) GetProductByID(ctx context.Context, tenantID, id int64) (*models.Product, error) {
	product, err := s.catalogRepo.GetProductByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *catalogService) GetProducts(ctx context.Context, tenantID int64, filters models.ProductFilters) ([]models.Product, int, error) {
	products, total, err := s.catalogRepo.GetProducts(ctx, tenantID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get products: %w", err)
	}
	return products, total, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, tenantID, id int64, req UpdateProductRequest) (*models.Product, error) {
	product, err := s.GetProductByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if req.CategoryID != nil {
		if err := s.checkCategory(ctx, tenantID, req.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = req.CategoryID
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: product name cannot be empty", ErrValidation)
		}
		product.Name = name
	}
	if req.SKU != nil {
		product.SKU = blankToNil(req.SKU)
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.Price != nil {
		if err := validatePrice(*req.Price); err != nil {
			return nil, err
		}
		product.Price = *req.Price
	}
	if req.Unit != nil {
		if !models.IsValidUnit(*req.Unit) {
			return nil, fmt.Errorf("%w: unknown unit %q", ErrValidation, *req.Unit)
		}
		product.Unit = *req.Unit
	}
	if req.IsActive != nil {
		if *req.IsActive && !product.IsActive {
			if err := s.guard.check(ctx, s.db, tenantID, plans.ResourceProducts); err != nil {
				return nil, err
			}
		}
		product.IsActive = *req.IsActive
	}
	if req.SendsToKitchen != nil {
		product.SendsToKitchen = *req.SendsToKitchen
	}

	if err := s.catalogRepo.UpdateProduct(ctx, s.db, product); err != nil {
		return nil, mapProductWriteError(err, "update")
	}
	return s.GetProductByID(ctx, tenantID, id)
}

// DeleteProduct hard deletes a product nobody refers to. A product that appears on
// invoices or orders is deactivated instead so history keeps its reference.
func (s *catalogService) DeleteProduct(ctx context.Context, tenantID, id int64) (*DeleteProductResult, error) {
	product, err := s.GetProductByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	referenced, err := s.catalogRepo.IsProductReferenced(ctx, tenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check product references: %w", err)
	}
	if referenced {
		product.IsActive = false
		if err := s.catalogRepo.UpdateProduct(ctx, s.db, product); err != nil {
			return nil, mapProductWriteError(err, "deactivate")
		}
		return &DeleteProductResult{Deactivated: true}, nil
	}
	if err := s.catalogRepo.DeleteProduct(ctx, s.db, tenantID, id); err != nil {
		if errors.Is(err, repositories.ErrForeignKey) {
			// Referenced between the check and the delete.
			product.IsActive = false
			if err := s.catalogRepo.UpdateProduct(ctx, s.db, product); err != nil {
				return nil, mapProductWriteError(err, "deactivate")
			}
			return &DeleteProductResult{Deactivated: true}, nil
		}
		return nil, mapProductWriteError(err, "delete")
	}
	return &DeleteProductResult{Deleted: true}, nil
}
