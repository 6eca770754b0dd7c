package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"restaurant_pos_backend/internal/database"
	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/plans"
	"restaurant_pos_backend/internal/repositories"
)

var (
	ErrTenantSlugExists = errors.New("tenant slug already exists")
	ErrUnknownPlan      = errors.New("unknown plan")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// --- Tenant DTOs ---

type CreateTenantRequest struct {
	Name          string  `json:"name" binding:"required,max=150"`
	Slug          string  `json:"slug" binding:"required,max=80"`
	Plan          string  `json:"plan"`
	AdminUsername string  `json:"admin_username" binding:"required,min=3,max=80"`
	AdminPassword string  `json:"admin_password" binding:"required,min=8"`
	AdminFullName *string `json:"admin_full_name"`
}

type UpdateTenantRequest struct {
	Name *string `json:"name" binding:"omitempty,max=150"`
	Plan *string `json:"plan"`
}

// CreateTenantResponse carries the new tenant and its first admin.
type CreateTenantResponse struct {
	Tenant *models.Tenant `json:"tenant"`
	Admin  *models.User   `json:"admin"`
}

// TenantDetails is a tenant with its current usage against its plan.
type TenantDetails struct {
	*models.Tenant
	Usage  *models.TenantUsage `json:"usage"`
	Limits plans.Limits        `json:"limits"`
}

// --- TenantService Interface ---
type TenantService interface {
	CreateTenant(ctx context.Context, req CreateTenantRequest) (*CreateTenantResponse, error)
	GetTenants(ctx context.Context, page, pageSize int) ([]models.Tenant, int, error)
	GetTenantByID(ctx context.Context, id int64) (*TenantDetails, error)
	UpdateTenant(ctx context.Context, id int64, req UpdateTenantRequest) (*models.Tenant, error)
	SetTenantActive(ctx context.Context, id int64, active bool) (*models.Tenant, error)
	Plans() *plans.Catalog
}

type tenantService struct {
	tenantRepo repositories.TenantRepository
	authRepo   repositories.AuthRepository
	catalog    *plans.Catalog
	db         *sql.DB
}

// NewTenantService creates a new instance of TenantService.
func NewTenantService(tenantRepo repositories.TenantRepository, authRepo repositories.AuthRepository, catalog *plans.Catalog, db *sql.DB) TenantService {
	if catalog == nil {
		catalog = plans.Default()
	}
	return &tenantService{tenantRepo: tenantRepo, authRepo: authRepo, catalog: catalog, db: db}
}

func (s *tenantService) Plans() *plans.Catalog {
	return s.catalog
}

// CreateTenant registers a restaurant and its first admin in one transaction.
func (s *tenantService) CreateTenant(ctx context.Context, req CreateTenantRequest) (*CreateTenantResponse, error) {
	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, fmt.Errorf("%w: slug may only contain lowercase letters, digits and dashes", ErrValidation)
	}
	plan := req.Plan
	if plan == "" {
		plan = s.catalog.Default
	}
	if !s.catalog.Has(plan) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	hashed, err := hashPassword(req.AdminPassword)
	if err != nil {
		return nil, err
	}

	tenant := &models.Tenant{Name: strings.TrimSpace(req.Name), Slug: slug, Plan: plan, IsActive: true}
	admin := &models.User{
		Username: strings.TrimSpace(req.AdminUsername),
		FullName: req.AdminFullName,
		Role:     models.RoleAdmin,
	}
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := s.tenantRepo.CreateTenant(ctx, tx, tenant); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return ErrTenantSlugExists
			}
			return fmt.Errorf("failed to create tenant: %w", err)
		}
		admin.TenantID = &tenant.ID
		if _, err := s.authRepo.CreateUser(ctx, tx, admin, hashed); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return ErrUsernameExists
			}
			return fmt.Errorf("failed to create tenant admin: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &CreateTenantResponse{Tenant: tenant, Admin: admin}, nil
}

func (s *tenantService) GetTenants(ctx context.Context, page, pageSize int) ([]models.Tenant, int, error) {
	tenants, total, err := s.tenantRepo.GetTenants(ctx, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get tenants: %w", err)
	}
	return tenants, total, nil
}

func (s *tenantService) getTenant(ctx context.Context, id int64) (*models.Tenant, error) {
	tenant, err := s.tenantRepo.GetTenantByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return tenant, nil
}

func (s *tenantService) GetTenantByID(ctx context.Context, id int64) (*TenantDetails, error) {
	tenant, err := s.getTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	usage, err := s.tenantRepo.GetUsage(ctx, s.db, id, monthStart(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant usage: %w", err)
	}
	// A plan removed from the catalog still shows the tenant, with zero limits.
	limits, _ := s.catalog.Get(tenant.Plan)
	return &TenantDetails{Tenant: tenant, Usage: usage, Limits: limits}, nil
}

func (s *tenantService) UpdateTenant(ctx context.Context, id int64, req UpdateTenantRequest) (*models.Tenant, error) {
	tenant, err := s.getTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		tenant.Name = name
	}
	if req.Plan != nil {
		if !s.catalog.Has(*req.Plan) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlan, *req.Plan)
		}
		tenant.Plan = *req.Plan
	}
	if err := s.tenantRepo.UpdateTenant(ctx, s.db, tenant); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}
	return tenant, nil
}

func (s *tenantService) SetTenantActive(ctx context.Context, id int64, active bool) (*models.Tenant, error) {
	if err := s.tenantRepo.SetTenantActive(ctx, s.db, id, active); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to change tenant status: %w", err)
	}
	return s.getTenant(ctx, id)
}
