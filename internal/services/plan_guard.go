package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant_pos_backend/internal/plans"
	"restaurant_pos_backend/internal/repositories"
)

// planGuard enforces the resource caps of the tenant's plan.
type planGuard struct {
	tenantRepo repositories.TenantRepository
	catalog    *plans.Catalog
	now        func() time.Time
}

func newPlanGuard(tenantRepo repositories.TenantRepository, catalog *plans.Catalog) *planGuard {
	if catalog == nil {
		catalog = plans.Default()
	}
	return &planGuard{tenantRepo: tenantRepo, catalog: catalog, now: time.Now}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// check fails with ErrPlanLimitReached when the tenant cannot create one more resource.
// Counting runs on executor so a caller inside a transaction sees its own writes.
func (g *planGuard) check(ctx context.Context, executor repositories.SQLExecutor, tenantID int64, resource plans.Resource) error {
	tenant, err := g.tenantRepo.GetTenantByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrTenantNotFound
		}
		return fmt.Errorf("failed to load tenant %d: %w", tenantID, err)
	}
	if !tenant.IsActive {
		return ErrTenantInactive
	}
	limits, err := g.catalog.Get(tenant.Plan)
	if err != nil {
		return fmt.Errorf("tenant %d: %w", tenantID, err)
	}
	max := limits.Max(resource)
	if max == 0 {
		return nil
	}

	usage, err := g.tenantRepo.GetUsage(ctx, executor, tenantID, monthStart(g.now()))
	if err != nil {
		return fmt.Errorf("failed to count usage of tenant %d: %w", tenantID, err)
	}
	var current int
	switch resource {
	case plans.ResourceUsers:
		current = usage.Users
	case plans.ResourceProducts:
		current = usage.Products
	case plans.ResourceTables:
		current = usage.Tables
	case plans.ResourceInvoices:
		current = usage.InvoicesThisMonth
	}
	if !limits.Allows(resource, current) {
		return fmt.Errorf("%w: %s plan allows %d %s", ErrPlanLimitReached, tenant.Plan, max, resource)
	}
	return nil
}
