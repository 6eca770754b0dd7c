package handlers

import (
	"errors"
	"net/http"

	"restaurant_pos_backend/internal/services"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// TenantHandler serves the superadmin's tenant management.
type TenantHandler struct {
	tenantService services.TenantService
}

func NewTenantHandler(ts services.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: ts}
}

func (h *TenantHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTenantNotFound):
		respondNotFound(c, "Tenant not found.", err)
	case errors.Is(err, services.ErrTenantSlugExists):
		respondConflict(c, "Tenant slug already exists.", err)
	case errors.Is(err, services.ErrUsernameExists):
		respondConflict(c, "Admin username already exists.", err)
	default:
		respondServiceError(c, err)
	}
}

// CreateTenant registers a tenant together with its first admin.
func (h *TenantHandler) CreateTenant(c *gin.Context) {
	var req services.CreateTenantRequest
	if !bindJSON(c, &req, "CreateTenant") {
		return
	}
	resp, err := h.tenantService.CreateTenant(c.Request.Context(), req)
	if err != nil {
		utils.LogError(err, "CreateTenant: Error from tenantService.CreateTenant")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *TenantHandler) GetTenants(c *gin.Context) {
	page, pageSize := parsePagination(c)
	tenants, total, err := h.tenantService.GetTenants(c.Request.Context(), page, pageSize)
	if err != nil {
		utils.LogError(err, "GetTenants: Error from tenantService.GetTenants")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, paged(tenants, total, page, pageSize))
}

// GetTenantByID returns the tenant with its usage against its plan limits.
func (h *TenantHandler) GetTenantByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "tenant")
	if !ok {
		return
	}
	details, err := h.tenantService.GetTenantByID(c.Request.Context(), id)
	if err != nil {
		utils.LogError(err, "GetTenantByID: Error from tenantService.GetTenantByID")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *TenantHandler) UpdateTenant(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "tenant")
	if !ok {
		return
	}
	var req services.UpdateTenantRequest
	if !bindJSON(c, &req, "UpdateTenant") {
		return
	}
	tenant, err := h.tenantService.UpdateTenant(c.Request.Context(), id, req)
	if err != nil {
		utils.LogError(err, "UpdateTenant: Error from tenantService.UpdateTenant")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

func (h *TenantHandler) ActivateTenant(c *gin.Context) { h.setActive(c, true) }
func (h *TenantHandler) SuspendTenant(c *gin.Context)  { h.setActive(c, false) }

func (h *TenantHandler) setActive(c *gin.Context, active bool) {
	id, ok := parseIDParam(c, "id", "tenant")
	if !ok {
		return
	}
	tenant, err := h.tenantService.SetTenantActive(c.Request.Context(), id, active)
	if err != nil {
		utils.LogError(err, "setActive: Error from tenantService.SetTenantActive")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tenant)
}

// GetPlans lists the plan catalog.
func (h *TenantHandler) GetPlans(c *gin.Context) {
	catalog := h.tenantService.Plans()
	c.JSON(http.StatusOK, gin.H{"default": catalog.Default, "plans": catalog.Plans})
}
