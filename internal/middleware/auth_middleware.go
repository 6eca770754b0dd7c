package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/repositories"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by the middlewares in this package.
const (
	ContextUserID    = "userID"
	ContextUsername  = "username"
	ContextUserRole  = "userRole"
	ContextTenantID  = "tenantID"
	ContextRequestID = "requestID"

	TenantHeader = "X-Tenant-ID"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
// Only access tokens are accepted; refresh tokens are rejected.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Authorization header required", nil))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, "Invalid authorization header format. Use Bearer <token>", nil))
			return
		}

		claims, err := utils.ValidateToken(parts[1], utils.TokenTypeAccess)
		if err != nil {
			message := "Invalid or expired token"
			if errors.Is(err, utils.ErrWrongTokenType) {
				message = "Refresh tokens cannot be used to call the API"
			}
			utils.RespondWithError(c, utils.NewAPIError(http.StatusUnauthorized, utils.ErrCodeUnauthorized, message, nil))
			return
		}

		// Set user information in the context for downstream handlers
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextUserRole, claims.Role)
		if claims.TenantID != nil {
			c.Set(ContextTenantID, *claims.TenantID)
		}

		c.Next()
	}
}

// RoleAuthMiddleware creates a Gin middleware for role-based authorization.
// It checks if the user role (from JWT claims) is one of the allowed roles.
func RoleAuthMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleStr := c.GetString(ContextUserRole)
		if roleStr == "" {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "User role not found in token claims", nil))
			return
		}

		for _, r := range allowedRoles {
			if strings.EqualFold(roleStr, r) {
				c.Next()
				return
			}
		}
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden,
			"You do not have permission to access this resource. Required roles: "+strings.Join(allowedRoles, ", "), nil))
	}
}

// TenantLookup is the part of the tenant repository the tenant scope needs.
type TenantLookup interface {
	GetTenantByID(ctx context.Context, id int64) (*models.Tenant, error)
}

// TenantScopeMiddleware resolves the tenant every tenant-scoped route works on.
// Tenant users are pinned to the tenant in their token. The superadmin has no
// tenant and picks one with the X-Tenant-ID header. Users of a suspended tenant
// are turned away even while their token is still valid.
func TenantScopeMiddleware(tenants TenantLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		header := strings.TrimSpace(c.GetHeader(TenantHeader))

		var tenantID int64
		if role == models.RoleSuperadmin {
			if header == "" {
				utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "The "+TenantHeader+" header is required for superadmin requests", nil))
				return
			}
			id, err := strconv.ParseInt(header, 10, 64)
			if err != nil || id <= 0 {
				utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid "+TenantHeader+" header", nil))
				return
			}
			tenantID = id
		} else {
			id, ok := c.Get(ContextTenantID)
			if !ok {
				utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "User is not bound to a tenant", nil))
				return
			}
			tenantID = id.(int64)
			if header != "" && header != strconv.FormatInt(tenantID, 10) {
				utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Cannot act on another tenant", nil))
				return
			}
		}

		tenant, err := tenants.GetTenantByID(c.Request.Context(), tenantID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Tenant not found", nil))
				return
			}
			_ = c.Error(err)
			c.Abort()
			return
		}
		if !tenant.IsActive && role != models.RoleSuperadmin {
			utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Tenant is suspended", nil))
			return
		}

		c.Set(ContextTenantID, tenantID)
		c.Next()
	}
}
