package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/repositories"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.ConfigureJWT("middleware-test-secret", time.Minute, time.Hour)
}

type fakeTenants map[int64]*models.Tenant

func (f fakeTenants) GetTenantByID(_ context.Context, id int64) (*models.Tenant, error) {
	if t, ok := f[id]; ok {
		return t, nil
	}
	return nil, repositories.ErrNotFound
}

func accessToken(t *testing.T, userID int64, role string, tenantID *int64) string {
	t.Helper()
	token, err := utils.GenerateAccessToken(userID, "user", role, tenantID)
	require.NoError(t, err)
	return token
}

func tenantEngine(tenants TenantLookup) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler())
	api := r.Group("", AuthMiddleware(), TenantScopeMiddleware(tenants))
	api.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"tenant": c.GetInt64(ContextTenantID), "role": c.GetString(ContextUserRole)})
	})
	return r
}

func do(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := tenantEngine(fakeTenants{1: {ID: 1, IsActive: true}})
	tenantID := int64(1)

	w := do(r, http.MethodGet, "/whoami", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/whoami", map[string]string{"Authorization": "Token abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	refresh, err := utils.GenerateRefreshToken(3)
	require.NoError(t, err)
	w = do(r, http.MethodGet, "/whoami", map[string]string{"Authorization": "Bearer " + refresh})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/whoami", map[string]string{"Authorization": "Bearer " + accessToken(t, 3, models.RoleWaiter, &tenantID)})
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["tenant"])
	assert.Equal(t, models.RoleWaiter, body["role"])
}

func TestTenantScopeMiddleware(t *testing.T) {
	r := tenantEngine(fakeTenants{
		1: {ID: 1, IsActive: true},
		2: {ID: 2, IsActive: false},
	})
	one, two := int64(1), int64(2)
	superadmin := "Bearer " + accessToken(t, 1, models.RoleSuperadmin, nil)

	tests := []struct {
		name    string
		headers map[string]string
		want    int
		tenant  float64
	}{
		{"tenant user", map[string]string{"Authorization": "Bearer " + accessToken(t, 5, models.RoleAdmin, &one)}, http.StatusOK, 1},
		{"tenant user matching header", map[string]string{"Authorization": "Bearer " + accessToken(t, 5, models.RoleAdmin, &one), TenantHeader: "1"}, http.StatusOK, 1},
		{"tenant user other tenant", map[string]string{"Authorization": "Bearer " + accessToken(t, 5, models.RoleAdmin, &one), TenantHeader: "2"}, http.StatusForbidden, 0},
		{"suspended tenant", map[string]string{"Authorization": "Bearer " + accessToken(t, 6, models.RoleCashier, &two)}, http.StatusForbidden, 0},
		{"superadmin without header", map[string]string{"Authorization": superadmin}, http.StatusBadRequest, 0},
		{"superadmin bad header", map[string]string{"Authorization": superadmin, TenantHeader: "abc"}, http.StatusBadRequest, 0},
		{"superadmin unknown tenant", map[string]string{"Authorization": superadmin, TenantHeader: "9"}, http.StatusNotFound, 0},
		{"superadmin on suspended tenant", map[string]string{"Authorization": superadmin, TenantHeader: "2"}, http.StatusOK, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/whoami", tt.headers)
			require.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.want == http.StatusOK {
				var body map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, tt.tenant, body["tenant"])
			}
		})
	}
}

func TestRoleAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/admin", AuthMiddleware(), RoleAuthMiddleware(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	tenantID := int64(1)

	w := do(r, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + accessToken(t, 1, models.RoleKitchen, &tenantID)})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodGet, "/admin", map[string]string{"Authorization": "Bearer " + accessToken(t, 1, models.RoleAdmin, &tenantID)})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestErrorHandler(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{fmt.Errorf("creating table: %w", repositories.ErrDuplicateKey), http.StatusConflict, utils.ErrCodeConflict},
		{fmt.Errorf("deleting: %w", repositories.ErrForeignKey), http.StatusConflict, utils.ErrCodeConflict},
		{fmt.Errorf("query: %w", repositories.ErrConnection), http.StatusServiceUnavailable, utils.ErrCodeUnavailable},
		{errors.New("boom"), http.StatusInternalServerError, utils.ErrCodeInternalServerError},
		{utils.NewAPIError(http.StatusTeapot, "TEAPOT", "short and stout", nil), http.StatusTeapot, "TEAPOT"},
	}
	for _, tt := range tests {
		r := gin.New()
		r.Use(ErrorHandler())
		r.GET("/", func(c *gin.Context) { _ = c.Error(tt.err) })

		w := do(r, http.MethodGet, "/", nil)
		assert.Equal(t, tt.want, w.Code, tt.err.Error())
		var body struct {
			Error utils.APIError `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, tt.code, body.Error.Code)
	}
}

func TestErrorHandler_KeepsWrittenResponse(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/", func(c *gin.Context) {
		_ = c.Error(errors.New("logged only"))
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
	})
	w := do(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := do(r, http.MethodGet, "/", nil)
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	w = do(r, http.MethodGet, "/", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestRateLimit(t *testing.T) {
	limiter := NewIPRateLimiter(1, 2)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	r := gin.New()
	r.Use(RateLimit(limiter))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/", nil).Code)

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", nil).Code)

	now = now.Add(time.Hour)
	limiter.Cleanup()
	assert.Empty(t, limiter.visitors)
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(50 * time.Millisecond))
	r.GET("/", func(c *gin.Context) {
		deadline, ok := c.Request.Context().Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
		c.Status(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", nil).Code)
}

type deadlineTenants struct {
	fakeTenants
	sawDeadline bool
}

func (d *deadlineTenants) GetTenantByID(ctx context.Context, id int64) (*models.Tenant, error) {
	_, d.sawDeadline = ctx.Deadline()
	return d.fakeTenants.GetTenantByID(ctx, id)
}

func TestTimeout_ReachesTenantLookup(t *testing.T) {
	tenants := &deadlineTenants{fakeTenants: fakeTenants{1: {ID: 1, IsActive: true}}}
	r := gin.New()
	r.Use(Timeout(time.Second))
	r.GET("/whoami", AuthMiddleware(), TenantScopeMiddleware(tenants), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tenantID := int64(1)
	w := do(r, http.MethodGet, "/whoami", map[string]string{"Authorization": "Bearer " + accessToken(t, 5, models.RoleAdmin, &tenantID)})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, tenants.sawDeadline)
}
