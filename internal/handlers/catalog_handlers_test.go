package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalogService struct {
	services.CatalogService
	err      error
	created  services.CreateProductRequest
	filters  models.ProductFilters
	uploaded []byte
}

func (f *fakeCatalogService) CreateProduct(_ context.Context, tenantID int64, req services.CreateProductRequest) (*models.Product, error) {
	f.created = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Product{ID: 1, Name: req.Name, Unit: req.Unit}, nil
}

func (f *fakeCatalogService) GetProducts(_ context.Context, tenantID int64, filters models.ProductFilters) ([]models.Product, int, error) {
	f.filters = filters
	return nil, 0, f.err
}

func (f *fakeCatalogService) ExportProducts(_ context.Context, tenantID int64, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := w.Write([]byte("PK"))
	return err
}

func (f *fakeCatalogService) ImportProducts(_ context.Context, tenantID int64, r io.Reader) (*services.ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.uploaded = data
	if f.err != nil {
		return nil, f.err
	}
	return &services.ImportResult{}, nil
}

func catalogEngine(svc services.CatalogService) *gin.Engine {
	h := NewCatalogHandler(svc)
	r := newTestEngine(models.RoleAdmin)
	r.POST("/products", h.CreateProduct)
	r.GET("/products", h.GetProducts)
	r.GET("/products/export", h.ExportProducts)
	r.POST("/products/import", h.ImportProducts)
	return r
}

func TestCreateProductValidatesUnit(t *testing.T) {
	svc := &fakeCatalogService{}
	r := catalogEngine(svc)

	w := doJSON(r, http.MethodPost, "/products", `{"name":"Cheese","price":"8.40","unit":"kg"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NotNil(t, svc.created.Price)
	assert.Equal(t, "8.4", svc.created.Price.String())

	w = doJSON(r, http.MethodPost, "/products", `{"name":"Cheese","price":"8.40","unit":"box"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unit")

	w = doJSON(r, http.MethodPost, "/products", `{"name":"Cheese","unit":"kg"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	svc.err = services.ErrPlanLimitReached
	w = doJSON(r, http.MethodPost, "/products", `{"name":"Cheese","price":1,"unit":"unit"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "PLAN_LIMIT_REACHED", errorCode(t, w))
}

func TestGetProductsFilters(t *testing.T) {
	svc := &fakeCatalogService{}
	r := catalogEngine(svc)

	w := doJSON(r, http.MethodGet, "/products?category_id=2&active=false&search=burg", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), *svc.filters.CategoryID)
	assert.False(t, *svc.filters.Active)
	assert.Equal(t, "burg", *svc.filters.Search)

	w = doJSON(r, http.MethodGet, "/products?active=maybe", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductWorkbookEndpoints(t *testing.T) {
	svc := &fakeCatalogService{}
	r := catalogEngine(svc)

	w := doJSON(r, http.MethodGet, "/products/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "PK", w.Body.String())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "products.xlsx")
	require.NoError(t, err)
	_, err = part.Write([]byte("workbook-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/products/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "workbook-bytes", string(svc.uploaded))

	w = doJSON(r, http.MethodPost, "/products/import", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeAuthService struct {
	services.AuthService
	err error
}

func (f *fakeAuthService) Login(_ context.Context, req services.LoginRequest) (*services.AuthResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &services.AuthResponse{User: &models.User{Username: req.Username}, AccessToken: "a", RefreshToken: "r"}, nil
}

func TestLoginUser(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   string
		status int
	}{
		{"ok", nil, `{"username":"ana","password":"secret"}`, http.StatusOK},
		{"missing password", nil, `{"username":"ana"}`, http.StatusBadRequest},
		{"bad credentials", services.ErrInvalidCredentials, `{"username":"ana","password":"x"}`, http.StatusUnauthorized},
		{"inactive", services.ErrUserInactive, `{"username":"ana","password":"x"}`, http.StatusForbidden},
		{"suspended tenant", services.ErrTenantInactive, `{"username":"ana","password":"x"}`, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAuthHandler(&fakeAuthService{err: tt.err})
			r := gin.New()
			r.POST("/auth/login", h.LoginUser)
			w := doJSON(r, http.MethodPost, "/auth/login", tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
