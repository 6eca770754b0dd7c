package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/services"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	maxImportBytes  = 10 << 20
)

// CatalogHandler serves categories and products.
type CatalogHandler struct {
	catalogService services.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(cs services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalogService: cs}
}

func (h *CatalogHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCategoryNotFound):
		respondNotFound(c, "Category not found.", err)
	case errors.Is(err, services.ErrProductNotFound):
		respondNotFound(c, "Product not found.", err)
	case errors.Is(err, services.ErrCategoryNameExists):
		respondConflict(c, "Category name already exists.", err)
	case errors.Is(err, services.ErrCategoryInUse):
		respondConflict(c, "Category cannot be deleted while products use it.", err)
	case errors.Is(err, services.ErrProductSKUExists):
		respondConflict(c, "Product SKU already exists.", err)
	case errors.Is(err, services.ErrImportFile):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid import file.", err.Error()))
	default:
		respondServiceError(c, err)
	}
}

// --- Categories ---

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req services.CreateCategoryRequest
	if !bindJSON(c, &req, "CreateCategory") {
		return
	}
	category, err := h.catalogService.CreateCategory(c.Request.Context(), currentTenantID(c), req)
	if err != nil {
		utils.LogError(err, "CreateCategory: Error from catalogService.CreateCategory")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (h *CatalogHandler) GetCategories(c *gin.Context) {
	categories, err := h.catalogService.GetCategories(c.Request.Context(), currentTenantID(c))
	if err != nil {
		utils.LogError(err, "GetCategories: Error from catalogService.GetCategories")
		h.respondError(c, err)
		return
	}
	if categories == nil {
		categories = []models.Category{}
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

func (h *CatalogHandler) GetCategoryByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "category")
	if !ok {
		return
	}
	category, err := h.catalogService.GetCategoryByID(c.Request.Context(), currentTenantID(c), id)
	if err != nil {
		utils.LogError(err, "GetCategoryByID: Error from catalogService.GetCategoryByID")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "category")
	if !ok {
		return
	}
	var req services.UpdateCategoryRequest
	if !bindJSON(c, &req, "UpdateCategory") {
		return
	}
	category, err := h.catalogService.UpdateCategory(c.Request.Context(), currentTenantID(c), id, req)
	if err != nil {
		utils.LogError(err, "UpdateCategory: Error from catalogService.UpdateCategory")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "category")
	if !ok {
		return
	}
	if err := h.catalogService.DeleteCategory(c.Request.Context(), currentTenantID(c), id); err != nil {
		utils.LogError(err, "DeleteCategory: Error from catalogService.DeleteCategory")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}

// --- Products ---

func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req services.CreateProductRequest
	if !bindJSON(c, &req, "CreateProduct") {
		return
	}
	product, err := h.catalogService.CreateProduct(c.Request.Context(), currentTenantID(c), req)
	if err != nil {
		utils.LogError(err, "CreateProduct: Error from catalogService.CreateProduct")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// GetProducts lists products, filtered by ?category_id, ?active and ?search.
func (h *CatalogHandler) GetProducts(c *gin.Context) {
	page, pageSize := parsePagination(c)
	categoryID, ok := optionalInt64Query(c, "category_id")
	if !ok {
		return
	}
	active, ok := optionalBoolQuery(c, "active")
	if !ok {
		return
	}
	filters := models.ProductFilters{
		CategoryID: categoryID,
		Active:     active,
		Search:     optionalStringQuery(c, "search"),
		Page:       page,
		PageSize:   pageSize,
	}

	products, total, err := h.catalogService.GetProducts(c.Request.Context(), currentTenantID(c), filters)
	if err != nil {
		utils.LogError(err, "GetProducts: Error from catalogService.GetProducts")
		h.respondError(c, err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	c.JSON(http.StatusOK, paged(products, total, page, pageSize))
}

func (h *CatalogHandler) GetProductByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "product")
	if !ok {
		return
	}
	product, err := h.catalogService.GetProductByID(c.Request.Context(), currentTenantID(c), id)
	if err != nil {
		utils.LogError(err, "GetProductByID: Error from catalogService.GetProductByID")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "product")
	if !ok {
		return
	}
	var req services.UpdateProductRequest
	if !bindJSON(c, &req, "UpdateProduct") {
		return
	}
	product, err := h.catalogService.UpdateProduct(c.Request.Context(), currentTenantID(c), id, req)
	if err != nil {
		utils.LogError(err, "UpdateProduct: Error from catalogService.UpdateProduct")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes the product, or only deactivates it when invoices reference it.
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "product")
	if !ok {
		return
	}
	result, err := h.catalogService.DeleteProduct(c.Request.Context(), currentTenantID(c), id)
	if err != nil {
		utils.LogError(err, "DeleteProduct: Error from catalogService.DeleteProduct")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportProducts sends the catalog as an xlsx workbook.
func (h *CatalogHandler) ExportProducts(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.catalogService.ExportProducts(c.Request.Context(), currentTenantID(c), &buf); err != nil {
		utils.LogError(err, "ExportProducts: Error from catalogService.ExportProducts")
		h.respondError(c, err)
		return
	}
	sendWorkbook(c, fmt.Sprintf("products-%s.xlsx", time.Now().Format(dateLayout)), &buf)
}

func sendWorkbook(c *gin.Context, filename string, buf *bytes.Buffer) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// ImportProducts reads an xlsx workbook uploaded as the multipart field "file".
func (h *CatalogHandler) ImportProducts(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "A workbook must be uploaded in the \"file\" field.", err.Error()))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		utils.LogError(err, "ImportProducts: Failed to open uploaded file")
		h.respondError(c, err)
		return
	}
	defer file.Close()

	result, err := h.catalogService.ImportProducts(c.Request.Context(), currentTenantID(c), file)
	if err != nil {
		utils.LogError(err, "ImportProducts: Error from catalogService.ImportProducts")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
