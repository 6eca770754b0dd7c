package handlers

import (
	"errors"
	"net/http"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/services"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// TableHandler serves the dining room layout.
type TableHandler struct {
	tableService services.TableService
}

func NewTableHandler(ts services.TableService) *TableHandler {
	return &TableHandler{tableService: ts}
}

func (h *TableHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTableNotFound):
		respondNotFound(c, "Table not found.", err)
	case errors.Is(err, services.ErrTableNameExists):
		respondConflict(c, "Table name already exists.", err)
	case errors.Is(err, services.ErrTableOccupied):
		respondConflict(c, "Table is occupied.", err)
	default:
		respondServiceError(c, err)
	}
}

func (h *TableHandler) CreateTable(c *gin.Context) {
	var req services.CreateTableRequest
	if !bindJSON(c, &req, "CreateTable") {
		return
	}
	table, err := h.tableService.CreateTable(c.Request.Context(), currentTenantID(c), req)
	if err != nil {
		utils.LogError(err, "CreateTable: Error from tableService.CreateTable")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, table)
}

// GetTables lists tables with the id of their open order, if any.
func (h *TableHandler) GetTables(c *gin.Context) {
	tables, err := h.tableService.GetTables(c.Request.Context(), currentTenantID(c))
	if err != nil {
		utils.LogError(err, "GetTables: Error from tableService.GetTables")
		h.respondError(c, err)
		return
	}
	if tables == nil {
		tables = []models.DiningTable{}
	}
	c.JSON(http.StatusOK, gin.H{"data": tables})
}

func (h *TableHandler) GetTableByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "table")
	if !ok {
		return
	}
	table, err := h.tableService.GetTableByID(c.Request.Context(), currentTenantID(c), id)
	if err != nil {
		utils.LogError(err, "GetTableByID: Error from tableService.GetTableByID")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (h *TableHandler) UpdateTable(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "table")
	if !ok {
		return
	}
	var req services.UpdateTableRequest
	if !bindJSON(c, &req, "UpdateTable") {
		return
	}
	table, err := h.tableService.UpdateTable(c.Request.Context(), currentTenantID(c), id, req)
	if err != nil {
		utils.LogError(err, "UpdateTable: Error from tableService.UpdateTable")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

func (h *TableHandler) DeleteTable(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "table")
	if !ok {
		return
	}
	if err := h.tableService.DeleteTable(c.Request.Context(), currentTenantID(c), id); err != nil {
		utils.LogError(err, "DeleteTable: Error from tableService.DeleteTable")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Table deleted successfully"})
}
