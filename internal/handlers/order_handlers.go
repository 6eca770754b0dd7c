package handlers

import (
	"errors"
	"net/http"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/services"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// OrderHandler holds the order service.
type OrderHandler struct {
	orderService services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(os services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: os}
}

// respondError covers order errors plus the invoice and kitchen errors that
// checkout and serving can surface.
func (h *OrderHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		respondNotFound(c, "Order not found.", err)
	case errors.Is(err, services.ErrOrderItemNotFound), errors.Is(err, services.ErrItemNotInOrder):
		respondNotFound(c, "Order item not found.", err)
	case errors.Is(err, services.ErrTableNotFound):
		respondNotFound(c, "Table not found.", err)
	case errors.Is(err, services.ErrClientNotFound):
		respondNotFound(c, "Client not found.", err)
	case errors.Is(err, services.ErrProductNotFound):
		respondNotFound(c, "Product not found.", err)
	case errors.Is(err, services.ErrProductInactive):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Product is not active.", err.Error()))
	case errors.Is(err, services.ErrInvalidPayment), errors.Is(err, services.ErrPaymentMismatch):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid payments.", err.Error()))
	case errors.Is(err, services.ErrInvalidTransition):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid kitchen status transition.", err.Error()))
	case errors.Is(err, services.ErrTableOccupied):
		respondConflict(c, "Table already has an open order.", err)
	case errors.Is(err, services.ErrOrderNotOpen):
		respondConflict(c, "Order is not open.", err)
	case errors.Is(err, services.ErrItemAlreadySent):
		respondConflict(c, "Item has already been sent to the kitchen.", err)
	case errors.Is(err, services.ErrNothingToSend):
		respondConflict(c, "Order has no pending items.", err)
	case errors.Is(err, services.ErrOrderHasKitchenItems):
		respondConflict(c, "Order has items already sent to the kitchen.", err)
	case errors.Is(err, services.ErrTransitionConflict):
		respondConflict(c, "Item is no longer in the expected kitchen status.", err)
	default:
		respondServiceError(c, err)
	}
}

// OpenOrder opens a tab on a table, or a counter order when no table is given.
func (h *OrderHandler) OpenOrder(c *gin.Context) {
	var req services.OpenOrderRequest
	if !bindJSON(c, &req, "OpenOrder") {
		return
	}
	order, err := h.orderService.OpenOrder(c.Request.Context(), currentTenantID(c), currentUserID(c), req)
	if err != nil {
		utils.LogError(err, "OpenOrder: Error from orderService.OpenOrder")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GetOrders lists orders filtered by ?status and ?table_id.
func (h *OrderHandler) GetOrders(c *gin.Context) {
	page, pageSize := parsePagination(c)
	tableID, ok := optionalInt64Query(c, "table_id")
	if !ok {
		return
	}
	status := optionalStringQuery(c, "status")
	if status != nil {
		switch *status {
		case models.OrderStatusOpen, models.OrderStatusClosed, models.OrderStatusCancelled:
		default:
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid status filter.", *status))
			return
		}
	}

	filters := models.OrderFilters{TableID: tableID, Status: status, Page: page, PageSize: pageSize}
	orders, total, err := h.orderService.GetOrders(c.Request.Context(), currentTenantID(c), filters)
	if err != nil {
		utils.LogError(err, "GetOrders: Error from orderService.GetOrders")
		h.respondError(c, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	c.JSON(http.StatusOK, paged(orders, total, page, pageSize))
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id", "order")
	if !ok {
		return
	}
	order, err := h.orderService.GetOrderByID(c.Request.Context(), currentTenantID(c), orderID)
	if err != nil {
		utils.LogError(err, "GetOrderByID: Error from orderService.GetOrderByID")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) AddItems(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id", "order")
	if !ok {
		return
	}
	var req services.AddItemsRequest
	if !bindJSON(c, &req, "AddItems") {
		return
	}
	order, err := h.orderService.AddItems(c.Request.Context(), currentTenantID(c), orderID, req)
	if err != nil {
		utils.LogError(err, "AddItems: Error from orderService.AddItems")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) RemoveItem(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id", "order")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemId", "item")
	if !ok {
		return
	}
	order, err := h.orderService.RemoveItem(c.Request.Context(), currentTenantID(c), orderID, itemID)
	if err != nil {
		utils.LogError(err, "RemoveItem: Error from orderService.RemoveItem")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// SendToKitchen dispatches every pending item of the order.
func (h *OrderHandler) SendToKitchen(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id", "order")
	if !ok {
		return
	}
	order, err := h.orderService.SendToKitchen(c.Request.Context(), currentTenantID(c), orderID)
	if err != nil {
		utils.LogError(err, "SendToKitchen: Error from orderService.SendToKitchen")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) MarkServed(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id", "order")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(c, "itemId", "item")
	if !ok {
		return
	}
	item, err := h.orderService.MarkServed(c.Request.Context(), currentTenantID(c), currentRole(c), orderID, itemID)
	if err != nil {
		utils.LogError(err, "MarkServed: Error from orderService.MarkServed")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Checkout bills the order, closes it and frees its table.
func (h *OrderHandler) Checkout(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id", "order")
	if !ok {
		return
	}
	var req services.CheckoutRequest
	if !bindJSON(c, &req, "Checkout") {
		return
	}
	result, err := h.orderService.Checkout(c.Request.Context(), currentTenantID(c), currentUserID(c), orderID, req)
	if err != nil {
		utils.LogError(err, "Checkout: Error from orderService.Checkout")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "id", "order")
	if !ok {
		return
	}
	order, err := h.orderService.CancelOrder(c.Request.Context(), currentTenantID(c), orderID)
	if err != nil {
		utils.LogError(err, "CancelOrder: Error from orderService.CancelOrder")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
