package handlers

import (
	"errors"
	"net/http"
	"time"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/services"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// KitchenHandler serves the kitchen board.
type KitchenHandler struct {
	kitchenService services.KitchenService
}

func NewKitchenHandler(ks services.KitchenService) *KitchenHandler {
	return &KitchenHandler{kitchenService: ks}
}

// GetQueue returns the tickets the board shows. The board polls this endpoint.
func (h *KitchenHandler) GetQueue(c *gin.Context) {
	tickets, err := h.kitchenService.Queue(c.Request.Context(), currentTenantID(c))
	if err != nil {
		utils.LogError(err, "GetQueue: Error from kitchenService.Queue")
		respondServiceError(c, err)
		return
	}
	if tickets == nil {
		tickets = []models.KitchenTicket{}
	}
	c.JSON(http.StatusOK, gin.H{"data": tickets, "generated_at": time.Now()})
}

// AdvanceItem moves one item a step forward: preparing, ready or served.
func (h *KitchenHandler) AdvanceItem(c *gin.Context) {
	itemID, ok := parseIDParam(c, "itemId", "item")
	if !ok {
		return
	}
	var req services.AdvanceItemRequest
	if !bindJSON(c, &req, "AdvanceItem") {
		return
	}

	item, err := h.kitchenService.Advance(c.Request.Context(), currentTenantID(c), currentRole(c), itemID, req.Status)
	if err != nil {
		utils.LogError(err, "AdvanceItem: Error from kitchenService.Advance")
		switch {
		case errors.Is(err, services.ErrOrderItemNotFound):
			respondNotFound(c, "Order item not found.", err)
		case errors.Is(err, services.ErrInvalidTransition):
			utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeBadRequest, "Invalid kitchen status transition.", err.Error()))
		case errors.Is(err, services.ErrTransitionConflict):
			respondConflict(c, "Item is no longer in the expected kitchen status.", err)
		default:
			respondServiceError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, item)
}
