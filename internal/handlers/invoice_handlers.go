package handlers

import (
	"errors"
	"net/http"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/services"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// InvoiceHandler holds the invoice service.
type InvoiceHandler struct {
	invoiceService services.InvoiceService
}

func NewInvoiceHandler(is services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: is}
}

func (h *InvoiceHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvoiceNotFound):
		respondNotFound(c, "Invoice not found.", err)
	case errors.Is(err, services.ErrClientNotFound):
		respondNotFound(c, "Client not found.", err)
	case errors.Is(err, services.ErrProductNotFound):
		respondNotFound(c, "Product not found.", err)
	case errors.Is(err, services.ErrTableNotFound):
		respondNotFound(c, "Table not found.", err)
	case errors.Is(err, services.ErrProductInactive):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Product is not active.", err.Error()))
	case errors.Is(err, services.ErrInvalidPayment), errors.Is(err, services.ErrPaymentMismatch):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid payments.", err.Error()))
	case errors.Is(err, services.ErrInvoiceAlreadyVoided):
		respondConflict(c, "Invoice is already voided.", err)
	default:
		respondServiceError(c, err)
	}
}

// CreateInvoice records a sale. An optional kitchen block also sends items to the kitchen.
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req services.CreateInvoiceRequest
	if !bindJSON(c, &req, "CreateInvoice") {
		return
	}
	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), currentTenantID(c), currentUserID(c), req)
	if err != nil {
		utils.LogError(err, "CreateInvoice: Error from invoiceService.CreateInvoice")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

// GetInvoices lists invoices filtered by ?from, ?to (YYYY-MM-DD, inclusive),
// ?client_id, ?payment_method and ?status.
func (h *InvoiceHandler) GetInvoices(c *gin.Context) {
	page, pageSize := parsePagination(c)
	from, ok := optionalDateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := optionalDateQuery(c, "to")
	if !ok {
		return
	}
	clientID, ok := optionalInt64Query(c, "client_id")
	if !ok {
		return
	}
	method := optionalStringQuery(c, "payment_method")
	if method != nil && !models.IsValidPaymentMethod(*method) {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid payment_method filter.", *method))
		return
	}
	status := optionalStringQuery(c, "status")
	if status != nil && *status != models.InvoiceStatusPaid && *status != models.InvoiceStatusVoided {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid status filter.", *status))
		return
	}

	filters := models.InvoiceFilters{
		From:          from,
		To:            to,
		ClientID:      clientID,
		PaymentMethod: method,
		Status:        status,
		Page:          page,
		PageSize:      pageSize,
	}
	invoices, total, err := h.invoiceService.GetInvoices(c.Request.Context(), currentTenantID(c), filters)
	if err != nil {
		utils.LogError(err, "GetInvoices: Error from invoiceService.GetInvoices")
		h.respondError(c, err)
		return
	}
	if invoices == nil {
		invoices = []models.Invoice{}
	}
	c.JSON(http.StatusOK, paged(invoices, total, page, pageSize))
}

func (h *InvoiceHandler) GetInvoiceByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "invoice")
	if !ok {
		return
	}
	invoice, err := h.invoiceService.GetInvoiceByID(c.Request.Context(), currentTenantID(c), id)
	if err != nil {
		utils.LogError(err, "GetInvoiceByID: Error from invoiceService.GetInvoiceByID")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *InvoiceHandler) VoidInvoice(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "invoice")
	if !ok {
		return
	}
	var req services.VoidInvoiceRequest
	if !bindJSON(c, &req, "VoidInvoice") {
		return
	}
	invoice, err := h.invoiceService.VoidInvoice(c.Request.Context(), currentTenantID(c), id, req)
	if err != nil {
		utils.LogError(err, "VoidInvoice: Error from invoiceService.VoidInvoice")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}
