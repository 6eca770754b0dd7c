package handlers

import (
	"errors"
	"net/http"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/services"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ClientHandler holds the client service.
type ClientHandler struct {
	clientService services.ClientService
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(cs services.ClientService) *ClientHandler {
	return &ClientHandler{clientService: cs}
}

func (h *ClientHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrClientNotFound):
		respondNotFound(c, "Client not found.", err)
	case errors.Is(err, services.ErrClientDocumentExists):
		respondConflict(c, "A client with this document number already exists.", err)
	case errors.Is(err, services.ErrClientInUse):
		respondConflict(c, "Client cannot be deleted as invoices reference them.", err)
	default:
		respondServiceError(c, err)
	}
}

// CreateClient handles the creation of a new client.
func (h *ClientHandler) CreateClient(c *gin.Context) {
	var req services.CreateClientRequest
	if !bindJSON(c, &req, "CreateClient") {
		return
	}

	client, err := h.clientService.CreateClient(c.Request.Context(), currentTenantID(c), req)
	if err != nil {
		utils.LogError(err, "CreateClient: Error from clientService.CreateClient")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

// GetClients handles fetching all clients with pagination and search.
func (h *ClientHandler) GetClients(c *gin.Context) {
	page, pageSize := parsePagination(c)

	clients, totalCount, err := h.clientService.GetClients(c.Request.Context(), currentTenantID(c), page, pageSize, c.Query("search"))
	if err != nil {
		utils.LogError(err, "GetClients: Error from clientService.GetClients")
		h.respondError(c, err)
		return
	}
	if clients == nil {
		clients = []models.Client{}
	}
	c.JSON(http.StatusOK, paged(clients, totalCount, page, pageSize))
}

// GetClientByID handles fetching a single client by ID.
func (h *ClientHandler) GetClientByID(c *gin.Context) {
	clientID, ok := parseIDParam(c, "id", "client")
	if !ok {
		return
	}

	client, err := h.clientService.GetClientByID(c.Request.Context(), currentTenantID(c), clientID)
	if err != nil {
		utils.LogError(err, "GetClientByID: Error from clientService.GetClientByID")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// UpdateClient handles updating a client.
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	clientID, ok := parseIDParam(c, "id", "client")
	if !ok {
		return
	}
	var req services.UpdateClientRequest
	if !bindJSON(c, &req, "UpdateClient") {
		return
	}

	client, err := h.clientService.UpdateClient(c.Request.Context(), currentTenantID(c), clientID, req)
	if err != nil {
		utils.LogError(err, "UpdateClient: Error from clientService.UpdateClient")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// DeleteClient handles deleting a client.
func (h *ClientHandler) DeleteClient(c *gin.Context) {
	clientID, ok := parseIDParam(c, "id", "client")
	if !ok {
		return
	}

	if err := h.clientService.DeleteClient(c.Request.Context(), currentTenantID(c), clientID); err != nil {
		utils.LogError(err, "DeleteClient: Error from clientService.DeleteClient")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Client deleted successfully"})
}
