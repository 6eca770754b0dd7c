package handlers

import (
	"errors"
	"net/http"

	"restaurant_pos_backend/internal/models"
	"restaurant_pos_backend/internal/services"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// UserHandler lets a tenant admin manage the staff accounts of the tenant.
type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(us services.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

func (h *UserHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUserNotFound):
		respondNotFound(c, "User not found.", err)
	case errors.Is(err, services.ErrUsernameExists):
		respondConflict(c, "Username already exists.", err)
	case errors.Is(err, services.ErrInvalidRole):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid role.", err.Error()))
	default:
		respondServiceError(c, err)
	}
}

func (h *UserHandler) CreateUser(c *gin.Context) {
	var req services.CreateUserRequest
	if !bindJSON(c, &req, "CreateUser") {
		return
	}
	user, err := h.userService.CreateUser(c.Request.Context(), currentTenantID(c), req)
	if err != nil {
		utils.LogError(err, "CreateUser: Error from userService.CreateUser")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) GetUsers(c *gin.Context) {
	users, err := h.userService.GetUsers(c.Request.Context(), currentTenantID(c))
	if err != nil {
		utils.LogError(err, "GetUsers: Error from userService.GetUsers")
		h.respondError(c, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "user")
	if !ok {
		return
	}
	var req services.UpdateUserRequest
	if !bindJSON(c, &req, "UpdateUser") {
		return
	}
	user, err := h.userService.UpdateUser(c.Request.Context(), currentTenantID(c), currentUserID(c), id, req)
	if err != nil {
		utils.LogError(err, "UpdateUser: Error from userService.UpdateUser")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) ResetPassword(c *gin.Context) {
	id, ok := parseIDParam(c, "id", "user")
	if !ok {
		return
	}
	var req services.ResetPasswordRequest
	if !bindJSON(c, &req, "ResetPassword") {
		return
	}
	if err := h.userService.ResetPassword(c.Request.Context(), currentTenantID(c), id, req); err != nil {
		utils.LogError(err, "ResetPassword: Error from userService.ResetPassword")
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully"})
}
