package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"restaurant_pos_backend/internal/middleware"
	"restaurant_pos_backend/internal/plans"
	"restaurant_pos_backend/internal/services"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	dateLayout      = "2006-01-02"
)

func currentTenantID(c *gin.Context) int64 { return c.GetInt64(middleware.ContextTenantID) }
func currentUserID(c *gin.Context) int64   { return c.GetInt64(middleware.ContextUserID) }
func currentRole(c *gin.Context) string    { return c.GetString(middleware.ContextUserRole) }

// parseIDParam reads a positive int64 path parameter, answering 400 when it is not one.
func parseIDParam(c *gin.Context, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+label+" ID format.", c.Param(name)))
		return 0, false
	}
	return id, true
}

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// optionalInt64Query parses ?name=<int>. ok is false after a 400 was written.
func optionalInt64Query(c *gin.Context, name string) (*int64, bool) {
	v, err := utils.OptionalInt64(c.Query(name))
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" query parameter.", err.Error()))
		return nil, false
	}
	return v, true
}

func optionalBoolQuery(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" query parameter.", err.Error()))
		return nil, false
	}
	return &v, true
}

func optionalDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Invalid "+name+" date, expected YYYY-MM-DD.", raw))
		return nil, false
	}
	return &t, true
}

func optionalStringQuery(c *gin.Context, name string) *string {
	if v := c.Query(name); v != "" {
		return &v
	}
	return nil
}

func bindJSON(c *gin.Context, req interface{}, op string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.LogError(err, op+": Failed to bind JSON")
		utils.RespondValidationFailed(c, err)
		return false
	}
	return true
}

// respondServiceError answers the errors every service shares. Anything else is
// handed to middleware.ErrorHandler.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Validation failed.", err.Error()))
	case errors.Is(err, services.ErrForbidden):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Operation not permitted.", err.Error()))
	case errors.Is(err, services.ErrPlanLimitReached):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodePlanLimit, "Your plan does not allow more of this resource.", err.Error()))
	case errors.Is(err, services.ErrTenantInactive):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusForbidden, utils.ErrCodeForbidden, "Tenant is suspended.", nil))
	case errors.Is(err, services.ErrTenantNotFound):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Tenant not found.", nil))
	case errors.Is(err, plans.ErrUnknownPlan), errors.Is(err, services.ErrUnknownPlan):
		utils.RespondWithError(c, utils.NewAPIError(http.StatusBadRequest, utils.ErrCodeValidationFailed, "Unknown plan.", err.Error()))
	default:
		_ = c.Error(err)
		c.Abort()
	}
}

func respondNotFound(c *gin.Context, message string, err error) {
	utils.RespondWithError(c, utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, message, err.Error()))
}

func respondConflict(c *gin.Context, message string, err error) {
	utils.RespondWithError(c, utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, message, err.Error()))
}

func paged(data interface{}, total, page, pageSize int) gin.H {
	return gin.H{
		"data":      data,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	}
}
