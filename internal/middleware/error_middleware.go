package middleware

import (
	"errors"
	"net/http"

	"restaurant_pos_backend/internal/repositories"
	"restaurant_pos_backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ErrorHandler turns errors pushed with c.Error into a JSON response when the
// handler did not write one itself. Database errors are classified; anything
// else is a 500 whose detail is hidden in release mode.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		utils.LogError(err, "ErrorHandler: unhandled request error")

		var apiErr *utils.APIError
		switch {
		case errors.As(err, &apiErr):
		case errors.Is(err, repositories.ErrDuplicateKey):
			apiErr = utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "The record conflicts with an existing one", constraintDetails(err))
		case errors.Is(err, repositories.ErrForeignKey), errors.Is(err, repositories.ErrInUse):
			apiErr = utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "The record is referenced by other records", constraintDetails(err))
		case errors.Is(err, repositories.ErrConflict):
			apiErr = utils.NewAPIError(http.StatusConflict, utils.ErrCodeConflict, "The record was changed by another request", nil)
		case errors.Is(err, repositories.ErrNotFound):
			apiErr = utils.NewAPIError(http.StatusNotFound, utils.ErrCodeNotFound, "Resource not found", nil)
		case errors.Is(err, repositories.ErrConnection):
			apiErr = utils.NewAPIError(http.StatusServiceUnavailable, utils.ErrCodeUnavailable, "Database is unavailable, try again later", nil)
		default:
			var details interface{}
			if gin.Mode() != gin.ReleaseMode {
				details = err.Error()
			}
			apiErr = utils.NewAPIError(http.StatusInternalServerError, utils.ErrCodeInternalServerError, "Internal server error", details)
		}
		c.JSON(apiErr.StatusCode, gin.H{"error": apiErr})
	}
}

func constraintDetails(err error) interface{} {
	if name := repositories.ConstraintOf(err); name != "" {
		return gin.H{"constraint": name}
	}
	return nil
}
