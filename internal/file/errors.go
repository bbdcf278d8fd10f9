package file

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abduss/filegate/internal/apperr"
)

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case apperr.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrProcessing):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, apperr.ErrStorage):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with the mapped status. Server-side failures keep
// their detail out of the body; it is attached to the context for logging.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
