package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/domain"
	usersvc "storefront/internal/service/user"
)

func errorBody(message string) gin.H {
	return gin.H{"success": false, "message": message}
}

// statusFor maps a workflow error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrAlreadyPaid),
		errors.Is(err, domain.ErrOutOfStock),
		errors.Is(err, domain.ErrNotPaid),
		errors.Is(err, domain.ErrAlreadyDelivered),
		errors.Is(err, domain.ErrCartChanged):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPaymentVerification):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, usersvc.ErrInvalidCredentials),
		errors.Is(err, usersvc.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeResult renders a workflow Result. Failures without a known cause
// keep the generic message so internals do not leak.
func (h *handlers) writeResult(c *gin.Context, okStatus int, res domain.Result) {
	if res.Success {
		c.JSON(okStatus, res)
		return
	}
	status := statusFor(res.Err)
	if status == http.StatusInternalServerError {
		h.logger.Printf("http: %s %s error=%v", c.Request.Method, c.FullPath(), res.Err)
		res.Message = "internal error"
	}
	c.JSON(status, res)
}

func (h *handlers) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Printf("http: %s %s error=%v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, errorBody("internal error"))
		return
	}
	c.JSON(status, errorBody(err.Error()))
}

func (h *handlers) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body"))
		return false
	}
	return true
}
