package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/umagate/umagate/internal/protocol"
	receiverdomain "github.com/umagate/umagate/internal/receiver/domain"
	tenantdomain "github.com/umagate/umagate/internal/tenant/domain"
)

// Protocol error reasons. Counterparties see these strings; detail stays in
// the logs. Verification failures share one reason so responses never reveal
// which check failed.
const (
	reasonNotValidTenant     = "Not valid tenant"
	reasonUserNotFound       = "User not found"
	reasonInvalidRequest     = "Invalid request"
	reasonVerificationFailed = "Verification failed"
	reasonAmountOutOfBounds  = "Amount outside sendable bounds"
	reasonUnauthorized       = "Unauthorized"
	reasonConflict           = "Conflict"
	reasonNotFound           = "Not found"
	reasonInternal           = "Internal error"
)

var (
	// ErrTenantNotFound means no active tenant matched the request host.
	ErrTenantNotFound = errors.New("server: tenant not found")
	// ErrUserNotFound means the tenant has no such receiver.
	ErrUserNotFound = errors.New("server: user not found")
	// ErrAmountOutOfBounds means the requested amount violates the tenant's
	// sendable range.
	ErrAmountOutOfBounds = errors.New("server: amount out of bounds")
	// ErrUnauthorized covers missing or invalid admin credentials.
	ErrUnauthorized = errors.New("server: unauthorized")
)

type errorResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// ErrorHandlingMiddleware turns deferred handler errors into the protocol's
// error envelope.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, reason := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Status: "ERROR", Reason: reason})
	}
}

// AbortWithError defers err to the error-handling middleware.
func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrTenantNotFound):
		return http.StatusNotFound, reasonNotValidTenant
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound, reasonUserNotFound
	case errors.Is(err, ErrAmountOutOfBounds):
		return http.StatusBadRequest, reasonAmountOutOfBounds
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, reasonUnauthorized
	case errors.Is(err, receiverdomain.ErrBadPageToken):
		return http.StatusBadRequest, reasonInvalidRequest
	case errors.Is(err, protocol.ErrParse):
		return http.StatusBadRequest, reasonInvalidRequest
	case errors.Is(err, protocol.ErrVerification):
		return http.StatusBadRequest, reasonVerificationFailed
	case tenantdomain.IsValidationError(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, tenantdomain.ErrConflict):
		return http.StatusConflict, reasonConflict
	case errors.Is(err, tenantdomain.ErrNotFound):
		return http.StatusNotFound, reasonNotFound
	default:
		return http.StatusInternalServerError, reasonInternal
	}
}
