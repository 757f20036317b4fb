package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	creditdomain "github.com/kilomet/kilomet/internal/credit/domain"
	pricingdomain "github.com/kilomet/kilomet/internal/pricing/domain"
	routecachedomain "github.com/kilomet/kilomet/internal/routecache/domain"
	uploaddomain "github.com/kilomet/kilomet/internal/upload/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrInvalidRequest = errors.New("invalid_request")

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

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, uploaddomain.ErrInvalidID),
		errors.Is(err, creditdomain.ErrInvalidAmount):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid request",
		}
	case errors.Is(err, pricingdomain.ErrInvalidTierList):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "invalid tier list",
		}
	case errors.Is(err, uploaddomain.ErrNotFound),
		errors.Is(err, creditdomain.ErrProfileNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, creditdomain.ErrInsufficientCredits):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "insufficient_credits",
			Message: "insufficient credits",
		}
	case errors.Is(err, creditdomain.ErrConcurrencyExhausted):
		return http.StatusConflict, errorPayload{
			Type:      "conflict",
			Message:   "credit balance contended, retry",
			Retryable: true,
		}
	case errors.Is(err, routecachedomain.ErrMissingCredential):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "routing provider not configured",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
