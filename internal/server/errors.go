package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	billdomain "github.com/residify/residify/internal/bill/domain"
	"github.com/residify/residify/internal/gateway"
	paymentdomain "github.com/residify/residify/internal/payment/domain"
	transactiondomain "github.com/residify/residify/internal/transaction/domain"
	"github.com/residify/residify/internal/webhookverify"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var ErrTooManyRequests = errors.New("too_many_requests")

// ErrorHandlingMiddleware converts errors attached to the gin context into a
// uniform JSON error envelope. Handlers attach domain errors and abort; the
// mapping to HTTP status lives here only.
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
	case err == nil:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}

	case errors.Is(err, transactiondomain.ErrDuplicateOrder):
		return http.StatusConflict, errorPayload{Type: "duplicate_order", Message: "a payment for this order already exists"}

	case errors.Is(err, transactiondomain.ErrInvalidTransition):
		return http.StatusConflict, errorPayload{Type: "invalid_transition", Message: "transaction already settled"}

	case errors.Is(err, transactiondomain.ErrNotFound),
		errors.Is(err, billdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: "resource not found"}

	case errors.Is(err, transactiondomain.ErrInvalidOrder),
		errors.Is(err, transactiondomain.ErrInvalidAmount),
		errors.Is(err, transactiondomain.ErrInvalidStatus),
		errors.Is(err, paymentdomain.ErrInvalidIntent),
		errors.Is(err, paymentdomain.ErrInvalidCallback):
		return http.StatusBadRequest, errorPayload{Type: "validation_error", Message: err.Error()}

	case errors.Is(err, webhookverify.ErrVerifierNotConfigured),
		errors.Is(err, webhookverify.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{Type: "unauthorized", Message: "callback verification failed"}

	case errors.Is(err, paymentdomain.ErrSandboxOnly):
		return http.StatusForbidden, errorPayload{Type: "forbidden", Message: "sandbox simulation is disabled"}

	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{Type: "too_many_requests", Message: "payment creation rate exceeded"}

	case errors.Is(err, gateway.ErrUnavailable):
		return http.StatusBadGateway, errorPayload{Type: "gateway_unavailable", Message: "payment gateway unreachable"}

	case errors.Is(err, gateway.ErrProtocol),
		errors.Is(err, paymentdomain.ErrPaymentCreateFailed):
		return http.StatusBadGateway, errorPayload{Type: "gateway_error", Message: "payment gateway rejected the request"}

	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}
