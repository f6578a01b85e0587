package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/residify/residify/internal/payment/domain"
)

// HandlePaymentWebhook ingests a bank callback. Replayed deliveries are
// acknowledged with 200 so the bank stops retrying.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		AbortWithError(c, paymentdomain.ErrInvalidCallback)
		return
	}

	if err := s.webhookSvc.IngestCallback(c.Request.Context(), provider, payload, c.Request.Header); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
