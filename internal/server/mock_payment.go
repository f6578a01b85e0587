package server

import (
	"html"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const mockPaymentPage = `<!DOCTYPE html>
<html>
<head><title>Mock Payment</title></head>
<body>
  <h1>Mock Payment Page</h1>
  <p>Session: <code>%SESSION%</code></p>
  <p>No live gateway is configured. Use the simulate endpoint to settle the
  transaction: <code>POST /api/v1/payments/{order_id}/simulate</code> with
  <code>{"status": "success"}</code>.</p>
</body>
</html>`

// HandleMockPaymentPage stands in for the bank's hosted checkout page when
// the gateway runs in mock mode.
func (s *Server) HandleMockPaymentPage(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		sessionID = "(none)"
	}

	page := strings.ReplaceAll(mockPaymentPage, "%SESSION%", html.EscapeString(sessionID))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}
