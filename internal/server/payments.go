package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	paymentdomain "github.com/residify/residify/internal/payment/domain"
	transactiondomain "github.com/residify/residify/internal/transaction/domain"
)

type createPaymentRequest struct {
	OrderID       string `json:"order_id" binding:"required"`
	UserID        int64  `json:"user_id"`
	BillID        *int64 `json:"bill_id"`
	Amount        int64  `json:"amount" binding:"required"`
	Currency      string `json:"currency"`
	BillReference string `json:"bill_reference" binding:"required"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Method        string `json:"method"`
}

func (s *Server) HandleCreatePayment(c *gin.Context) {
	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, paymentdomain.ErrInvalidIntent)
		return
	}

	limiterKey := strconv.FormatInt(req.UserID, 10)
	if req.UserID == 0 {
		limiterKey = c.ClientIP()
	}
	if !s.limiter.Allow(c.Request.Context(), limiterKey) {
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	intent := paymentdomain.Intent{
		OrderID:       req.OrderID,
		UserID:        snowflake.ID(req.UserID),
		Amount:        req.Amount,
		Currency:      req.Currency,
		BillReference: req.BillReference,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Method:        transactiondomain.Method(req.Method),
	}
	if req.BillID != nil {
		billID := snowflake.ID(*req.BillID)
		intent.BillID = &billID
	}

	result, err := s.paymentSvc.CreatePayment(c.Request.Context(), intent)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (s *Server) HandleGetPayment(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("order_id"))

	tx, err := s.ledger.Get(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

func (s *Server) HandleListPaymentLogs(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("order_id"))

	tx, err := s.ledger.Get(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	logs, err := s.ledger.ListLogs(c.Request.Context(), tx.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": tx.OrderID,
		"logs":     logs,
	})
}

func (s *Server) HandleCancelPayment(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("order_id"))

	tx, err := s.paymentSvc.Cancel(c.Request.Context(), orderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

type simulatePaymentRequest struct {
	Status string `json:"status" binding:"required"`
}

// HandleSimulatePayment drives a terminal transition without the bank.
// The payment service refuses it outside mock mode.
func (s *Server) HandleSimulatePayment(c *gin.Context) {
	orderID := strings.TrimSpace(c.Param("order_id"))

	var req simulatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, transactiondomain.ErrInvalidStatus)
		return
	}

	tx, err := s.paymentSvc.SimulateSandboxPayment(c.Request.Context(), orderID, transactiondomain.Status(req.Status))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, tx)
}

func (s *Server) HandleGetBill(c *gin.Context) {
	raw := strings.TrimSpace(c.Param("bill_id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		AbortWithError(c, transactiondomain.ErrInvalidOrder)
		return
	}

	bill, err := s.billSvc.Get(c.Request.Context(), snowflake.ID(id))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, bill)
}
