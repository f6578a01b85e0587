package domain

import (
	"errors"

	"github.com/bwmarrin/snowflake"

	transactiondomain "github.com/residify/residify/internal/transaction/domain"
)

var (
	ErrPaymentCreateFailed = errors.New("payment_creation_failed")
	ErrInvalidIntent       = errors.New("invalid_payment_intent")
	ErrInvalidCallback     = errors.New("invalid_callback")
	ErrSandboxOnly         = errors.New("sandbox_only")
)

// Intent is a domain-level "pay this bill" request.
type Intent struct {
	OrderID       string
	UserID        snowflake.ID
	BillID        *snowflake.ID
	Amount        int64
	Currency      string
	BillReference string
	CustomerEmail string
	CustomerPhone string
	Method        transactiondomain.Method
}

// CreateResult is returned to the caller, who opens PaymentURL to complete
// payment on the bank's hosted page.
type CreateResult struct {
	OrderID    string `json:"order_id"`
	PaymentID  string `json:"payment_id"`
	PaymentURL string `json:"payment_url"`
}
