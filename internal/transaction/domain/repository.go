package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrDuplicateOrder    = errors.New("duplicate_order")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrNotFound          = errors.New("transaction_not_found")
	ErrInvalidOrder      = errors.New("invalid_order")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidStatus     = errors.New("invalid_status")
)

// TerminalUpdate carries the optional mutation payload applied together with
// a terminal status transition.
type TerminalUpdate struct {
	AggregatorResponse datatypes.JSON
	CallbackData       datatypes.JSON
	Signature          string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tx *Transaction) error
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*Transaction, error)

	// AttachSession records the bank-assigned session id and raw response
	// once checkout session acquisition succeeds.
	AttachSession(ctx context.Context, db *gorm.DB, orderID string, aggregatorOrderID string, response datatypes.JSON, now time.Time) error

	// UpdateStatusIfPending performs the compare-and-swap terminal
	// transition: rows move out of pending exactly once, regardless of
	// concurrent callers. Returns false when the row was not pending.
	UpdateStatusIfPending(ctx context.Context, db *gorm.DB, orderID string, status Status, update TerminalUpdate, now time.Time) (bool, error)

	InsertLog(ctx context.Context, db *gorm.DB, log *PaymentLog) error
	ListLogs(ctx context.Context, db *gorm.DB, transactionID snowflake.ID) ([]PaymentLog, error)
}
