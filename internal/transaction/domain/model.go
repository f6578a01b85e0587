package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is permitted out of s.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

type Method string

const (
	MethodJazzcash  Method = "jazzcash"
	MethodEasypaisa Method = "easypaisa"
	MethodCard      Method = "card"
	MethodOther     Method = "other"
)

const (
	EventCreated         = "created"
	EventInitiated       = "initiated"
	EventSuccess         = "success"
	EventFailed          = "failed"
	EventCancelled       = "cancelled"
	EventWebhookReceived = "webhook_received"
	EventWebhookVerified = "webhook_verified"
	EventWebhookFailed   = "webhook_failed"
)

// EventForStatus maps a terminal status to its payment log event.
func EventForStatus(s Status) string {
	switch s {
	case StatusSuccess:
		return EventSuccess
	case StatusFailed:
		return EventFailed
	case StatusCancelled:
		return EventCancelled
	default:
		return ""
	}
}

// Transaction is one payment attempt. OrderID is the caller-supplied
// idempotency key; rows are never deleted.
type Transaction struct {
	ID                 snowflake.ID   `json:"id" gorm:"primaryKey"`
	OrderID            string         `json:"order_id" gorm:"type:text;not null;uniqueIndex"`
	UserID             snowflake.ID   `json:"user_id" gorm:"not null;index"`
	BillID             *snowflake.ID  `json:"bill_id" gorm:"index"`
	Amount             int64          `json:"amount" gorm:"not null"`
	Currency           string         `json:"currency" gorm:"type:text;not null"`
	Status             Status         `json:"status" gorm:"type:text;not null;index"`
	PaymentMethod      Method         `json:"payment_method" gorm:"type:text"`
	AggregatorOrderID  string         `json:"aggregator_order_id" gorm:"type:text"`
	AggregatorResponse datatypes.JSON `json:"aggregator_response"`
	CallbackData       datatypes.JSON `json:"callback_data"`
	Metadata           datatypes.JSON `json:"metadata"`
	Signature          string         `json:"signature" gorm:"type:text"`
	CreatedAt          time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt          time.Time      `json:"updated_at" gorm:"not null"`
}

func (Transaction) TableName() string { return "transactions" }

// PaymentLog is the append-only audit trail, many-to-one with Transaction.
type PaymentLog struct {
	ID            snowflake.ID   `json:"id" gorm:"primaryKey"`
	TransactionID snowflake.ID   `json:"transaction_id" gorm:"not null;index:idx_payment_logs_tx_ts"`
	OrderID       string         `json:"order_id" gorm:"type:text;not null;index"`
	Event         string         `json:"event" gorm:"type:text;not null"`
	Data          datatypes.JSON `json:"data"`
	Error         string         `json:"error" gorm:"type:text"`
	Timestamp     time.Time      `json:"timestamp" gorm:"not null;index:idx_payment_logs_tx_ts"`
}

func (PaymentLog) TableName() string { return "payment_logs" }
