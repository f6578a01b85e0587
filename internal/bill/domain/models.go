package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("bill_not_found")

// Bill is a charge raised against a resident (maintenance, utilities, fines).
// Payment collection happens through the bank checkout flow; a bill flips to
// paid only on a bank-confirmed transaction.
type Bill struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID      snowflake.ID `json:"user_id" gorm:"not null;index"`
	Reference   string       `json:"reference" gorm:"type:text;not null"`
	Description string       `json:"description" gorm:"type:text"`
	Amount      int64        `json:"amount" gorm:"not null"`
	Currency    string       `json:"currency" gorm:"type:text;not null"`
	Paid        bool         `json:"paid" gorm:"not null"`
	PaidAt      *time.Time   `json:"paid_at"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time    `json:"updated_at" gorm:"not null"`
}

func (Bill) TableName() string { return "bills" }

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Bill, error)
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) error
}
