package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/residify/residify/internal/transaction/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tx *domain.Transaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transactions (
			id, order_id, user_id, bill_id, amount, currency, status,
			payment_method, aggregator_order_id, aggregator_response,
			callback_data, metadata, signature, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.OrderID,
		tx.UserID,
		tx.BillID,
		tx.Amount,
		tx.Currency,
		tx.Status,
		tx.PaymentMethod,
		tx.AggregatorOrderID,
		tx.AggregatorResponse,
		tx.CallbackData,
		tx.Metadata,
		tx.Signature,
		tx.CreatedAt,
		tx.UpdatedAt,
	).Error
}

func (r *repo) FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*domain.Transaction, error) {
	var item domain.Transaction
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, user_id, bill_id, amount, currency, status,
			payment_method, aggregator_order_id, aggregator_response,
			callback_data, metadata, signature, created_at, updated_at
		 FROM transactions
		 WHERE order_id = ?
		 LIMIT 1`,
		orderID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) AttachSession(ctx context.Context, db *gorm.DB, orderID string, aggregatorOrderID string, response datatypes.JSON, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE transactions
		 SET aggregator_order_id = ?, aggregator_response = ?, updated_at = ?
		 WHERE order_id = ?`,
		aggregatorOrderID,
		response,
		now,
		orderID,
	).Error
}

func (r *repo) UpdateStatusIfPending(ctx context.Context, db *gorm.DB, orderID string, status domain.Status, update domain.TerminalUpdate, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE transactions
		 SET status = ?,
			 aggregator_response = COALESCE(?, aggregator_response),
			 callback_data = COALESCE(?, callback_data),
			 signature = CASE WHEN ? = '' THEN signature ELSE ? END,
			 updated_at = ?
		 WHERE order_id = ? AND status = ?`,
		status,
		update.AggregatorResponse,
		update.CallbackData,
		update.Signature,
		update.Signature,
		now,
		orderID,
		domain.StatusPending,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertLog(ctx context.Context, db *gorm.DB, log *domain.PaymentLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payment_logs (
			id, transaction_id, order_id, event, data, error, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		log.ID,
		log.TransactionID,
		log.OrderID,
		log.Event,
		log.Data,
		log.Error,
		log.Timestamp,
	).Error
}

func (r *repo) ListLogs(ctx context.Context, db *gorm.DB, transactionID snowflake.ID) ([]domain.PaymentLog, error) {
	var items []domain.PaymentLog
	err := db.WithContext(ctx).Raw(
		`SELECT id, transaction_id, order_id, event, data, error, timestamp
		 FROM payment_logs
		 WHERE transaction_id = ?
		 ORDER BY timestamp ASC, id ASC`,
		transactionID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
