package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/residify/residify/internal/bill/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Bill, error) {
	var item domain.Bill
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, reference, description, amount, currency,
			paid, paid_at, created_at, updated_at
		 FROM bills
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bills
		 SET paid = TRUE, paid_at = ?, updated_at = ?
		 WHERE id = ? AND paid = FALSE`,
		paidAt,
		paidAt,
		id,
	).Error
}
