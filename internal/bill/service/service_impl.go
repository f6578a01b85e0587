package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/residify/residify/internal/bill/domain"
	"github.com/residify/residify/internal/clock"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("bill.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Bill, error) {
	bill, err := s.repo.Find(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, domain.ErrNotFound
	}
	return bill, nil
}

// Settle marks a bill paid after a bank-confirmed payment. Settling an
// already-paid or unknown bill is a no-op; payment confirmation must not
// fail on bill bookkeeping.
func (s *Service) Settle(ctx context.Context, id snowflake.ID) {
	if id == 0 {
		return
	}
	if err := s.repo.MarkPaid(ctx, s.db, id, s.clock.Now()); err != nil {
		s.log.Warn("failed to settle bill", zap.Int64("bill_id", int64(id)), zap.Error(err))
	}
}
