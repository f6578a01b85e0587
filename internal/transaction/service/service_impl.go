package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/residify/residify/internal/clock"
	"github.com/residify/residify/internal/transaction/domain"
	"github.com/residify/residify/pkg/db"
)

const defaultCurrency = "PKR"

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

// Service is the transaction ledger: one Transaction per payment attempt and
// an append-only PaymentLog trail. Terminal transitions are atomic against
// concurrent webhook delivery; financial records are never deleted.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("transaction.ledger"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

type CreateRequest struct {
	OrderID       string
	UserID        snowflake.ID
	BillID        *snowflake.ID
	Amount        int64
	Currency      string
	PaymentMethod domain.Method
	Metadata      map[string]any
}

// Create opens a pending Transaction and appends the `created` log entry.
// OrderID uniqueness is enforced by the storage layer so concurrent reuse of
// an order id cannot slip through.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Transaction, error) {
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		return nil, domain.ErrInvalidOrder
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	method := req.PaymentMethod
	if method == "" {
		method = domain.MethodOther
	}

	now := s.clock.Now()
	tx := &domain.Transaction{
		ID:            s.genID.Generate(),
		OrderID:       orderID,
		UserID:        req.UserID,
		BillID:        req.BillID,
		Amount:        req.Amount,
		Currency:      currency,
		Status:        domain.StatusPending,
		PaymentMethod: method,
		Metadata:      toJSON(req.Metadata),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Insert(ctx, s.db, tx); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateOrder
		}
		return nil, err
	}

	if err := s.RecordEvent(ctx, tx, domain.EventCreated, req.Metadata, ""); err != nil {
		s.log.Warn("failed to append created log", zap.String("order_id", orderID), zap.Error(err))
	}

	return tx, nil
}

// Get loads a Transaction by order id.
func (s *Service) Get(ctx context.Context, orderID string) (*domain.Transaction, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domain.ErrInvalidOrder
	}
	tx, err := s.repo.FindByOrderID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, domain.ErrNotFound
	}
	return tx, nil
}

// AttachSession stores the bank-assigned session identifier and raw gateway
// response on the Transaction.
func (s *Service) AttachSession(ctx context.Context, orderID string, aggregatorOrderID string, response map[string]any) error {
	return s.repo.AttachSession(ctx, s.db, orderID, aggregatorOrderID, toJSON(response), s.clock.Now())
}

// RecordEvent appends a PaymentLog row. It never mutates Transaction status.
func (s *Service) RecordEvent(ctx context.Context, tx *domain.Transaction, event string, data map[string]any, errMsg string) error {
	if tx == nil {
		return domain.ErrNotFound
	}
	return s.repo.InsertLog(ctx, s.db, &domain.PaymentLog{
		ID:            s.genID.Generate(),
		TransactionID: tx.ID,
		OrderID:       tx.OrderID,
		Event:         event,
		Data:          toJSON(data),
		Error:         errMsg,
		Timestamp:     s.clock.Now(),
	})
}

// TransitionTo atomically moves a pending Transaction to a terminal status
// and appends the matching PaymentLog event. Exactly one of any number of
// concurrent callers wins; the rest observe ErrInvalidTransition.
func (s *Service) TransitionTo(ctx context.Context, orderID string, status domain.Status, update domain.TerminalUpdate) (*domain.Transaction, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, domain.ErrInvalidOrder
	}
	if !status.Valid() || !status.Terminal() {
		return nil, domain.ErrInvalidStatus
	}

	swapped, err := s.repo.UpdateStatusIfPending(ctx, s.db, orderID, status, update, s.clock.Now())
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.FindByOrderID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, domain.ErrNotFound
	}

	if !swapped {
		return tx, domain.ErrInvalidTransition
	}

	var data map[string]any
	if len(update.CallbackData) > 0 {
		_ = json.Unmarshal(update.CallbackData, &data)
	}
	if err := s.RecordEvent(ctx, tx, domain.EventForStatus(status), data, ""); err != nil {
		s.log.Warn("failed to append transition log",
			zap.String("order_id", orderID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}

	return tx, nil
}

// ListLogs returns the ordered audit trail for a transaction.
func (s *Service) ListLogs(ctx context.Context, transactionID snowflake.ID) ([]domain.PaymentLog, error) {
	return s.repo.ListLogs(ctx, s.db, transactionID)
}

func toJSON(data map[string]any) datatypes.JSON {
	if len(data) == 0 {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}
