package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	billservice "github.com/residify/residify/internal/bill/service"
	obsmetrics "github.com/residify/residify/internal/observability/metrics"
	paymentdomain "github.com/residify/residify/internal/payment/domain"
	transactiondomain "github.com/residify/residify/internal/transaction/domain"
	transactionservice "github.com/residify/residify/internal/transaction/service"
	"github.com/residify/residify/internal/webhookverify"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Ledger    *transactionservice.Service
	Bills     *billservice.Service
	Verifiers *webhookverify.Registry
	Obs       *obsmetrics.Metrics `optional:"true"`
}

// Service authenticates inbound bank callbacks and drives Transaction state
// transitions idempotently. Every delivery lands in the audit log whether or
// not it wins the transition.
type Service struct {
	log       *zap.Logger
	ledger    *transactionservice.Service
	bills     *billservice.Service
	verifiers *webhookverify.Registry
	obs       *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:       p.Log.Named("payment.webhook"),
		ledger:    p.Ledger,
		bills:     p.Bills,
		verifiers: p.Verifiers,
		obs:       p.Obs,
	}
}

type callbackPayload struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Signature string `json:"signature"`
}

// IngestCallback processes one bank callback delivery. A replayed or
// reordered delivery for an already-settled transaction is a benign no-op:
// it is recorded in the audit trail and acknowledged.
func (s *Service) IngestCallback(ctx context.Context, provider string, payload []byte, headers http.Header) error {
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidCallback
	}

	var callback callbackPayload
	if err := json.Unmarshal(payload, &callback); err != nil {
		return paymentdomain.ErrInvalidCallback
	}
	callback.OrderID = strings.TrimSpace(callback.OrderID)
	if callback.OrderID == "" {
		return paymentdomain.ErrInvalidCallback
	}

	tx, err := s.ledger.Get(ctx, callback.OrderID)
	if err != nil {
		return err
	}

	var raw map[string]any
	_ = json.Unmarshal(payload, &raw)
	if err := s.ledger.RecordEvent(ctx, tx, transactiondomain.EventWebhookReceived, raw, ""); err != nil {
		s.log.Warn("failed to log webhook receipt", zap.String("order_id", tx.OrderID), zap.Error(err))
	}

	verifier, err := s.verifiers.Resolve(provider)
	if err != nil {
		s.recordFailure(ctx, tx, "verifier not configured for provider "+provider)
		return err
	}
	if err := verifier.Verify(ctx, payload, callback.Signature, headers); err != nil {
		s.recordFailure(ctx, tx, "signature verification failed")
		return err
	}

	status, ok := statusFromCallback(callback.Status)
	if !ok {
		s.recordFailure(ctx, tx, "unknown callback status "+callback.Status)
		return paymentdomain.ErrInvalidCallback
	}

	updated, err := s.ledger.TransitionTo(ctx, tx.OrderID, status, transactiondomain.TerminalUpdate{
		CallbackData: datatypes.JSON(payload),
		Signature:    callback.Signature,
	})
	if err != nil {
		if errors.Is(err, transactiondomain.ErrInvalidTransition) {
			// Lost the race against an earlier delivery; the settled state
			// stands and the attempt stays visible in the log.
			s.obs.RecordWebhookEvent(obsmetrics.WebhookResultReplay)
			if logErr := s.ledger.RecordEvent(ctx, tx, transactiondomain.EventWebhookVerified, map[string]any{
				"result":         "replay_ignored",
				"settled_status": string(updated.Status),
			}, ""); logErr != nil {
				s.log.Warn("failed to log webhook replay", zap.String("order_id", tx.OrderID), zap.Error(logErr))
			}
			return nil
		}
		return err
	}

	s.obs.RecordWebhookEvent(obsmetrics.WebhookResultApplied)
	if err := s.ledger.RecordEvent(ctx, updated, transactiondomain.EventWebhookVerified, map[string]any{
		"status": string(status),
	}, ""); err != nil {
		s.log.Warn("failed to log webhook verification", zap.String("order_id", updated.OrderID), zap.Error(err))
	}

	if status == transactiondomain.StatusSuccess && updated.BillID != nil {
		s.bills.Settle(ctx, *updated.BillID)
	}

	s.log.Info("webhook applied",
		zap.String("order_id", updated.OrderID),
		zap.String("status", string(status)),
	)
	return nil
}

func (s *Service) recordFailure(ctx context.Context, tx *transactiondomain.Transaction, reason string) {
	s.obs.RecordWebhookEvent(obsmetrics.WebhookResultUnverified)
	if err := s.ledger.RecordEvent(ctx, tx, transactiondomain.EventWebhookFailed, nil, reason); err != nil {
		s.log.Warn("failed to log webhook failure", zap.String("order_id", tx.OrderID), zap.Error(err))
	}
}

func statusFromCallback(raw string) (transactiondomain.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success", "paid", "completed":
		return transactiondomain.StatusSuccess, true
	case "failed", "declined", "error":
		return transactiondomain.StatusFailed, true
	case "cancelled", "canceled":
		return transactiondomain.StatusCancelled, true
	default:
		return "", false
	}
}
