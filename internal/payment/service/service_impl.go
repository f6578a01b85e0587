package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/residify/residify/internal/gateway"
	obsmetrics "github.com/residify/residify/internal/observability/metrics"
	paymentdomain "github.com/residify/residify/internal/payment/domain"
	transactiondomain "github.com/residify/residify/internal/transaction/domain"
	transactionservice "github.com/residify/residify/internal/transaction/service"
	"github.com/residify/residify/internal/webhookverify"
)

// Defaulted billing-address fields for the managed property. The bank's
// schema requires a shipping section and a billing address even though
// nothing physical ships.
const (
	defaultAddressLine = "Residify Community Office"
	defaultCity        = "Karachi"
	defaultCountry     = "PK"
	defaultPostcode    = "74000"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Gateway    *gateway.Client
	GatewayCfg gateway.Config
	Ledger     *transactionservice.Service
	Verifiers  *webhookverify.Registry
	Obs        *obsmetrics.Metrics `optional:"true"`
}

// Service translates payment intents into the bank's checkout schema and
// drives session acquisition. All gateway failures are wrapped with the
// attempt context before they surface.
type Service struct {
	log        *zap.Logger
	gateway    *gateway.Client
	gatewayCfg gateway.Config
	ledger     *transactionservice.Service
	verifiers  *webhookverify.Registry
	obs        *obsmetrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:        p.Log.Named("payment.service"),
		gateway:    p.Gateway,
		gatewayCfg: p.GatewayCfg,
		ledger:     p.Ledger,
		verifiers:  p.Verifiers,
		obs:        p.Obs,
	}
}

// CreatePayment opens a pending Transaction, obtains a checkout session and
// returns the redirect URL. The Transaction is created before any network
// call so a duplicate order id is rejected without touching the bank.
func (s *Service) CreatePayment(ctx context.Context, intent paymentdomain.Intent) (paymentdomain.CreateResult, error) {
	if err := validateIntent(&intent); err != nil {
		return paymentdomain.CreateResult{}, err
	}

	tx, err := s.ledger.Create(ctx, transactionservice.CreateRequest{
		OrderID:       intent.OrderID,
		UserID:        intent.UserID,
		BillID:        intent.BillID,
		Amount:        intent.Amount,
		Currency:      intent.Currency,
		PaymentMethod: intent.Method,
		Metadata: map[string]any{
			"bill_reference": intent.BillReference,
		},
	})
	if err != nil {
		return paymentdomain.CreateResult{}, err
	}

	checkout := buildCheckoutRequest(intent)
	sessionID, err := s.gateway.GetSessionID(ctx, checkout)
	if err != nil {
		s.obs.RecordPaymentCreated("failed")
		if logErr := s.ledger.RecordEvent(ctx, tx, transactiondomain.EventFailed, map[string]any{
			"stage": "session",
		}, err.Error()); logErr != nil {
			s.log.Warn("failed to log session failure", zap.String("order_id", tx.OrderID), zap.Error(logErr))
		}
		return paymentdomain.CreateResult{}, fmt.Errorf(
			"%w: order %s amount %d: %w",
			paymentdomain.ErrPaymentCreateFailed, intent.OrderID, intent.Amount, err,
		)
	}

	redirectURL := s.gateway.GetRedirectURL(sessionID)

	if err := s.ledger.AttachSession(ctx, tx.OrderID, sessionID, map[string]any{
		"session_id":   sessionID,
		"redirect_url": redirectURL,
	}); err != nil {
		s.log.Warn("failed to attach gateway session", zap.String("order_id", tx.OrderID), zap.Error(err))
	}
	if err := s.ledger.RecordEvent(ctx, tx, transactiondomain.EventInitiated, map[string]any{
		"session_id":   sessionID,
		"redirect_url": redirectURL,
	}, ""); err != nil {
		s.log.Warn("failed to log initiation", zap.String("order_id", tx.OrderID), zap.Error(err))
	}

	s.obs.RecordPaymentCreated("initiated")
	s.log.Info("payment initiated",
		zap.String("order_id", tx.OrderID),
		zap.String("session_id", sessionID),
		zap.Int64("amount", intent.Amount),
	)

	return paymentdomain.CreateResult{
		OrderID:    tx.OrderID,
		PaymentID:  sessionID,
		PaymentURL: redirectURL,
	}, nil
}

// CheckPaymentStatus reports the current ledger status for an order.
func (s *Service) CheckPaymentStatus(ctx context.Context, orderID string) (transactiondomain.Status, error) {
	tx, err := s.ledger.Get(ctx, orderID)
	if err != nil {
		return "", err
	}
	return tx.Status, nil
}

// VerifySignature authenticates callback data through the registered
// verifier for the provider.
func (s *Service) VerifySignature(ctx context.Context, provider string, payload []byte, signature string, headers http.Header) error {
	verifier, err := s.verifiers.Resolve(provider)
	if err != nil {
		return err
	}
	return verifier.Verify(ctx, payload, signature, headers)
}

// Cancel marks a still-pending transaction cancelled, the path taken when
// the payer abandons the bank's hosted page.
func (s *Service) Cancel(ctx context.Context, orderID string) (*transactiondomain.Transaction, error) {
	return s.ledger.TransitionTo(ctx, orderID, transactiondomain.StatusCancelled, transactiondomain.TerminalUpdate{})
}

// SimulateSandboxPayment drives a terminal transition without any network
// call. Refused outside mock mode.
func (s *Service) SimulateSandboxPayment(ctx context.Context, orderID string, status transactiondomain.Status) (*transactiondomain.Transaction, error) {
	if !s.gatewayCfg.MockEnabled() {
		return nil, paymentdomain.ErrSandboxOnly
	}
	return s.ledger.TransitionTo(ctx, orderID, status, transactiondomain.TerminalUpdate{
		CallbackData: []byte(`{"simulated":true}`),
	})
}

func validateIntent(intent *paymentdomain.Intent) error {
	intent.OrderID = strings.TrimSpace(intent.OrderID)
	intent.BillReference = strings.TrimSpace(intent.BillReference)
	if intent.OrderID == "" {
		return paymentdomain.ErrInvalidIntent
	}
	if intent.Amount <= 0 {
		return paymentdomain.ErrInvalidIntent
	}
	if intent.BillReference == "" {
		return paymentdomain.ErrInvalidIntent
	}
	return nil
}

// buildCheckoutRequest maps an intent into the bank's nested checkout schema:
// an order summary with a single line item, the required shipping stub, and
// an additional-data section with contact and billing-address fields.
func buildCheckoutRequest(intent paymentdomain.Intent) map[string]any {
	amount := strconv.FormatInt(intent.Amount, 10)

	return map[string]any{
		"OrderId": intent.OrderID,
		"OrderSummary": map[string]any{
			"SubTotal": amount,
			"Items": []any{
				map[string]any{
					"ItemName":  intent.BillReference,
					"UnitPrice": amount,
					"Quantity":  "1",
					"Discount":  "0",
				},
			},
		},
		"ShippingDetails": map[string]any{
			"ShippingMethod": "N/A",
			"ShippingCost":   "0",
			"Address":        defaultAddressLine,
			"City":           defaultCity,
			"Country":        defaultCountry,
		},
		"AdditionalData": map[string]any{
			"ReferenceNumber": intent.BillReference,
			"CustomerEmail":   strings.TrimSpace(intent.CustomerEmail),
			"CustomerMobile":  strings.TrimSpace(intent.CustomerPhone),
			"BillingAddress":  defaultAddressLine,
			"BillingCity":     defaultCity,
			"BillingCountry":  defaultCountry,
			"BillingPostcode": defaultPostcode,
		},
	}
}
