package service_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/residify/residify/internal/clock"
	"github.com/residify/residify/internal/gateway"
	paymentdomain "github.com/residify/residify/internal/payment/domain"
	paymentservice "github.com/residify/residify/internal/payment/service"
	transactiondomain "github.com/residify/residify/internal/transaction/domain"
	transactionrepo "github.com/residify/residify/internal/transaction/repository"
	transactionservice "github.com/residify/residify/internal/transaction/service"
	"github.com/residify/residify/internal/webhookverify"
)

func testKeyPEM(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	block := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
	return string(block), key
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_pay_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE transactions (
			id BIGINT PRIMARY KEY,
			order_id TEXT NOT NULL,
			user_id BIGINT NOT NULL,
			bill_id BIGINT,
			amount BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			payment_method TEXT,
			aggregator_order_id TEXT,
			aggregator_response TEXT,
			callback_data TEXT,
			metadata TEXT,
			signature TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_transactions_order_id ON transactions(order_id)`,
		`CREATE TABLE payment_logs (
			id BIGINT PRIMARY KEY,
			transaction_id BIGINT NOT NULL,
			order_id TEXT NOT NULL,
			event TEXT NOT NULL,
			data TEXT,
			error TEXT,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX idx_payment_logs_tx_ts ON payment_logs(transaction_id, timestamp)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}

	return db
}

func newOrchestrator(t *testing.T, db *gorm.DB, cfg gateway.Config) (*paymentservice.Service, *transactionservice.Service, *clock.FakeClock) {
	t.Helper()

	node, err := snowflake.NewNode(9)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))

	ledger := transactionservice.NewService(transactionservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  transactionrepo.Provide(),
	})

	client, err := gateway.NewClient(gateway.Params{
		Cfg:   cfg,
		Log:   zap.NewNop(),
		Clock: clk,
	})
	if err != nil {
		t.Fatalf("new gateway client: %v", err)
	}

	registry := webhookverify.NewRegistry(webhookverify.NewSandboxVerifier("alfalah"))
	svc := paymentservice.NewService(paymentservice.Params{
		Log:        zap.NewNop(),
		Gateway:    client,
		GatewayCfg: cfg,
		Ledger:     ledger,
		Verifiers:  registry,
	})
	return svc, ledger, clk
}

func mockConfig() gateway.Config {
	return gateway.Config{
		Environment: gateway.EnvSandbox,
		BaseURL:     "http://203.0.113.1:1",
		PathToken:   "SSO/SSO",
		UseMock:     true,
		MockPageURL: "http://localhost:8080/mock-payment",
		Timeout:     time.Second,
	}
}

func TestCreatePaymentMockMode(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newOrchestrator(t, setupTestDB(t), mockConfig())

	result, err := svc.CreatePayment(ctx, paymentdomain.Intent{
		OrderID:       "ORD-MOCK-1",
		UserID:        11,
		Amount:        250000,
		BillReference: "BILL-2026-03",
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	if result.OrderID != "ORD-MOCK-1" {
		t.Fatalf("unexpected order id %q", result.OrderID)
	}
	if !strings.HasPrefix(result.PaymentID, gateway.MockSessionPrefix) {
		t.Fatalf("expected mock session id, got %q", result.PaymentID)
	}
	if !strings.HasPrefix(result.PaymentURL, "http://localhost:8080/mock-payment?session_id=") {
		t.Fatalf("expected mock page redirect, got %q", result.PaymentURL)
	}

	// Mock mode must never settle the transaction on its own.
	tx, err := ledger.Get(ctx, "ORD-MOCK-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if tx.Status != transactiondomain.StatusPending {
		t.Fatalf("expected pending after create, got %s", tx.Status)
	}
	if tx.AggregatorOrderID != result.PaymentID {
		t.Fatalf("expected session %q attached, got %q", result.PaymentID, tx.AggregatorOrderID)
	}

	logs, err := ledger.ListLogs(ctx, tx.ID)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected created+initiated logs, got %d", len(logs))
	}
	if logs[0].Event != transactiondomain.EventCreated || logs[1].Event != transactiondomain.EventInitiated {
		t.Fatalf("unexpected log sequence %s, %s", logs[0].Event, logs[1].Event)
	}
}

func TestCreatePaymentDuplicateOrder(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newOrchestrator(t, setupTestDB(t), mockConfig())

	intent := paymentdomain.Intent{
		OrderID:       "ORD-DUP",
		UserID:        3,
		Amount:        1000,
		BillReference: "BILL-1",
	}
	if _, err := svc.CreatePayment(ctx, intent); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.CreatePayment(ctx, intent); !errors.Is(err, transactiondomain.ErrDuplicateOrder) {
		t.Fatalf("expected ErrDuplicateOrder, got %v", err)
	}
}

func TestCreatePaymentValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newOrchestrator(t, setupTestDB(t), mockConfig())

	cases := []paymentdomain.Intent{
		{OrderID: "", Amount: 100, BillReference: "B"},
		{OrderID: "ORD", Amount: 0, BillReference: "B"},
		{OrderID: "ORD", Amount: -5, BillReference: "B"},
		{OrderID: "ORD", Amount: 100, BillReference: "  "},
	}
	for i, intent := range cases {
		if _, err := svc.CreatePayment(ctx, intent); !errors.Is(err, paymentdomain.ErrInvalidIntent) {
			t.Fatalf("case %d: expected ErrInvalidIntent, got %v", i, err)
		}
	}
}

func TestCreatePaymentGatewayFailure(t *testing.T) {
	ctx := context.Background()

	// Session endpoint responds without a SESSION_ID.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"Data":{}}`)
	}))
	defer srv.Close()

	publicPEM, _ := testKeyPEM(t)
	cfg := gateway.Config{
		Environment:      gateway.EnvSandbox,
		BaseURL:          srv.URL,
		PathToken:        "SSO/SSO",
		MerchantID:       "merchant-1",
		MerchantPassword: "secret",
		Channel:          "1001",
		PublicKeyPEM:     publicPEM,
		Timeout:          2 * time.Second,
	}

	svc, ledger, _ := newOrchestrator(t, setupTestDB(t), cfg)

	_, err := svc.CreatePayment(ctx, paymentdomain.Intent{
		OrderID:       "ORD-FAIL",
		UserID:        5,
		Amount:        4200,
		BillReference: "BILL-9",
	})
	if !errors.Is(err, paymentdomain.ErrPaymentCreateFailed) {
		t.Fatalf("expected ErrPaymentCreateFailed, got %v", err)
	}
	if !errors.Is(err, gateway.ErrProtocol) {
		t.Fatalf("expected wrapped ErrProtocol, got %v", err)
	}
	if !strings.Contains(err.Error(), "ORD-FAIL") || !strings.Contains(err.Error(), "4200") {
		t.Fatalf("expected attempt context in error, got %v", err)
	}

	// The transaction survives the failed attempt and stays retryable.
	tx, err := ledger.Get(ctx, "ORD-FAIL")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if tx.Status != transactiondomain.StatusPending {
		t.Fatalf("expected pending after gateway failure, got %s", tx.Status)
	}

	logs, err := ledger.ListLogs(ctx, tx.ID)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	var failed bool
	for _, entry := range logs {
		if entry.Event == transactiondomain.EventFailed && entry.Error != "" {
			failed = true
		}
	}
	if !failed {
		t.Fatalf("expected failed attempt in payment log")
	}
}

func TestSimulateSandboxPaymentRefusedOutsideMock(t *testing.T) {
	ctx := context.Background()
	publicPEM, _ := testKeyPEM(t)
	cfg := gateway.Config{
		Environment:  gateway.EnvProduction,
		BaseURL:      "http://203.0.113.1:1",
		PathToken:    "HS/HS",
		MerchantID:   "merchant-1",
		PublicKeyPEM: publicPEM,
	}
	svc, _, _ := newOrchestrator(t, setupTestDB(t), cfg)

	if _, err := svc.SimulateSandboxPayment(ctx, "ORD-X", transactiondomain.StatusSuccess); !errors.Is(err, paymentdomain.ErrSandboxOnly) {
		t.Fatalf("expected ErrSandboxOnly, got %v", err)
	}
}

func TestSimulateSandboxPaymentSettles(t *testing.T) {
	ctx := context.Background()
	svc, ledger, _ := newOrchestrator(t, setupTestDB(t), mockConfig())

	if _, err := svc.CreatePayment(ctx, paymentdomain.Intent{
		OrderID:       "ORD-SIM",
		UserID:        8,
		Amount:        1500,
		BillReference: "BILL-SIM",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	tx, err := svc.SimulateSandboxPayment(ctx, "ORD-SIM", transactiondomain.StatusSuccess)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if tx.Status != transactiondomain.StatusSuccess {
		t.Fatalf("expected success, got %s", tx.Status)
	}

	if _, err := ledger.Get(ctx, "ORD-SIM"); err != nil {
		t.Fatalf("get: %v", err)
	}
}

func TestCancelPendingPayment(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newOrchestrator(t, setupTestDB(t), mockConfig())

	if _, err := svc.CreatePayment(ctx, paymentdomain.Intent{
		OrderID:       "ORD-CXL",
		UserID:        2,
		Amount:        900,
		BillReference: "BILL-CXL",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	tx, err := svc.Cancel(ctx, "ORD-CXL")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if tx.Status != transactiondomain.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", tx.Status)
	}

	if _, err := svc.Cancel(ctx, "ORD-CXL"); !errors.Is(err, transactiondomain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second cancel, got %v", err)
	}
}
