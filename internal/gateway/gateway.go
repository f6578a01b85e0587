package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/residify/residify/internal/clock"
	"github.com/residify/residify/internal/gateway/fieldcrypt"
	obsmetrics "github.com/residify/residify/internal/observability/metrics"
)

const (
	EnvSandbox    = "sandbox"
	EnvProduction = "production"

	// MockSessionPrefix marks sessions synthesized without bank connectivity.
	MockSessionPrefix = "MOCK_SESSION_"

	// FieldMerchantUsername is the one checkout field the bank reads in
	// plaintext; every other scalar travels encrypted.
	FieldMerchantUsername = "MerchantUsername"
	fieldMerchantPassword = "MerchantPassword"
	fieldChannel          = "ChannelId"
	fieldReturnURL        = "ReturnURL"
	fieldCancelURL        = "CancelURL"
)

var (
	ErrUnavailable = errors.New("gateway_unavailable")
	ErrProtocol    = errors.New("gateway_protocol_error")
)

// Config is the bank gateway configuration, assembled once at startup and
// shared read-only across requests.
type Config struct {
	Environment      string
	BaseURL          string
	PathToken        string
	MerchantID       string
	MerchantPassword string
	Channel          string
	ReturnURL        string
	CancelURL        string
	PublicKeyPEM     string
	PrivateKeyPEM    string
	UseMock          bool
	MockPageURL      string
	Timeout          time.Duration
}

// MockEnabled reports whether checkout sessions are synthesized locally.
// A blank merchant id forces mock mode so a half-configured deployment can
// never reach the live endpoint; the explicit flag is the only other trigger.
func (c Config) MockEnabled() bool {
	return c.UseMock || strings.TrimSpace(c.MerchantID) == ""
}

type Params struct {
	fx.In

	Cfg   Config
	Log   *zap.Logger
	Clock clock.Clock
	Obs   *obsmetrics.Metrics `optional:"true"`
}

// Client obtains one-time checkout sessions from the bank and computes the
// URL the payer is redirected to. It performs no retries; retry policy
// belongs to the caller.
type Client struct {
	cfg        Config
	codec      *fieldcrypt.Codec
	httpClient *http.Client
	clock      clock.Clock
	log        *zap.Logger
	obs        *obsmetrics.Metrics
}

func NewClient(p Params) (*Client, error) {
	codec, err := fieldcrypt.FromPEM(p.Cfg.PublicKeyPEM, p.Cfg.PrivateKeyPEM, FieldMerchantUsername)
	if err != nil {
		return nil, fmt.Errorf("gateway key material: %w", err)
	}

	timeout := p.Cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		cfg:        p.Cfg,
		codec:      codec,
		httpClient: &http.Client{Timeout: timeout},
		clock:      p.Clock,
		log:        p.Log.Named("gateway.client"),
		obs:        p.Obs,
	}, nil
}

func (c *Client) Codec() *fieldcrypt.Codec { return c.codec }

type sessionResponse struct {
	Data struct {
		SessionID string `json:"SESSION_ID"`
	} `json:"Data"`
}

// GetSessionID exchanges a checkout request for a one-time session id. In
// mock mode no network call is made and the id is derived from the clock.
func (c *Client) GetSessionID(ctx context.Context, checkoutRequest map[string]any) (string, error) {
	if c.cfg.MockEnabled() {
		sessionID := MockSessionPrefix + strconv.FormatInt(c.clock.Now().UnixMilli(), 10)
		c.log.Info("mock gateway session issued", zap.String("session_id", sessionID))
		c.obs.RecordGatewayRequest(obsmetrics.GatewayOutcomeMock)
		return sessionID, nil
	}

	body := make(map[string]any, len(checkoutRequest)+5)
	for k, v := range checkoutRequest {
		body[k] = v
	}
	body[FieldMerchantUsername] = c.cfg.MerchantID
	body[fieldMerchantPassword] = c.cfg.MerchantPassword
	body[fieldChannel] = c.cfg.Channel
	body[fieldReturnURL] = c.cfg.ReturnURL
	body[fieldCancelURL] = c.cfg.CancelURL

	encrypted, err := c.codec.EncryptPayload(body)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(encrypted)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	endpoint := fmt.Sprintf("%s/%s/api/checkout", c.cfg.BaseURL, c.cfg.PathToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.obs.RecordGatewayRequest(obsmetrics.GatewayOutcomeUnavailable)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		c.obs.RecordGatewayRequest(obsmetrics.GatewayOutcomeUnavailable)
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		c.obs.RecordGatewayRequest(obsmetrics.GatewayOutcomeUnavailable)
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed sessionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.obs.RecordGatewayRequest(obsmetrics.GatewayOutcomeProtocol)
		return "", fmt.Errorf("%w: status %d body %s", ErrProtocol, resp.StatusCode, truncate(raw))
	}
	sessionID := strings.TrimSpace(parsed.Data.SessionID)
	if sessionID == "" {
		c.obs.RecordGatewayRequest(obsmetrics.GatewayOutcomeProtocol)
		return "", fmt.Errorf("%w: status %d body %s", ErrProtocol, resp.StatusCode, truncate(raw))
	}

	c.obs.RecordGatewayRequest(obsmetrics.GatewayOutcomeSession)
	return sessionID, nil
}

// GetRedirectURL computes the hosted-payment-page URL for a session.
func (c *Client) GetRedirectURL(sessionID string) string {
	if strings.HasPrefix(sessionID, MockSessionPrefix) {
		return c.cfg.MockPageURL + "?session_id=" + url.QueryEscape(sessionID)
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(sessionID))
	return fmt.Sprintf("%s/%s/Site/index.html#/checkout?data=%s", c.cfg.BaseURL, c.cfg.PathToken, encoded)
}

func truncate(raw []byte) string {
	const max = 2048
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}

var Module = fx.Module("gateway",
	fx.Provide(NewClient),
)
