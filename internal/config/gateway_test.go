package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/residify/residify/internal/gateway"
)

func TestLoadGatewayDefaults(t *testing.T) {
	cfg, err := LoadGateway(Config{Environment: "development"})
	require.NoError(t, err)

	require.Equal(t, gateway.EnvSandbox, cfg.Environment)
	require.Equal(t, "https://payments.bankalfalah.com", cfg.BaseURL)
	require.Equal(t, "SSO/SSO", cfg.PathToken)
	require.Equal(t, "1001", cfg.Channel)
	require.Equal(t, 15*time.Second, cfg.Timeout)

	// No merchant credentials configured, so the gateway must run in mock
	// mode rather than hit the live endpoint.
	require.True(t, cfg.MockEnabled())
}

func TestLoadGatewayProductionPathToken(t *testing.T) {
	t.Setenv("RESIDIFY_GATEWAY_ENVIRONMENT", "production")
	t.Setenv("RESIDIFY_GATEWAY_MERCHANT_ID", "merchant-77")

	cfg, err := LoadGateway(Config{Environment: "development"})
	require.NoError(t, err)

	require.Equal(t, gateway.EnvProduction, cfg.Environment)
	require.Equal(t, "HS/HS", cfg.PathToken)
	require.Equal(t, "merchant-77", cfg.MerchantID)
	require.False(t, cfg.MockEnabled())
}

func TestLoadGatewayEnvOverrides(t *testing.T) {
	t.Setenv("RESIDIFY_GATEWAY_BASE_URL", "https://sandbox.bankalfalah.com/")
	t.Setenv("RESIDIFY_GATEWAY_CHANNEL", "1002")
	t.Setenv("RESIDIFY_GATEWAY_TIMEOUT", "5s")

	cfg, err := LoadGateway(Config{Environment: "development"})
	require.NoError(t, err)

	require.Equal(t, "https://sandbox.bankalfalah.com", cfg.BaseURL, "trailing slash is trimmed")
	require.Equal(t, "1002", cfg.Channel)
	require.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestLoadGatewayRejectsMockInProduction(t *testing.T) {
	t.Setenv("RESIDIFY_GATEWAY_USE_MOCK", "true")

	_, err := LoadGateway(Config{Environment: "production"})
	require.Error(t, err)
}
