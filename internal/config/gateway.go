package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/residify/residify/internal/gateway"
)

// LoadGateway assembles the bank gateway configuration. Values come from an
// optional gateway.yml plus RESIDIFY_GATEWAY_* environment overrides, and are
// resolved exactly once at startup; the resulting struct is immutable and
// injected wherever the gateway is used.
func LoadGateway(cfg Config) (gateway.Config, error) {
	v := viper.New()

	v.SetConfigName("gateway")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/residify")
	v.AddConfigPath(".")

	v.SetEnvPrefix("RESIDIFY_GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("environment", gateway.EnvSandbox)
	v.SetDefault("base_url", "https://payments.bankalfalah.com")
	v.SetDefault("sandbox_path", "SSO/SSO")
	v.SetDefault("production_path", "HS/HS")
	v.SetDefault("channel", "1001")
	v.SetDefault("mock_page_url", "http://localhost:8080/mock-payment")
	v.SetDefault("timeout", "15s")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return gateway.Config{}, fmt.Errorf("read gateway config: %w", err)
		}
	}

	environment := strings.ToLower(strings.TrimSpace(v.GetString("environment")))
	pathToken := strings.TrimSpace(v.GetString("sandbox_path"))
	if environment == gateway.EnvProduction {
		pathToken = strings.TrimSpace(v.GetString("production_path"))
	}

	timeout := v.GetDuration("timeout")
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	out := gateway.Config{
		Environment:      environment,
		BaseURL:          strings.TrimRight(strings.TrimSpace(v.GetString("base_url")), "/"),
		PathToken:        pathToken,
		MerchantID:       strings.TrimSpace(v.GetString("merchant_id")),
		MerchantPassword: v.GetString("merchant_password"),
		Channel:          strings.TrimSpace(v.GetString("channel")),
		ReturnURL:        strings.TrimSpace(v.GetString("return_url")),
		CancelURL:        strings.TrimSpace(v.GetString("cancel_url")),
		PublicKeyPEM:     v.GetString("public_key"),
		PrivateKeyPEM:    v.GetString("private_key"),
		UseMock:          v.GetBool("use_mock"),
		MockPageURL:      strings.TrimSpace(v.GetString("mock_page_url")),
		Timeout:          timeout,
	}

	if cfg.IsProduction() && out.UseMock {
		return gateway.Config{}, fmt.Errorf("gateway mock mode is not allowed in production")
	}

	return out, nil
}
