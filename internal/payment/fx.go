package payment

import (
	"go.uber.org/fx"

	"github.com/residify/residify/internal/gateway"
	"github.com/residify/residify/internal/payment/service"
	"github.com/residify/residify/internal/payment/webhook"
	"github.com/residify/residify/internal/webhookverify"
)

var Module = fx.Module("payment.service",
	fx.Provide(provideVerifierRegistry),
	fx.Provide(service.NewService),
	fx.Provide(webhook.NewService),
)

// provideVerifierRegistry builds the webhook verifier registry. The sandbox
// verifier accepts every callback, so it is only registered in mock mode;
// in production no verifier is registered until the bank publishes its
// signing scheme, and callbacks are rejected.
func provideVerifierRegistry(cfg gateway.Config) *webhookverify.Registry {
	if cfg.MockEnabled() {
		return webhookverify.NewRegistry(webhookverify.NewSandboxVerifier("alfalah"))
	}
	return webhookverify.NewRegistry()
}
