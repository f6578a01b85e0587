package webhookverify

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

var (
	ErrInvalidSignature      = errors.New("invalid_signature")
	ErrVerifierNotConfigured = errors.New("verifier_not_configured")
)

// Verifier authenticates an inbound bank callback. The bank has not published
// a signing scheme for this integration; production deployments must register
// an implementation sourced from the bank's integration documentation before
// the webhook path can accept live traffic.
type Verifier interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, signature string, headers http.Header) error
}

type Registry struct {
	verifiers map[string]Verifier
}

func NewRegistry(verifiers ...Verifier) *Registry {
	registry := &Registry{verifiers: map[string]Verifier{}}
	for _, verifier := range verifiers {
		if verifier == nil {
			continue
		}
		provider := strings.ToLower(strings.TrimSpace(verifier.Provider()))
		if provider == "" {
			continue
		}
		registry.verifiers[provider] = verifier
	}
	return registry
}

func (r *Registry) Resolve(provider string) (Verifier, error) {
	if r == nil {
		return nil, ErrVerifierNotConfigured
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	verifier, ok := r.verifiers[provider]
	if !ok {
		return nil, ErrVerifierNotConfigured
	}
	return verifier, nil
}
