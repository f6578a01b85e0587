package webhookverify

import (
	"context"
	"net/http"
)

// SandboxVerifier accepts every callback. It exists so the mock gateway flow
// can be exercised end to end without bank connectivity and must never be
// registered in a production-configured deployment; the registry resolves it
// only when it is wired in explicitly.
type SandboxVerifier struct {
	provider string
}

func NewSandboxVerifier(provider string) *SandboxVerifier {
	return &SandboxVerifier{provider: provider}
}

func (v *SandboxVerifier) Provider() string { return v.provider }

func (v *SandboxVerifier) Verify(ctx context.Context, payload []byte, signature string, headers http.Header) error {
	return nil
}
