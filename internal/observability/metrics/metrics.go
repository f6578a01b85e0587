package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	GatewayOutcomeSession     = "session"
	GatewayOutcomeMock        = "mock"
	GatewayOutcomeProtocol    = "protocol_error"
	GatewayOutcomeUnavailable = "unavailable"

	WebhookResultApplied    = "applied"
	WebhookResultReplay     = "replay"
	WebhookResultRejected   = "rejected"
	WebhookResultUnverified = "unverified"
)

// Metrics captures payment pipeline health signals.
type Metrics struct {
	registry *prometheus.Registry

	paymentsCreated *prometheus.CounterVec
	gatewayRequests *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		paymentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "residify_payments_created_total",
			Help: "Payment attempts by outcome.",
		}, []string{"outcome"}),
		gatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "residify_gateway_requests_total",
			Help: "Checkout session requests by outcome.",
		}, []string{"outcome"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "residify_webhook_events_total",
			Help: "Bank callback deliveries by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		prometheus.NewGoCollector(),
		m.paymentsCreated,
		m.gatewayRequests,
		m.webhookEvents,
	)

	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

func (m *Metrics) RecordPaymentCreated(outcome string) {
	if m == nil {
		return
	}
	m.paymentsCreated.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordGatewayRequest(outcome string) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordWebhookEvent(result string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(result).Inc()
}
