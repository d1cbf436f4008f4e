// Package metrics registers the Prometheus collectors shared across the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector the bot exposes.
type Metrics struct {
	MessagesReceived *prometheus.CounterVec
	MessagesSent     *prometheus.CounterVec
	IntentDetected   *prometheus.CounterVec

	GatewayRequests *prometheus.CounterVec
	GatewayLatency  *prometheus.HistogramVec

	BrainsRequests *prometheus.CounterVec
	BrainsLatency  *prometheus.HistogramVec

	ClaudeRequests *prometheus.CounterVec
	ClaudeLatency  *prometheus.HistogramVec

	OrdersCreated prometheus.Counter
	Errors        *prometheus.CounterVec
}

// New creates and registers the collectors on the given registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Inbound WhatsApp messages by classified intent.",
		}, []string{"intent"}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound WhatsApp messages by category.",
		}, []string{"category"}),
		IntentDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_secondary_intent_total",
			Help:      "Secondary intent labels derived from AI replies.",
		}, []string{"intent"}),
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Messaging gateway requests by kind and status.",
		}, []string{"kind", "status"}),
		GatewayLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_seconds",
			Help:      "Messaging gateway request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind", "status"}),
		BrainsRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "brains_requests_total",
			Help:      "Brains API requests by endpoint and status.",
		}, []string{"endpoint", "status"}),
		BrainsLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "brains_request_seconds",
			Help:      "Brains API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
		ClaudeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claude_requests_total",
			Help:      "Completion service requests by outcome.",
		}, []string{"status"}),
		ClaudeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "claude_request_seconds",
			Help:      "Completion service request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created through the conversation flow.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by pipeline stage.",
		}, []string{"stage"}),
	}

	reg.MustRegister(
		m.MessagesReceived, m.MessagesSent, m.IntentDetected,
		m.GatewayRequests, m.GatewayLatency,
		m.BrainsRequests, m.BrainsLatency,
		m.ClaudeRequests, m.ClaudeLatency,
		m.OrdersCreated, m.Errors,
	)
	return m
}

// NewNop returns metrics backed by a private registry, for tests.
func NewNop() *Metrics {
	return New("test", prometheus.NewRegistry())
}
