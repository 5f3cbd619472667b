package metrics

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels shared by the collectors.
const (
	OutcomeCreated   = "created"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeRejected  = "rejected"
	OutcomePublished = "published"
)

// CheckoutMetrics counts payment sessions per seller partition.
type CheckoutMetrics struct {
	partitions *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout collectors on reg.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	partitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_partitions_total",
		Help:      "Seller partitions attempted during checkout, by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(partitions)
	return &CheckoutMetrics{partitions: partitions}
}

// IncPartition counts one partition with the given outcome.
func (m *CheckoutMetrics) IncPartition(outcome string) {
	if m == nil || m.partitions == nil {
		return
	}
	m.partitions.WithLabelValues(outcome).Inc()
}

// WebhookMetrics counts inbound provider events.
type WebhookMetrics struct {
	events *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook collectors on reg.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_events_total",
		Help:      "Stripe webhook events received, by event type and outcome.",
	}, []string{"event_type", "outcome"})
	reg.MustRegister(events)
	return &WebhookMetrics{events: events}
}

// IncEvent counts one webhook delivery.
func (m *WebhookMetrics) IncEvent(eventType, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), outcome).Inc()
}
