package metrics

import "github.com/prometheus/client_golang/prometheus"

// OutboxMetrics counts relay attempts per topic.
type OutboxMetrics struct {
	publishes *prometheus.CounterVec
}

// NewOutboxMetrics registers the outbox relay collectors on reg.
func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	publishes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_publish_total",
		Help:      "Outbox rows relayed to Pub/Sub, by topic and outcome.",
	}, []string{"topic", "outcome"})
	reg.MustRegister(publishes)
	return &OutboxMetrics{publishes: publishes}
}

// IncPublish counts one relay attempt.
func (m *OutboxMetrics) IncPublish(topic, outcome string) {
	if m == nil || m.publishes == nil {
		return
	}
	m.publishes.WithLabelValues(normalizeLabel(topic), outcome).Inc()
}
