package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors of the lifecycle subsystem. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	StoreFallbacks      *prometheus.CounterVec
	EligibilityDenials  *prometheus.CounterVec
	Transitions         *prometheus.CounterVec
	NotificationsSent   *prometheus.CounterVec
	NotificationOffline prometheus.Counter
}

// New builds the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StoreFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rental",
			Name:      "store_fallbacks_total",
			Help:      "Remote store operations that fell back to the local cache or an empty result.",
		}, []string{"collection", "op", "reason"}),
		EligibilityDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rental",
			Name:      "eligibility_denials_total",
			Help:      "Rental eligibility checks that denied a unit.",
		}, []string{"reason"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rental",
			Name:      "booking_transitions_total",
			Help:      "Persisted booking status transitions.",
		}, []string{"status", "outcome"}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rental",
			Name:      "notifications_sent_total",
			Help:      "Notifications dispatched.",
		}, []string{"type", "outcome"}),
		NotificationOffline: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "rental",
			Name:      "notification_placeholder_lists_total",
			Help:      "Notification listings served as offline placeholders.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.StoreFallbacks, m.EligibilityDenials, m.Transitions, m.NotificationsSent, m.NotificationOffline)
	}
	return m
}

func (m *Metrics) Fallback(collection, op, reason string) {
	if m == nil {
		return
	}
	m.StoreFallbacks.WithLabelValues(collection, op, reason).Inc()
}

func (m *Metrics) Denied(reason string) {
	if m == nil {
		return
	}
	m.EligibilityDenials.WithLabelValues(reason).Inc()
}

func (m *Metrics) Transitioned(status, outcome string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(status, outcome).Inc()
}

func (m *Metrics) Notified(kind, outcome string) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Placeholder() {
	if m == nil {
		return
	}
	m.NotificationOffline.Inc()
}
