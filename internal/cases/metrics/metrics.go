package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the case lifecycle module.
type Metrics struct {
	// Registrations by case type
	CasesRegistered *prometheus.CounterVec

	// Registrations rejected by the quota guard, by case type
	QuotaDenied *prometheus.CounterVec

	// Full registration latency including the quota-gated insert
	RegisterLatency prometheus.Histogram
}

// New creates a new Metrics instance with all case module metrics registered.
func New() *Metrics {
	return &Metrics{
		CasesRegistered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "condoflow_cases_registered_total",
			Help: "Total cases registered by type",
		}, []string{"type"}),

		QuotaDenied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "condoflow_cases_quota_denied_total",
			Help: "Total case registrations rejected by the quota guard, by type",
		}, []string{"type"}),

		RegisterLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "condoflow_cases_register_duration_seconds",
			Help:    "Duration of case registration including the quota-gated insert",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementRegistered records a successful registration.
func (m *Metrics) IncrementRegistered(caseType string) {
	if m != nil {
		m.CasesRegistered.WithLabelValues(caseType).Inc()
	}
}

// IncrementQuotaDenied records a registration rejected by the quota guard.
func (m *Metrics) IncrementQuotaDenied(caseType string) {
	if m != nil {
		m.QuotaDenied.WithLabelValues(caseType).Inc()
	}
}

// ObserveRegisterLatency records the total registration duration.
func (m *Metrics) ObserveRegisterLatency(d time.Duration) {
	if m != nil {
		m.RegisterLatency.Observe(d.Seconds())
	}
}
