package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the decision authority.
type Metrics struct {
	// Decisions by outcome
	Outcomes *prometheus.CounterVec

	// Decisions rejected because the case was already closed
	AlreadyTerminal prometheus.Counter
}

// New creates a new Metrics instance with all decision metrics registered.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "condoflow_decisions_total",
			Help: "Total decisions recorded, by outcome",
		}, []string{"outcome"}),

		AlreadyTerminal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "condoflow_decisions_rejected_terminal_total",
			Help: "Total decisions rejected because the case was already closed",
		}),
	}
}

// IncrementOutcome records a recorded decision.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

// IncrementAlreadyTerminal records a rejected decision on a closed case.
func (m *Metrics) IncrementAlreadyTerminal() {
	if m != nil {
		m.AlreadyTerminal.Inc()
	}
}
