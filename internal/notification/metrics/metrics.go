package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the notification tracker.
type Metrics struct {
	// Notification sends by channel
	Sent *prometheus.CounterVec

	// Tracking updates by stage (delivered, read, acknowledged)
	TrackingUpdates *prometheus.CounterVec
}

// New creates a new Metrics instance with all notification metrics registered.
func New() *Metrics {
	return &Metrics{
		Sent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "condoflow_notifications_sent_total",
			Help: "Total notification events recorded, by channel",
		}, []string{"channel"}),

		TrackingUpdates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "condoflow_notification_tracking_updates_total",
			Help: "Total tracking timestamp updates, by stage",
		}, []string{"stage"}),
	}
}

// IncrementSent records one notification send.
func (m *Metrics) IncrementSent(channel string) {
	if m != nil {
		m.Sent.WithLabelValues(channel).Inc()
	}
}

// IncrementTracking records one tracking update.
func (m *Metrics) IncrementTracking(stage string) {
	if m != nil {
		m.TrackingUpdates.WithLabelValues(stage).Inc()
	}
}
