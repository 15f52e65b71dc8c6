package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts collaborator outcomes of the analysis service.
type Metrics struct {
	Duplicates           prometheus.Counter     // Events dropped as duplicate deliveries
	CollaboratorFailures *prometheus.CounterVec // Store and notifier failures absorbed
	NotificationsSent    prometheus.Counter     // Notifications handed to the notifier
}

// NewMetrics creates service metrics and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cortex_service_duplicate_events_total",
			Help: "Events ignored because the same event ID was processed recently",
		}),
		CollaboratorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_service_collaborator_failures_total",
			Help: "Persistence and notification failures, by collaborator and operation",
		}, []string{"collaborator", "operation"}),
		NotificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cortex_service_notifications_total",
			Help: "Notifications handed to the notifier",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Duplicates, m.CollaboratorFailures, m.NotificationsSent)
	}
	return m
}
