package cognitive

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cortexbuild/cortex/internal/models"
)

// Metrics holds Prometheus metrics for the analysis pipeline.
type Metrics struct {
	EventsTotal          *prometheus.CounterVec   // Events processed, by outcome
	PatternsTotal        *prometheus.CounterVec   // Patterns detected, by type and risk level
	SpecialistFailures   *prometheus.CounterVec   // Absorbed specialist failures, by agent
	StageDuration        *prometheus.HistogramVec // Seconds spent per pipeline stage
	HypothesisConfidence prometheus.Histogram     // Confidence of produced hypotheses
}

// NewMetrics creates pipeline metrics and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_pipeline_events_total",
			Help: "Events processed by the analysis pipeline, by outcome",
		}, []string{"outcome"}),
		PatternsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_pipeline_patterns_detected_total",
			Help: "Patterns detected, by pattern type and risk level",
		}, []string{"pattern_type", "risk_level"}),
		SpecialistFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cortex_pipeline_specialist_failures_total",
			Help: "Specialist queries dropped after an error or timeout",
		}, []string{"agent", "timed_out"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cortex_pipeline_stage_duration_seconds",
			Help:    "Time spent in each pipeline stage",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		HypothesisConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cortex_pipeline_hypothesis_confidence",
			Help:    "Confidence of synthesized root-cause hypotheses",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}

	if reg != nil {
		reg.MustRegister(m.EventsTotal)
		reg.MustRegister(m.PatternsTotal)
		reg.MustRegister(m.SpecialistFailures)
		reg.MustRegister(m.StageDuration)
		reg.MustRegister(m.HypothesisConfidence)
	}
	return m
}

func (m *Metrics) observeFailure(f *models.SpecialistQueryFailure) {
	m.SpecialistFailures.WithLabelValues(string(f.Agent), strconv.FormatBool(f.TimedOut)).Inc()
}
