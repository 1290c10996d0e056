// Package observability defines the Prometheus metrics for admission,
// the generator circuit breaker, message generation and risk scoring.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "learner_risk"

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	AdmissionDecisions *prometheus.CounterVec
	BreakerState       prometheus.Gauge
	BreakerTransitions *prometheus.CounterVec
	GenerationOutcomes *prometheus.CounterVec
	GenerationAttempts prometheus.Histogram
	RiskAssessments    *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AdmissionDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "admission",
			Name:      "decisions_total",
			Help:      "Admission decisions by outcome (admitted, limited, error).",
		}, []string{"decision"}),
		BreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "state",
			Help:      "Generator circuit state: 0 closed, 1 open, 2 half-open.",
		}),
		BreakerTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "breaker",
			Name:      "transitions_total",
			Help:      "Generator circuit state transitions.",
		}, []string{"from", "to"}),
		GenerationOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "outcomes_total",
			Help:      "Generated messages by provenance.",
		}, []string{"provenance"}),
		GenerationAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "attempts",
			Help:      "External attempts made per generated message.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		RiskAssessments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "assessments_total",
			Help:      "Risk assessments by label.",
		}, []string{"label"}),
	}
}

// ObserveAdmission counts one admission decision
func (m *Metrics) ObserveAdmission(decision string) {
	if m == nil {
		return
	}
	m.AdmissionDecisions.WithLabelValues(decision).Inc()
}

// ObserveBreakerTransition records a state change. state is the numeric
// value of the new state.
func (m *Metrics) ObserveBreakerTransition(from, to string, state float64) {
	if m == nil {
		return
	}
	m.BreakerTransitions.WithLabelValues(from, to).Inc()
	m.BreakerState.Set(state)
}

// ObserveGeneration records one generation outcome
func (m *Metrics) ObserveGeneration(provenance string, attempts int) {
	if m == nil {
		return
	}
	m.GenerationOutcomes.WithLabelValues(provenance).Inc()
	m.GenerationAttempts.Observe(float64(attempts))
}

// ObserveAssessment counts one risk assessment
func (m *Metrics) ObserveAssessment(label string) {
	if m == nil {
		return
	}
	m.RiskAssessments.WithLabelValues(label).Inc()
}
