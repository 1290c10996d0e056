package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveAdmission("admitted")
	m.ObserveAdmission("admitted")
	m.ObserveAdmission("limited")
	m.ObserveBreakerTransition("closed", "open", 1)
	m.ObserveGeneration("fallback", 3)
	m.ObserveAssessment("high")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AdmissionDecisions.WithLabelValues("admitted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdmissionDecisions.WithLabelValues("limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerState))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerTransitions.WithLabelValues("closed", "open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationOutcomes.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RiskAssessments.WithLabelValues("high")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.GenerationAttempts))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAdmission("admitted")
		m.ObserveBreakerTransition("open", "closed", 0)
		m.ObserveGeneration("external", 1)
		m.ObserveAssessment("low")
	})
}
