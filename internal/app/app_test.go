package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seriouslysahid/CodeRed-sub001/internal/clock"
	"github.com/seriouslysahid/CodeRed-sub001/internal/config"
	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
	"github.com/seriouslysahid/CodeRed-sub001/internal/observability"
	"github.com/seriouslysahid/CodeRed-sub001/internal/resilience"
)

type failingGenerator struct{}

func (failingGenerator) Name() string { return "failing" }

func (failingGenerator) Generate(context.Context, string, *model.Learner) (string, error) {
	return "", resilience.FromStatus(503, errors.New("down"))
}

func testConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.NoError(t, err)
	return cfg
}

func TestNewCore_WiresConfig(t *testing.T) {
	cfg := testConfig(t, map[string]string{
		"RATE_LIMIT_PER_MINUTE":     "2",
		"CIRCUIT_BREAKER_THRESHOLD": "2",
		"RETRY_MAX_ATTEMPTS":        "2",
	})
	logger, _ := test.NewNullLogger()
	fake := clock.NewFake(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	metrics := observability.NewMetrics(prometheus.NewRegistry())

	core, err := NewCore(cfg, failingGenerator{}, fake, metrics, logger)
	require.NoError(t, err)

	assert.Equal(t, 2, core.Admission.Max())
	assert.Equal(t, 2, core.Retrier.Policy().MaxAttempts)
	assert.Equal(t, model.DefaultRiskWeights(), core.Engine.Weights())

	out := core.Generation.Generate(context.Background(), &model.Learner{ID: "l1", Name: "Kim"})
	assert.Equal(t, model.ProvenanceFallback, out.Provenance)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, resilience.StateOpen, core.Breaker.State())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BreakerState))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.BreakerTransitions.WithLabelValues("closed", "open")))
}

func TestNewCore_TestModeDisablesAdmission(t *testing.T) {
	cfg := testConfig(t, map[string]string{"TEST_MODE": "true", "RATE_LIMIT_PER_MINUTE": "1"})
	logger, _ := test.NewNullLogger()

	core, err := NewCore(cfg, nil, nil, nil, logger)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.False(t, core.Admission.Check("caller").Limited)
	}
}
