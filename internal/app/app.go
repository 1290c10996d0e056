// Package app assembles the scoring and resilience components from config.
package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/seriouslysahid/CodeRed-sub001/internal/clock"
	"github.com/seriouslysahid/CodeRed-sub001/internal/config"
	"github.com/seriouslysahid/CodeRed-sub001/internal/observability"
	"github.com/seriouslysahid/CodeRed-sub001/internal/resilience"
	"github.com/seriouslysahid/CodeRed-sub001/internal/risk"
	"github.com/seriouslysahid/CodeRed-sub001/internal/service"
)

// Core owns one instance of each core component. It is built once at
// startup and handed to the transports; there are no package-level
// singletons.
type Core struct {
	Clock      clock.Clock
	Weights    *config.WeightStore
	Engine     *risk.Engine
	Admission  *resilience.AdmissionController
	Breaker    *resilience.CircuitBreaker
	Retrier    *resilience.Orchestrator
	Generation *service.GenerationService
	Metrics    *observability.Metrics
}

// NewCore builds the core from cfg. gen may be nil, in which case every
// message comes from the fallback generator.
func NewCore(cfg *config.Config, gen service.Generator, clk clock.Clock, metrics *observability.Metrics, log logrus.FieldLogger) (*Core, error) {
	if clk == nil {
		clk = clock.Real{}
	}

	weights, err := config.NewWeightStore(cfg.Risk.Weights, cfg.Risk.WeightsFile)
	if err != nil {
		return nil, fmt.Errorf("load risk weights: %w", err)
	}

	admission := resilience.NewAdmissionController(resilience.AdmissionConfig{
		MaxRequests:   cfg.RateLimit.PerWindow,
		Window:        cfg.RateLimit.Window,
		SweepInterval: cfg.RateLimit.SweepInterval,
		Disabled:      cfg.TestMode,
	}, clk)

	breakerLog := log.WithField("component", "breaker")
	breaker := resilience.NewCircuitBreaker(resilience.BreakerConfig{
		Threshold: cfg.Breaker.Threshold,
		Cooldown:  cfg.Breaker.Cooldown,
		OnStateChange: func(from, to resilience.CircuitState) {
			breakerLog.WithFields(logrus.Fields{
				"from": from.String(),
				"to":   to.String(),
			}).Warn("Generator circuit state changed")
			metrics.ObserveBreakerTransition(from.String(), to.String(), float64(to))
		},
	}, clk)

	policy := resilience.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.Retry.MaxAttempts
	policy.BaseDelay = cfg.Retry.BaseDelay
	policy.MaxDelay = cfg.Retry.MaxDelay
	if cfg.AI != nil {
		policy.AttemptTimeout = cfg.AI.Timeout()
	}
	retrier, err := resilience.NewOrchestrator(policy, breaker, clk,
		resilience.WithLogger(log.WithField("component", "retry")))
	if err != nil {
		return nil, err
	}

	generation := service.NewGenerationService(gen, retrier, service.NewFallbackGenerator(),
		service.WithGenerationClock(clk),
		service.WithGenerationMetrics(metrics),
		service.WithGenerationLogger(log.WithField("component", "generation")),
	)

	return &Core{
		Clock:      clk,
		Weights:    weights,
		Engine:     risk.NewEngine(weights, clk),
		Admission:  admission,
		Breaker:    breaker,
		Retrier:    retrier,
		Generation: generation,
		Metrics:    metrics,
	}, nil
}
