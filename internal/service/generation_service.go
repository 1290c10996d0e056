package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/seriouslysahid/CodeRed-sub001/internal/clock"
	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
	"github.com/seriouslysahid/CodeRed-sub001/internal/observability"
	"github.com/seriouslysahid/CodeRed-sub001/internal/resilience"
)

var (
	errNoLearner       = errors.New("no learner profile")
	errNoGenerator     = errors.New("no external generator configured")
	errEmptyGeneration = errors.New("generator returned empty text")
)

// GenerationService generates learner messages through the external
// generator with retries and a circuit breaker, falling back to templates.
// Generate never fails: every call yields a usable message tagged with its
// provenance.
type GenerationService struct {
	generator Generator
	retrier   *resilience.Orchestrator
	fallback  *FallbackGenerator
	clock     clock.Clock
	metrics   *observability.Metrics
	log       logrus.FieldLogger
}

// GenerationOption configures a GenerationService
type GenerationOption func(*GenerationService)

// WithGenerationClock sets the clock used for outcome timestamps
func WithGenerationClock(clk clock.Clock) GenerationOption {
	return func(s *GenerationService) { s.clock = clk }
}

// WithGenerationMetrics records outcomes on m
func WithGenerationMetrics(m *observability.Metrics) GenerationOption {
	return func(s *GenerationService) { s.metrics = m }
}

// WithGenerationLogger sets the logger
func WithGenerationLogger(log logrus.FieldLogger) GenerationOption {
	return func(s *GenerationService) { s.log = log }
}

// NewGenerationService creates a generation service. A nil generator sends
// every request straight to the fallback.
func NewGenerationService(gen Generator, retrier *resilience.Orchestrator, fallback *FallbackGenerator, opts ...GenerationOption) *GenerationService {
	if fallback == nil {
		fallback = NewFallbackGenerator()
	}
	s := &GenerationService{
		generator: gen,
		retrier:   retrier,
		fallback:  fallback,
		clock:     clock.Real{},
		log:       logrus.StandardLogger().WithField("component", "generation"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GeneratorName returns the external generator's name, or "none"
func (s *GenerationService) GeneratorName() string {
	if s.generator == nil {
		return "none"
	}
	return s.generator.Name()
}

// Generate returns a message for learner
func (s *GenerationService) Generate(ctx context.Context, learner *model.Learner) model.GenerationOutcome {
	outcome := model.GenerationOutcome{
		ID:          uuid.NewString(),
		GeneratedAt: s.clock.Now(),
	}
	if learner != nil {
		outcome.LearnerID = learner.ID
	}

	switch {
	case learner == nil:
		return s.useFallback(outcome, learner, errNoLearner)
	case s.generator == nil || s.retrier == nil:
		return s.useFallback(outcome, learner, errNoGenerator)
	}

	prompt := BuildMessagePrompt(learner)
	var text string
	result, err := s.retrier.Execute(ctx, func(ctx context.Context, attempt int) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = resilience.Permanent(fmt.Errorf("generator panicked: %v", r))
			}
		}()
		out, err := s.generator.Generate(ctx, prompt, learner)
		if err != nil {
			return err
		}
		out = strings.TrimSpace(out)
		if out == "" {
			return resilience.Transient(errEmptyGeneration)
		}
		text = out
		return nil
	})
	outcome.Attempts = result.Attempts

	if err != nil {
		return s.useFallback(outcome, learner, err)
	}

	outcome.Text = text
	outcome.Provenance = model.ProvenanceExternal
	outcome.Generator = s.generator.Name()
	s.metrics.ObserveGeneration(string(outcome.Provenance), outcome.Attempts)
	s.log.WithFields(logrus.Fields{
		"learner_id": outcome.LearnerID,
		"attempts":   outcome.Attempts,
		"provenance": outcome.Provenance,
	}).Debug("Message generated")
	return outcome
}

func (s *GenerationService) useFallback(outcome model.GenerationOutcome, learner *model.Learner, cause error) model.GenerationOutcome {
	outcome.Text = s.fallback.Generate(learner)
	outcome.Provenance = model.ProvenanceFallback
	outcome.Generator = s.fallback.Name()
	outcome.FallbackReason = cause.Error()

	s.metrics.ObserveGeneration(string(outcome.Provenance), outcome.Attempts)
	s.log.WithFields(logrus.Fields{
		"learner_id": outcome.LearnerID,
		"attempts":   outcome.Attempts,
		"provenance": outcome.Provenance,
	}).WithError(cause).Warn("Using fallback message")
	return outcome
}
