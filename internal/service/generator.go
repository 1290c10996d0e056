package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/seriouslysahid/CodeRed-sub001/internal/config"
	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
	"github.com/seriouslysahid/CodeRed-sub001/internal/resilience"
)

// Generator produces a motivational message from an external provider.
// Errors should be classified with resilience.Transient, Permanent or
// FromStatus so that only retryable failures are retried.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string, learner *model.Learner) (string, error)
}

// NewGenerator selects the generator for cfg. Test mode uses the canned
// generator. It returns nil when the provider has no credentials, in which
// case every message falls back to templates.
func NewGenerator(cfg *config.AIConfig, testMode bool) Generator {
	if testMode {
		return NewCannedGenerator(cfg.CannedMessage)
	}
	if !cfg.IsEnabled() {
		return nil
	}
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIGenerator(cfg)
	default:
		return NewGeminiGenerator(cfg)
	}
}

// BuildMessagePrompt builds the outreach prompt for a learner
func BuildMessagePrompt(learner *model.Learner) string {
	course := strings.TrimSpace(learner.Course)
	if course == "" {
		course = "their course"
	}
	risk := "unknown"
	if learner.Risk != nil {
		risk = fmt.Sprintf("%s (%.2f)", learner.Risk.Label, learner.Risk.Score)
	}

	return fmt.Sprintf(`You are a supportive learning coach writing a short check-in message.

Learner: %s
Course: %s
Completion: %.0f%%
Quiz average: %.0f%%
Missed sessions: %d
Disengagement risk: %s

Write 2-3 warm, specific sentences encouraging the learner to take one concrete next step.
Do not mention risk scores or that the learner is being monitored. Plain text only.`,
		DisplayName(learner),
		course,
		learner.Signals.CompletionPct,
		learner.Signals.QuizAvg,
		learner.Signals.MissedSessions,
		risk,
	)
}

// DisplayName returns the learner's name, or "Learner" when unknown
func DisplayName(learner *model.Learner) string {
	if learner == nil {
		return defaultLearnerName
	}
	if name := strings.TrimSpace(learner.Name); name != "" {
		return name
	}
	return defaultLearnerName
}

// newPacer returns a limiter for rps outbound calls per second, or nil when
// rps is not positive.
func newPacer(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// pace blocks until the limiter allows a call. Running out of time while
// waiting is transient.
func pace(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return resilience.Transient(fmt.Errorf("generator pacing: %w", err))
	}
	return nil
}
