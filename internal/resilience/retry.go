package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seriouslysahid/CodeRed-sub001/internal/clock"
)

// RetryPolicy bounds how an operation is retried
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int
	// BaseDelay is the wait before the second attempt
	BaseDelay time.Duration
	// BackoffFactor multiplies the delay for each further attempt
	BackoffFactor float64
	// MaxDelay caps any single wait
	MaxDelay time.Duration
	// AttemptTimeout bounds each attempt; zero means no per-attempt bound
	AttemptTimeout time.Duration
	// IsTransient decides whether an error is retried. Defaults to IsTransient.
	IsTransient func(error) bool
}

// DefaultRetryPolicy returns 3 attempts with 1s, 2s backoff capped at 30s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		BackoffFactor:  2,
		MaxDelay:       30 * time.Second,
		AttemptTimeout: 10 * time.Second,
		IsTransient:    IsTransient,
	}
}

// Validate checks the policy is usable
func (p RetryPolicy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return fmt.Errorf("retry policy: max attempts must be at least 1, got %d", p.MaxAttempts)
	case p.BaseDelay < 0:
		return fmt.Errorf("retry policy: base delay must not be negative, got %s", p.BaseDelay)
	case p.BackoffFactor < 1:
		return fmt.Errorf("retry policy: backoff factor must be at least 1, got %v", p.BackoffFactor)
	case p.MaxDelay < p.BaseDelay:
		return fmt.Errorf("retry policy: max delay %s is below base delay %s", p.MaxDelay, p.BaseDelay)
	case p.AttemptTimeout < 0:
		return fmt.Errorf("retry policy: attempt timeout must not be negative, got %s", p.AttemptTimeout)
	}
	return nil
}

// Delay returns the wait before attempt n (1-based). The first attempt is
// never delayed.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 2 || p.BaseDelay <= 0 {
		return 0
	}
	d := float64(p.BaseDelay) * math.Pow(p.BackoffFactor, float64(attempt-2))
	if d > float64(p.MaxDelay) || math.IsInf(d, 1) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Operation is one attempt of a retried call
type Operation func(ctx context.Context, attempt int) error

// RetryResult describes how a call was executed
type RetryResult struct {
	// Attempts actually made
	Attempts int
	// Waited is the total backoff delay
	Waited time.Duration
}

// Orchestrator retries transient failures behind a circuit breaker.
//
// Thread Safety: Safe for concurrent use.
type Orchestrator struct {
	policy  RetryPolicy
	breaker *CircuitBreaker
	clock   clock.Clock
	log     logrus.FieldLogger
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the logger used for retry and breaker messages
func WithLogger(log logrus.FieldLogger) OrchestratorOption {
	return func(o *Orchestrator) { o.log = log }
}

// NewOrchestrator creates an Orchestrator. The policy must be valid.
func NewOrchestrator(policy RetryPolicy, breaker *CircuitBreaker, clk clock.Clock, opts ...OrchestratorOption) (*Orchestrator, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if breaker == nil {
		return nil, errors.New("retry orchestrator: circuit breaker is required")
	}
	if policy.IsTransient == nil {
		policy.IsTransient = IsTransient
	}
	if clk == nil {
		clk = clock.Real{}
	}
	o := &Orchestrator{
		policy:  policy,
		breaker: breaker,
		clock:   clk,
		log:     logrus.StandardLogger().WithField("component", "retry"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Policy returns the retry policy
func (o *Orchestrator) Policy() RetryPolicy { return o.policy }

// Execute runs op until it succeeds, fails permanently, the breaker refuses
// or attempts run out. Every attempt outcome is reported to the breaker,
// except when ctx itself is done: then a granted probe is released unscored.
//
// Permanent errors are returned as-is. An open circuit and exhausted retries
// are returned as *UnavailableError.
func (o *Orchestrator) Execute(ctx context.Context, op Operation) (RetryResult, error) {
	var result RetryResult
	var lastErr error

	for attempt := 1; attempt <= o.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := o.policy.Delay(attempt)
			o.log.WithFields(logrus.Fields{
				"attempt": attempt,
				"delay":   delay,
				"error":   lastErr,
			}).Warn("Transient failure, backing off before retry")
			if err := o.clock.Sleep(ctx, delay); err != nil {
				return result, &UnavailableError{Attempts: result.Attempts, Cause: err}
			}
			result.Waited += delay
		}

		if !o.breaker.AllowRequest() {
			return result, &UnavailableError{Attempts: result.Attempts, Cause: ErrCircuitOpen}
		}

		result.Attempts = attempt
		err := o.runAttempt(ctx, op, attempt)
		if err == nil {
			o.breaker.RecordSuccess()
			return result, nil
		}

		// the caller gave up; that says nothing about the dependency
		if ctx.Err() != nil {
			o.breaker.ReleaseProbe()
			return result, &UnavailableError{Attempts: result.Attempts, Cause: ctx.Err()}
		}

		o.breaker.RecordFailure()
		lastErr = err
		if !o.policy.IsTransient(err) {
			return result, err
		}
	}

	return result, &UnavailableError{Attempts: result.Attempts, Cause: lastErr}
}

func (o *Orchestrator) runAttempt(ctx context.Context, op Operation, attempt int) error {
	if o.policy.AttemptTimeout <= 0 {
		return op(ctx, attempt)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, o.policy.AttemptTimeout)
	defer cancel()

	err := op(attemptCtx, attempt)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return Transient(fmt.Errorf("attempt %d timed out after %s: %w", attempt, o.policy.AttemptTimeout, err))
	}
	return err
}
