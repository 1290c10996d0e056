package resilience

import (
	"sync"
	"time"

	"github.com/seriouslysahid/CodeRed-sub001/internal/clock"
)

// CircuitState is the breaker state
type CircuitState int

const (
	// StateClosed allows every request
	StateClosed CircuitState = iota
	// StateOpen rejects requests until the cooldown elapses
	StateOpen
	// StateHalfOpen allows a single probe request
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON payloads
func (s CircuitState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// BreakerConfig configures a CircuitBreaker
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the circuit
	Threshold int
	// Cooldown is how long the circuit stays open before a probe is allowed.
	// It also bounds how long a half-open probe may stay unreported.
	Cooldown time.Duration
	// OnStateChange is called after every transition, outside the lock
	OnStateChange func(from, to CircuitState)
}

// DefaultBreakerConfig returns a threshold of 3 and a 30s cooldown
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 3, Cooldown: 30 * time.Second}
}

// BreakerStats is a point-in-time snapshot of the breaker
type BreakerStats struct {
	State               CircuitState `json:"state"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	OpenedAt            *time.Time   `json:"openedAt,omitempty"`
}

// CircuitBreaker stops calls to a failing dependency.
//
// Closed counts consecutive failures and opens at the threshold. Open rejects
// until the cooldown has passed, then moves to HalfOpen and grants exactly one
// probe. The probe's success closes the circuit; its failure re-opens it. A
// probe that never reports within one cooldown is treated as lost and another
// probe may be granted.
//
// Thread Safety: Safe for concurrent use.
type CircuitBreaker struct {
	config BreakerConfig
	clock  clock.Clock

	mu                  sync.Mutex
	state               CircuitState
	consecutiveFailures int
	openedAt            time.Time
	probeInFlight       bool
	probeStartedAt      time.Time
}

type transition struct {
	from, to CircuitState
}

// NewCircuitBreaker creates a closed breaker. Non-positive config values fall
// back to the defaults.
func NewCircuitBreaker(cfg BreakerConfig, clk clock.Clock) *CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &CircuitBreaker{config: cfg, clock: clk, state: StateClosed}
}

// AllowRequest reports whether a call may proceed. When the cooldown has
// elapsed it atomically grants the single half-open probe.
func (cb *CircuitBreaker) AllowRequest() bool {
	cb.mu.Lock()
	now := cb.clock.Now()
	var allowed bool
	var change *transition

	switch cb.state {
	case StateClosed:
		allowed = true
	case StateOpen:
		if now.Sub(cb.openedAt) >= cb.config.Cooldown {
			change = cb.setStateLocked(StateHalfOpen)
			cb.grantProbeLocked(now)
			allowed = true
		}
	case StateHalfOpen:
		if !cb.probeInFlight || now.Sub(cb.probeStartedAt) >= cb.config.Cooldown {
			cb.grantProbeLocked(now)
			allowed = true
		}
	}
	cb.mu.Unlock()

	cb.notify(change)
	return allowed
}

// RecordSuccess resets the failure count and closes a half-open circuit
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	var change *transition
	cb.consecutiveFailures = 0
	if cb.state == StateHalfOpen {
		cb.probeInFlight = false
		cb.openedAt = time.Time{}
		change = cb.setStateLocked(StateClosed)
	}
	cb.mu.Unlock()

	cb.notify(change)
}

// RecordFailure counts a failure, opening the circuit at the threshold or
// re-opening it when the half-open probe fails.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	now := cb.clock.Now()
	var change *transition
	cb.consecutiveFailures++

	switch cb.state {
	case StateHalfOpen:
		cb.probeInFlight = false
		cb.openedAt = now
		change = cb.setStateLocked(StateOpen)
	case StateClosed:
		if cb.consecutiveFailures >= cb.config.Threshold {
			cb.openedAt = now
			change = cb.setStateLocked(StateOpen)
		}
	}
	cb.mu.Unlock()

	cb.notify(change)
}

// ReleaseProbe hands back a granted half-open probe without reporting an
// outcome, so the next caller may probe. It does not count as a failure.
func (cb *CircuitBreaker) ReleaseProbe() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateHalfOpen {
		cb.probeInFlight = false
	}
}

// State returns the current state without granting a probe
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot of the breaker
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	stats := BreakerStats{State: cb.state, ConsecutiveFailures: cb.consecutiveFailures}
	if !cb.openedAt.IsZero() {
		openedAt := cb.openedAt
		stats.OpenedAt = &openedAt
	}
	return stats
}

func (cb *CircuitBreaker) grantProbeLocked(now time.Time) {
	cb.probeInFlight = true
	cb.probeStartedAt = now
}

func (cb *CircuitBreaker) setStateLocked(to CircuitState) *transition {
	if cb.state == to {
		return nil
	}
	t := &transition{from: cb.state, to: to}
	cb.state = to
	return t
}

func (cb *CircuitBreaker) notify(t *transition) {
	if t == nil || cb.config.OnStateChange == nil {
		return
	}
	cb.config.OnStateChange(t.from, t.to)
}
