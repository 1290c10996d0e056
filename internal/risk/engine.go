// Package risk scores learner disengagement from behavioural signals.
//
// Scoring is pure and deterministic: the same signals, weights and reference
// time always produce the same score. Out-of-range numeric signals are
// clamped rather than rejected; only an unusable last-login time is an error.
package risk

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/seriouslysahid/CodeRed-sub001/internal/clock"
	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
)

const (
	// MissedSessionsCap is the missed-session count that saturates its signal
	MissedSessionsCap = 10
	// RecencyCapDays is the login gap in days that saturates its signal
	RecencyCapDays = 30

	lowUpperBound    = 0.33
	mediumUpperBound = 0.66
)

// ErrInvalidInput is returned when signals cannot be scored
var ErrInvalidInput = errors.New("invalid input")

// WeightSource supplies the weights used for a scoring call
type WeightSource interface {
	Weights() model.RiskWeights
}

// StaticWeights is a WeightSource that never changes
type StaticWeights model.RiskWeights

// Weights returns w
func (w StaticWeights) Weights() model.RiskWeights { return model.RiskWeights(w) }

// Score returns the weighted risk score in [0,1] for signals evaluated at now
func Score(signals model.LearnerSignals, weights model.RiskWeights, now time.Time) (float64, error) {
	c, err := Components(signals, weights, now)
	if err != nil {
		return 0, err
	}
	return clamp01(c.Total()), nil
}

// Components returns the weighted contribution of each signal
func Components(signals model.LearnerSignals, weights model.RiskWeights, now time.Time) (model.RiskComponents, error) {
	lastLogin, err := ResolveLastLogin(signals.LastLogin)
	if err != nil {
		return model.RiskComponents{}, err
	}

	days := now.Sub(lastLogin).Hours() / 24
	if days < 0 {
		days = 0
	}

	return model.RiskComponents{
		Completion: weights.Completion * clamp01(1-signals.CompletionPct/100),
		Quiz:       weights.Quiz * clamp01(1-signals.QuizAvg/100),
		Missed:     weights.Missed * clamp01(float64(signals.MissedSessions)/MissedSessionsCap),
		Login:      weights.Login * clamp01(days/RecencyCapDays),
	}, nil
}

// LabelFromScore buckets a score. It is total: NaN and out-of-range values
// are clamped first, so -0.5 is low and 1.5 is high.
func LabelFromScore(score float64) model.RiskLabel {
	s := clamp01(score)
	switch {
	case s < lowUpperBound:
		return model.RiskLow
	case s < mediumUpperBound:
		return model.RiskMedium
	default:
		return model.RiskHigh
	}
}

// ResolveLastLogin turns a Timestamp into a time. Raw text is parsed as an
// ISO-8601 date-time, falling back to a bare calendar date.
func ResolveLastLogin(ts model.Timestamp) (time.Time, error) {
	if !ts.Time.IsZero() {
		return ts.Time, nil
	}
	raw := strings.TrimSpace(ts.Raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: lastLogin is required", ErrInvalidInput)
	}
	if dt, err := strfmt.ParseDateTime(raw); err == nil {
		return time.Time(dt), nil
	}
	if d, err := time.Parse(strfmt.RFC3339FullDate, raw); err == nil {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("%w: lastLogin %q is not an ISO-8601 date", ErrInvalidInput, raw)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Engine scores signals against live weights and the injected clock.
//
// Thread Safety: Safe for concurrent use if the WeightSource is.
type Engine struct {
	weights WeightSource
	clock   clock.Clock
}

// NewEngine creates an Engine. A nil source uses the default weights and a
// nil clock uses wall time.
func NewEngine(weights WeightSource, clk clock.Clock) *Engine {
	if weights == nil {
		weights = StaticWeights(model.DefaultRiskWeights())
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Engine{weights: weights, clock: clk}
}

// Weights returns the weights the next call will use
func (e *Engine) Weights() model.RiskWeights {
	return e.weights.Weights()
}

// Assess scores one learner with the current weights
func (e *Engine) Assess(signals model.LearnerSignals) (model.RiskAssessment, error) {
	return assess(signals, e.weights.Weights(), e.clock.Now())
}

// BatchAssess scores every element in order. It is all-or-nothing: the first
// element that cannot be scored fails the call and is named by index.
func (e *Engine) BatchAssess(list []model.LearnerSignals) ([]model.BatchItem, error) {
	assessments, err := e.AssessAll(list)
	if err != nil {
		return nil, err
	}
	items := make([]model.BatchItem, len(assessments))
	for i, a := range assessments {
		items[i] = model.BatchItem{Index: i, Score: a.Score, Label: a.Label}
	}
	return items, nil
}

// AssessAll is BatchAssess returning full assessments. Weights and the
// reference time are read once for the whole batch.
func (e *Engine) AssessAll(list []model.LearnerSignals) ([]model.RiskAssessment, error) {
	weights := e.weights.Weights()
	now := e.clock.Now()

	out := make([]model.RiskAssessment, 0, len(list))
	for i, signals := range list {
		a, err := assess(signals, weights, now)
		if err != nil {
			return nil, fmt.Errorf("signals[%d]: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func assess(signals model.LearnerSignals, weights model.RiskWeights, now time.Time) (model.RiskAssessment, error) {
	c, err := Components(signals, weights, now)
	if err != nil {
		return model.RiskAssessment{}, err
	}
	score := clamp01(c.Total())
	return model.RiskAssessment{
		Score:      score,
		Label:      LabelFromScore(score),
		Components: c,
		AssessedAt: now,
	}, nil
}
