package service

import (
	"fmt"
	"strings"

	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
)

const (
	defaultLearnerName = "Learner"

	lowCompletionBelow = 40
	midCompletionBelow = 80
	highMissedSessions = 3
)

// FallbackGenerator writes deterministic template messages when the external
// provider cannot be used. It never fails.
type FallbackGenerator struct{}

// NewFallbackGenerator creates a fallback generator
func NewFallbackGenerator() *FallbackGenerator {
	return &FallbackGenerator{}
}

// Name returns "fallback"
func (g *FallbackGenerator) Name() string { return "fallback" }

// Generate picks a template by completion tier and missed sessions
func (g *FallbackGenerator) Generate(learner *model.Learner) string {
	if learner == nil {
		return "Hi Learner, every step counts. Pick one short lesson today and keep your momentum going."
	}

	name := DisplayName(learner)
	course := strings.TrimSpace(learner.Course)
	if course == "" {
		course = "your course"
	}
	missedMany := learner.Signals.MissedSessions >= highMissedSessions
	pct := learner.Signals.CompletionPct

	switch {
	case pct < lowCompletionBelow && missedMany:
		return fmt.Sprintf("Hi %s, we have missed you in %s. Starting again is the hardest part, so try just one 10-minute lesson today and we will take it from there.", name, course)
	case pct < lowCompletionBelow:
		return fmt.Sprintf("Hi %s, you have made a start on %s. Block out a short session this week and the next module will feel much easier.", name, course)
	case pct < midCompletionBelow && missedMany:
		return fmt.Sprintf("Hi %s, you are well into %s but a few sessions have slipped by. Rejoin the next one and you will be back on track quickly.", name, course)
	case pct < midCompletionBelow:
		return fmt.Sprintf("Hi %s, solid progress on %s. Keep a steady rhythm and the finish line will come into view soon.", name, course)
	case missedMany:
		return fmt.Sprintf("Hi %s, you are nearly done with %s. Catch up on the sessions you missed and finish strong.", name, course)
	default:
		return fmt.Sprintf("Hi %s, you are so close to completing %s. One more push and it is done!", name, course)
	}
}
