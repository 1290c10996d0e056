package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
)

func TestFallbackGenerator_NilLearner(t *testing.T) {
	msg := NewFallbackGenerator().Generate(nil)

	assert.NotEmpty(t, msg)
	assert.Contains(t, msg, "Learner")
}

func TestFallbackGenerator_BlankName(t *testing.T) {
	msg := NewFallbackGenerator().Generate(&model.Learner{Name: "   "})

	assert.Contains(t, msg, "Hi Learner")
}

func TestFallbackGenerator_Variants(t *testing.T) {
	g := NewFallbackGenerator()
	learner := func(pct float64, missed int) *model.Learner {
		return &model.Learner{
			Name:    "Asha",
			Course:  "Data Structures",
			Signals: model.LearnerSignals{CompletionPct: pct, MissedSessions: missed},
		}
	}

	seen := make(map[string]bool)
	for _, l := range []*model.Learner{
		learner(10, 5), learner(10, 0),
		learner(60, 3), learner(60, 1),
		learner(90, 4), learner(90, 0),
	} {
		msg := g.Generate(l)
		assert.Contains(t, msg, "Asha")
		assert.Contains(t, msg, "Data Structures")
		seen[msg] = true
	}
	assert.Len(t, seen, 6, "each tier and missed-session combination has its own template")
}

func TestFallbackGenerator_Deterministic(t *testing.T) {
	g := NewFallbackGenerator()
	l := &model.Learner{Name: "Ravi", Signals: model.LearnerSignals{CompletionPct: 39.9, MissedSessions: 2}}

	assert.Equal(t, g.Generate(l), g.Generate(l))
	assert.Contains(t, g.Generate(l), "your course")
}

func TestFallbackGenerator_TierBoundaries(t *testing.T) {
	g := NewFallbackGenerator()
	at := func(pct float64) string {
		return g.Generate(&model.Learner{Name: "X", Signals: model.LearnerSignals{CompletionPct: pct}})
	}

	assert.Equal(t, at(0), at(39.99))
	assert.NotEqual(t, at(39.99), at(40))
	assert.Equal(t, at(40), at(79.99))
	assert.NotEqual(t, at(79.99), at(80))
	assert.Equal(t, at(80), at(150))
	assert.Equal(t, at(-20), at(0))
}
