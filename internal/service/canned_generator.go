package service

import (
	"context"
	"strings"

	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
)

// CannedGenerator returns a fixed message. It stands in for the external
// provider in test mode so the full resilient path still runs.
type CannedGenerator struct {
	template string
}

// NewCannedGenerator creates a canned generator. "{name}" in the template is
// replaced with the learner's display name.
func NewCannedGenerator(template string) *CannedGenerator {
	return &CannedGenerator{template: template}
}

// Name returns "canned"
func (g *CannedGenerator) Name() string { return "canned" }

// Generate returns the template for learner
func (g *CannedGenerator) Generate(_ context.Context, _ string, learner *model.Learner) (string, error) {
	return strings.ReplaceAll(g.template, "{name}", DisplayName(learner)), nil
}
