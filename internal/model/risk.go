package model

import "time"

// RiskLabel is the coarse bucket a risk score falls into
type RiskLabel string

const (
	RiskLow    RiskLabel = "low"
	RiskMedium RiskLabel = "medium"
	RiskHigh   RiskLabel = "high"
)

// RiskWeights are the relative contributions of each signal to the score.
// They are not required to sum to 1; the final score is clamped instead.
type RiskWeights struct {
	Completion float64 `json:"completion" toml:"completion"`
	Quiz       float64 `json:"quiz" toml:"quiz"`
	Missed     float64 `json:"missed" toml:"missed"`
	Login      float64 `json:"login" toml:"login"`
}

// DefaultRiskWeights returns the stock weighting
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{
		Completion: 0.40,
		Quiz:       0.35,
		Missed:     0.15,
		Login:      0.10,
	}
}

// RiskComponents are the weighted per-signal contributions of a score
type RiskComponents struct {
	Completion float64 `json:"completion" bson:"completion"`
	Quiz       float64 `json:"quiz" bson:"quiz"`
	Missed     float64 `json:"missed" bson:"missed"`
	Login      float64 `json:"login" bson:"login"`
}

// Total sums the weighted components
func (c RiskComponents) Total() float64 {
	return c.Completion + c.Quiz + c.Missed + c.Login
}

// RiskAssessment is the result of scoring one learner
type RiskAssessment struct {
	Score      float64        `json:"score" bson:"score"`
	Label      RiskLabel      `json:"label" bson:"label"`
	Components RiskComponents `json:"components" bson:"components"`
	AssessedAt time.Time      `json:"assessedAt" bson:"assessedAt"`
}

// BatchItem is one element of a batch assessment, in input order
type BatchItem struct {
	Index int       `json:"index"`
	Score float64   `json:"score"`
	Label RiskLabel `json:"label"`
}
