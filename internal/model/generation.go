package model

import "time"

// Provenance records where a generated message came from
type Provenance string

const (
	ProvenanceExternal Provenance = "external"
	ProvenanceFallback Provenance = "fallback"
)

// GenerationOutcome is the result of a resilient generation call.
// It is always populated; failures surface as fallback provenance.
type GenerationOutcome struct {
	ID             string     `json:"id" bson:"_id"`
	LearnerID      string     `json:"learnerId" bson:"learnerId"`
	Text           string     `json:"text" bson:"text"`
	Provenance     Provenance `json:"provenance" bson:"provenance"`
	Attempts       int        `json:"attempts" bson:"attempts"`
	Generator      string     `json:"generator" bson:"generator"`
	FallbackReason string     `json:"fallbackReason,omitempty" bson:"fallbackReason,omitempty"`
	GeneratedAt    time.Time  `json:"generatedAt" bson:"generatedAt"`
}
