package model

import "time"

// LearnerSignals are the raw behavioural signals a risk score is derived from.
// Values outside their nominal ranges are tolerated and clamped when scored.
type LearnerSignals struct {
	CompletionPct  float64   `json:"completionPct" bson:"completionPct"`   // 0-100
	QuizAvg        float64   `json:"quizAvg" bson:"quizAvg"`               // 0-100
	MissedSessions int       `json:"missedSessions" bson:"missedSessions"` // >= 0
	LastLogin      Timestamp `json:"lastLogin" bson:"lastLogin"`
}

// Learner is the profile handed to message generation
type Learner struct {
	ID        string          `json:"id" bson:"_id"`
	Name      string          `json:"name" bson:"name"`
	Course    string          `json:"course,omitempty" bson:"course,omitempty"`
	Signals   LearnerSignals  `json:"signals" bson:"signals"`
	Risk      *RiskAssessment `json:"risk,omitempty" bson:"risk,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// RiskUpdate is pushed to dashboards when a learner's risk label changes
type RiskUpdate struct {
	LearnerID     string    `json:"learnerId"`
	Score         float64   `json:"score"`
	Label         RiskLabel `json:"label"`
	PreviousLabel RiskLabel `json:"previousLabel,omitempty"`
	AssessedAt    time.Time `json:"assessedAt"`
}
