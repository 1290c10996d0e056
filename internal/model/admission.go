package model

import "time"

// RateLimitRecord is the fixed-window counter for one caller
type RateLimitRecord struct {
	Count       int
	WindowStart time.Time
	ResetAt     time.Time
}

// AdmissionResult is the outcome of an admission check.
// RetryAfterSeconds is only meaningful when Limited is true.
type AdmissionResult struct {
	Limited           bool      `json:"limited"`
	Remaining         int       `json:"remaining"`
	ResetAt           time.Time `json:"resetAt"`
	RetryAfterSeconds int       `json:"retryAfterSeconds,omitempty"`
}
