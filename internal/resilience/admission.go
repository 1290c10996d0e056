package resilience

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/seriouslysahid/CodeRed-sub001/internal/clock"
	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
)

// UnknownCaller is the key used when no identity can be derived
const UnknownCaller = "unknown"

// AdmissionConfig configures the fixed-window admission controller
type AdmissionConfig struct {
	// MaxRequests admitted per caller per window
	MaxRequests int
	// Window is the length of one counting window
	Window time.Duration
	// SweepInterval bounds how often expired records are purged
	SweepInterval time.Duration
	// Disabled admits everything. Only for test mode.
	Disabled bool
}

// DefaultAdmissionConfig returns 5 requests per minute with a 5 minute sweep
func DefaultAdmissionConfig() AdmissionConfig {
	return AdmissionConfig{
		MaxRequests:   5,
		Window:        time.Minute,
		SweepInterval: 5 * time.Minute,
	}
}

// AdmissionController is an in-memory fixed-window rate limiter keyed by
// caller identity. Expired records are swept on the request path.
//
// Thread Safety: Safe for concurrent use.
type AdmissionController struct {
	config AdmissionConfig
	clock  clock.Clock

	mu        sync.Mutex
	records   map[string]model.RateLimitRecord
	lastSweep time.Time
}

// NewAdmissionController creates a controller. Non-positive config values
// fall back to the defaults.
func NewAdmissionController(cfg AdmissionConfig, clk clock.Clock) *AdmissionController {
	def := DefaultAdmissionConfig()
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = def.MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &AdmissionController{
		config:    cfg,
		clock:     clk,
		records:   make(map[string]model.RateLimitRecord),
		lastSweep: clk.Now(),
	}
}

// Check counts one request from key and reports whether it is admitted
func (a *AdmissionController) Check(key string) model.AdmissionResult {
	now := a.clock.Now()
	limit := a.config.MaxRequests

	if a.config.Disabled {
		return model.AdmissionResult{Remaining: limit, ResetAt: now.Add(a.config.Window)}
	}
	if key == "" {
		key = UnknownCaller
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.sweepLocked(now)

	rec, ok := a.records[key]
	if !ok || now.After(rec.ResetAt) {
		rec = model.RateLimitRecord{Count: 1, WindowStart: now, ResetAt: now.Add(a.config.Window)}
		a.records[key] = rec
		return model.AdmissionResult{Remaining: limit - 1, ResetAt: rec.ResetAt}
	}

	// stop counting once limited so the record never grows past limit+1
	if rec.Count <= limit {
		rec.Count++
		a.records[key] = rec
	}

	if rec.Count > limit {
		return model.AdmissionResult{
			Limited:           true,
			Remaining:         0,
			ResetAt:           rec.ResetAt,
			RetryAfterSeconds: retryAfterSeconds(rec.ResetAt, now),
		}
	}
	return model.AdmissionResult{Remaining: limit - rec.Count, ResetAt: rec.ResetAt}
}

// Admit is Check behind the context-aware signature shared with the
// Redis-backed admitter. It never fails.
func (a *AdmissionController) Admit(_ context.Context, key string) (model.AdmissionResult, error) {
	return a.Check(key), nil
}

// Len returns the number of tracked callers
func (a *AdmissionController) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.records)
}

// Max returns the per-window request budget
func (a *AdmissionController) Max() int { return a.config.MaxRequests }

func (a *AdmissionController) sweepLocked(now time.Time) {
	if now.Sub(a.lastSweep) < a.config.SweepInterval {
		return
	}
	for key, rec := range a.records {
		if now.After(rec.ResetAt) {
			delete(a.records, key)
		}
	}
	a.lastSweep = now
}

func retryAfterSeconds(resetAt, now time.Time) int {
	secs := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// CallerKey derives a rate-limit identity. An API key wins and is hashed so
// the raw secret never sits in memory as a map key; otherwise the source IP
// without its port is used.
func CallerKey(apiKey, remoteAddr string) string {
	if k := strings.TrimSpace(apiKey); k != "" {
		sum := sha256.Sum256([]byte(k))
		return "key:" + hex.EncodeToString(sum[:8])
	}
	host := strings.TrimSpace(remoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		return UnknownCaller
	}
	return host
}
