package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
	"github.com/seriouslysahid/CodeRed-sub001/internal/observability"
	"github.com/seriouslysahid/CodeRed-sub001/internal/resilience"
)

// Admitter decides whether a caller may proceed. Both the in-process
// controller and the Redis counter satisfy it.
type Admitter interface {
	Admit(ctx context.Context, key string) (model.AdmissionResult, error)
}

// Admission decisions recorded in metrics
const (
	DecisionAdmitted = "admitted"
	DecisionLimited  = "limited"
	DecisionError    = "error"
)

// AdmissionMiddleware rate-limits expensive routes per caller
type AdmissionMiddleware struct {
	admitter Admitter
	metrics  *observability.Metrics
	log      logrus.FieldLogger
}

// NewAdmissionMiddleware creates a new admission middleware
func NewAdmissionMiddleware(admitter Admitter, metrics *observability.Metrics, log logrus.FieldLogger) *AdmissionMiddleware {
	return &AdmissionMiddleware{admitter: admitter, metrics: metrics, log: log}
}

// Limit rejects callers over their window budget with 429 and Retry-After.
// If the admitter itself fails the request is let through.
func (m *AdmissionMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// preflights carry no work and are not counted
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		key := CallerKey(r)
		result, err := m.admitter.Admit(r.Context(), key)
		if err != nil {
			m.log.WithError(err).WithField("caller", key).Warn("Admission check failed, allowing request")
			m.metrics.ObserveAdmission(DecisionError)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if result.Limited {
			m.metrics.ObserveAdmission(DecisionLimited)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfterSeconds))
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		m.metrics.ObserveAdmission(DecisionAdmitted)
		next.ServeHTTP(w, r)
	})
}

// CallerKey identifies the caller by API key, then bearer token, then
// source address.
func CallerKey(r *http.Request) string {
	apiKey := r.Header.Get("X-API-Key")
	if apiKey == "" {
		apiKey = extractBearerToken(r)
	}
	return resilience.CallerKey(apiKey, r.RemoteAddr)
}
