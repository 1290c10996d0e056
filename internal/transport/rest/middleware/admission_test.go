package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seriouslysahid/CodeRed-sub001/internal/clock"
	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
	"github.com/seriouslysahid/CodeRed-sub001/internal/observability"
	"github.com/seriouslysahid/CodeRed-sub001/internal/resilience"
)

type failingAdmitter struct{}

func (failingAdmitter) Admit(context.Context, string) (model.AdmissionResult, error) {
	return model.AdmissionResult{}, errors.New("redis down")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAdmissionMiddleware_LimitsAfterMax(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	ctrl := resilience.NewAdmissionController(resilience.AdmissionConfig{
		MaxRequests: 2,
		Window:      time.Minute,
	}, clk)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	logger, _ := test.NewNullLogger()
	h := NewAdmissionMiddleware(ctrl, metrics, logger).Limit(okHandler())

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/learners/l1/message", nil)
		req.RemoteAddr = "10.0.0.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := do()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	second := do()
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	third := do()
	assert.Equal(t, http.StatusTooManyRequests, third.Code)
	assert.Equal(t, "60", third.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, third.Body.String())

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.AdmissionDecisions.WithLabelValues(DecisionAdmitted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AdmissionDecisions.WithLabelValues(DecisionLimited)))

	clk.Advance(61 * time.Second)
	assert.Equal(t, http.StatusOK, do().Code)
}

func TestAdmissionMiddleware_SkipsPreflight(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	ctrl := resilience.NewAdmissionController(resilience.AdmissionConfig{
		MaxRequests: 1,
		Window:      time.Minute,
	}, clk)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	logger, _ := test.NewNullLogger()
	h := NewAdmissionMiddleware(ctrl, metrics, logger).Limit(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodOptions, "/v1/learners/l1/message", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))
	}
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.AdmissionDecisions.WithLabelValues(DecisionAdmitted)))

	req := httptest.NewRequest(http.MethodPost, "/v1/learners/l1/message", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestAdmissionMiddleware_FailsOpen(t *testing.T) {
	logger, hook := test.NewNullLogger()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	h := NewAdmissionMiddleware(failingAdmitter{}, metrics, logger).Limit(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Admission check failed, allowing request", hook.LastEntry().Message)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.AdmissionDecisions.WithLabelValues(DecisionError)))
}

func TestCallerKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.4:4000"
	assert.Equal(t, "192.168.1.4", CallerKey(req))

	req.Header.Set("Authorization", "Bearer abc")
	bearer := CallerKey(req)
	assert.Equal(t, resilience.CallerKey("abc", ""), bearer)

	req.Header.Set("X-API-Key", "k-1")
	assert.Equal(t, resilience.CallerKey("k-1", ""), CallerKey(req))
	assert.NotEqual(t, bearer, CallerKey(req))
}
