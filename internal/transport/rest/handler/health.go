package handler

import (
	"net/http"

	"github.com/seriouslysahid/CodeRed-sub001/internal/resilience"
)

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status    string                  `json:"status"`
	Generator string                  `json:"generator"`
	Breaker   resilience.BreakerStats `json:"breaker"`
}

// HealthHandler reports liveness and generator circuit state
type HealthHandler struct {
	breaker   *resilience.CircuitBreaker
	generator string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(breaker *resilience.CircuitBreaker, generator string) *HealthHandler {
	return &HealthHandler{breaker: breaker, generator: generator}
}

// Health handles GET /health. An open circuit is reported as degraded but
// still answers 200 since messages keep flowing from the fallback.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	stats := h.breaker.Stats()
	status := "ok"
	if stats.State != resilience.StateClosed {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Generator: h.generator,
		Breaker:   stats,
	})
}
