package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/seriouslysahid/CodeRed-sub001/internal/model"
	"github.com/seriouslysahid/CodeRed-sub001/internal/risk"
	"github.com/seriouslysahid/CodeRed-sub001/internal/service"
	"github.com/seriouslysahid/CodeRed-sub001/internal/transport/rest/middleware"
)

const (
	maxBatchSize      = 1000
	defaultBoardLimit = 10
	maxBoardLimit     = 100
)

// BatchRequest is the body of POST /v1/risk/batch
type BatchRequest struct {
	Signals []model.LearnerSignals `json:"signals" validate:"required,max=1000"`
}

// BatchResponse wraps the scored items in request order
type BatchResponse struct {
	Results []model.BatchItem `json:"results"`
}

type learnerIDParam struct {
	ID string `validate:"required,max=128,printascii"`
}

// RiskHandler handles risk scoring endpoints
type RiskHandler struct {
	riskSvc  *service.RiskService
	validate *validator.Validate
	log      logrus.FieldLogger
}

// NewRiskHandler creates a new risk handler
func NewRiskHandler(riskSvc *service.RiskService, validate *validator.Validate, log logrus.FieldLogger) *RiskHandler {
	return &RiskHandler{riskSvc: riskSvc, validate: validate, log: log}
}

// Assess handles POST /v1/risk/assess
func (h *RiskHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var signals model.LearnerSignals
	if err := json.NewDecoder(r.Body).Decode(&signals); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assessment, err := h.riskSvc.Assess(signals)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assessment)
}

// Batch handles POST /v1/risk/batch
func (h *RiskHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "signals must be a list of at most "+strconv.Itoa(maxBatchSize)+" entries")
		return
	}

	items, err := h.riskSvc.BatchAssess(req.Signals)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BatchResponse{Results: items})
}

// Ingest handles POST /v1/learners/{id}/signals
func (h *RiskHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.learnerID(w, r)
	if !ok {
		return
	}

	var signals model.LearnerSignals
	if err := json.NewDecoder(r.Body).Decode(&signals); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	learner, err := h.riskSvc.Ingest(r.Context(), id, signals)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, learner)
}

// Reevaluate handles POST /v1/risk/reevaluate (staff only)
func (h *RiskHandler) Reevaluate(w http.ResponseWriter, r *http.Request) {
	staffID := middleware.GetStaffID(r.Context())
	summary, err := h.riskSvc.Reevaluate(r.Context())
	if err != nil {
		h.log.WithError(err).WithField("staffId", staffID).Warn("Risk re-evaluation failed")
		writeServiceError(w, err)
		return
	}
	h.log.WithFields(logrus.Fields{
		"staffId":   staffID,
		"evaluated": summary.Evaluated,
		"changed":   summary.Changed,
	}).Info("Risk re-evaluation requested")

	writeJSON(w, http.StatusOK, summary)
}

// Board handles GET /v1/risk/board?limit=N (staff only)
func (h *RiskHandler) Board(w http.ResponseWriter, r *http.Request) {
	limit := defaultBoardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxBoardLimit)
	}

	entries, err := h.riskSvc.Board(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load risk board")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

func (h *RiskHandler) learnerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	return validLearnerID(h.validate, w, r)
}

func validLearnerID(validate *validator.Validate, w http.ResponseWriter, r *http.Request) (string, bool) {
	param := learnerIDParam{ID: mux.Vars(r)["id"]}
	if err := validate.Struct(&param); err != nil {
		writeError(w, http.StatusBadRequest, "invalid learner id")
		return "", false
	}
	return param.ID, true
}

// writeServiceError maps service errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, risk.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrLearnerNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
