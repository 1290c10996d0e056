package handler

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/seriouslysahid/CodeRed-sub001/internal/service"
)

// MessageHandler handles outreach message endpoints
type MessageHandler struct {
	msgSvc   *service.MessageService
	validate *validator.Validate
}

// NewMessageHandler creates a new message handler
func NewMessageHandler(msgSvc *service.MessageService, validate *validator.Validate) *MessageHandler {
	return &MessageHandler{msgSvc: msgSvc, validate: validate}
}

// Generate handles POST /v1/learners/{id}/message.
// Always 200 once the learner exists; the body says whether the text came
// from the external generator or the fallback.
func (h *MessageHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, ok := validLearnerID(h.validate, w, r)
	if !ok {
		return
	}

	outcome, err := h.msgSvc.Generate(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, outcome)
}

// History handles GET /v1/learners/{id}/messages?limit=N
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := validLearnerID(h.validate, w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	outcomes, err := h.msgSvc.History(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": outcomes})
}
