package handlers

import (
	"context"
	"net/http"
	"time"

	"mailsense/internal/state"
)

// GmailChecker is the health-check slice of the Gmail client.
type GmailChecker interface {
	HealthCheck(ctx context.Context) error
}

// ModelChecker is the health-check slice of the inference client.
type ModelChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	store *state.Store
	gmail GmailChecker
	model ModelChecker
}

// NewHealthHandler creates a new health handler. The gmail and model
// checkers may be nil, in which case those checks are skipped.
func NewHealthHandler(store *state.Store, gmail GmailChecker, model ModelChecker) *HealthHandler {
	return &HealthHandler{store: store, gmail: gmail, model: model}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Gmail    string `json:"gmail,omitempty"`
	Model    string `json:"model,omitempty"`
	Message  string `json:"message,omitempty"`
}

// HealthCheck handles GET /api/health.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:   "healthy",
		Database: "ok",
	}

	if err := h.store.IsHealthy(); err != nil {
		response.Status = "unhealthy"
		response.Database = "error"
		response.Message = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	if h.gmail != nil {
		response.Gmail = "ok"
		if err := h.gmail.HealthCheck(ctx); err != nil {
			response.Status = "unhealthy"
			response.Gmail = "error"
			response.Message = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
	}

	if h.model != nil {
		response.Model = "ok"
		if err := h.model.HealthCheck(ctx); err != nil {
			response.Status = "unhealthy"
			response.Model = "error"
			response.Message = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, response)
			return
		}
	}

	writeJSON(w, http.StatusOK, response)
}
