package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"mailsense/internal/state"
)

// ClassificationHandler serves the stored classification history.
type ClassificationHandler struct {
	store *state.Store
}

// NewClassificationHandler creates a new classification handler.
func NewClassificationHandler(store *state.Store) *ClassificationHandler {
	return &ClassificationHandler{store: store}
}

// GetRecent handles GET /api/classifications?limit=N.
func (h *ClassificationHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and 500"})
			return
		}
		limit = parsed
	}

	entries, err := h.store.Recent(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	if entries == nil {
		entries = []state.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetByMessageID handles GET /api/classifications/{message_id}.
func (h *ClassificationHandler) GetByMessageID(w http.ResponseWriter, r *http.Request) {
	messageID := chi.URLParam(r, "message_id")
	if messageID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing message ID"})
		return
	}

	entry, err := h.store.GetByMessageID(messageID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if entry == nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "classification not found"})
		return
	}

	writeJSON(w, http.StatusOK, entry)
}
