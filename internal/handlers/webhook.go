package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mailsense/internal/gmail"
	"mailsense/internal/metrics"
	"mailsense/internal/pipeline"
)

// WebhookHandler handles the Gmail webhook trigger and batch scans.
type WebhookHandler struct {
	processor *pipeline.Processor
	logger    *slog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(processor *pipeline.Processor, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{processor: processor, logger: logger}
}

// WebhookResponse is the JSON body returned on a successful run.
type WebhookResponse struct {
	Status        string            `json:"status"`
	LabelsApplied []string          `json:"labels_applied"`
	Result        *pipeline.Summary `json:"result,omitempty"`
}

// ErrorResponse is the JSON body returned on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HandleWebhook handles POST /gmail/webhook/: fetch the newest inbox
// message, classify it, apply labels and return the classification
// summary. A "force=true" query parameter bypasses the result cache.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "true"

	summary, err := h.processor.ProcessLatest(r.Context(), force)
	if err != nil {
		h.writeProcessingError(w, err)
		return
	}

	metrics.WebhookRequests.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, WebhookResponse{
		Status:        "success",
		LabelsApplied: summary.AppliedLabels,
		Result:        summary,
	})
}

// ScanResponse is the JSON body for batch scans.
type ScanResponse struct {
	Status     string              `json:"status"`
	Classified int                 `json:"classified"`
	Results    []*pipeline.Summary `json:"results"`
}

// HandleScan handles POST /api/scan: classify recent messages across the
// inbox and category tabs, skipping already-processed ones.
func (h *WebhookHandler) HandleScan(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.processor.Scan(r.Context())
	if err != nil {
		h.writeProcessingError(w, err)
		return
	}

	if summaries == nil {
		summaries = []*pipeline.Summary{}
	}
	writeJSON(w, http.StatusOK, ScanResponse{
		Status:     "success",
		Classified: len(summaries),
		Results:    summaries,
	})
}

// writeProcessingError maps pipeline errors to HTTP responses. An empty
// inbox is a no-op rather than a failure.
func (h *WebhookHandler) writeProcessingError(w http.ResponseWriter, err error) {
	if errors.Is(err, gmail.ErrNoMessages) {
		metrics.WebhookRequests.WithLabelValues("no_messages").Inc()
		writeJSON(w, http.StatusOK, WebhookResponse{
			Status:        "no_messages",
			LabelsApplied: []string{},
		})
		return
	}

	metrics.WebhookRequests.WithLabelValues("error").Inc()
	h.logger.Error("Webhook processing failed", "error", err)

	var authErr *gmail.AuthError
	var apiErr *gmail.APIError
	switch {
	case errors.As(err, &authErr):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: authErr.Error()})
	case errors.As(err, &apiErr):
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: apiErr.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
