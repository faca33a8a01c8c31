package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mailsense/internal/handlers"
)

// NewRouter builds the chi router with all service routes registered.
func NewRouter(webhook *handlers.WebhookHandler, classifications *handlers.ClassificationHandler,
	health *handlers.HealthHandler) chi.Router {
	r := chi.NewRouter()

	// Webhook trigger (trailing slash kept for compatibility with
	// existing push-notification subscriptions)
	r.Post("/gmail/webhook/", webhook.HandleWebhook)
	r.Post("/gmail/webhook", webhook.HandleWebhook)

	r.Route("/api", func(r chi.Router) {
		r.Post("/scan", webhook.HandleScan)
		r.Get("/classifications", classifications.GetRecent)
		r.Get("/classifications/{message_id}", classifications.GetByMessageID)
		r.Get("/health", health.HealthCheck)
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// Webhook endpoints are POST-only
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"error": "method not allowed"}`))
	})

	return r
}
