package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mailsense/internal/classifier"
	"mailsense/internal/gmail"
	"mailsense/internal/handlers"
	"mailsense/internal/inference"
	"mailsense/internal/pipeline"
	"mailsense/internal/state"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store, err := state.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mock := gmail.NewMockClient(gmail.DefaultTestMessage())

	inferenceServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(inference.Result{
			Labels: []string{"work", "personal"},
			Scores: []float64{0.9, 0.1},
		})
	}))
	t.Cleanup(inferenceServer.Close)

	client := inference.NewClient(&inference.Config{
		Endpoint:   inferenceServer.URL,
		Model:      "test-model",
		Timeout:    5 * time.Second,
		RetryDelay: time.Millisecond,
	})

	cache := pipeline.NewResultCache(false, time.Minute)
	t.Cleanup(cache.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	processor := pipeline.NewProcessor(mock, classifier.NewRuleClassifier(),
		classifier.NewIntentClassifier(client), store, cache, nil, logger)

	return NewRouter(
		handlers.NewWebhookHandler(processor, logger),
		handlers.NewClassificationHandler(store),
		handlers.NewHealthHandler(store, mock, client),
	)
}

func TestRouter_WebhookEndToEnd(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/gmail/webhook/", "/gmail/webhook"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("POST %s: status = %d; body: %s", path, rec.Code, rec.Body.String())
		}

		var resp handlers.WebhookResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}
		if resp.Status != "success" {
			t.Errorf("Status = %q", resp.Status)
		}
		if resp.Result == nil || resp.Result.AILabel != "AI:Work" {
			t.Errorf("Result = %+v", resp.Result)
		}
	}
}

func TestRouter_WebhookRejectsGet(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/gmail/webhook/", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, expected 405", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body.String())
	}
}

func TestRouter_ClassificationsEndpoints(t *testing.T) {
	router := newTestRouter(t)

	// Populate history via the webhook.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/gmail/webhook/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/classifications", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}

	var entries []state.Entry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/classifications/"+entries[0].MessageID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "mailsense_") {
		t.Error("expected mailsense metrics in exposition output")
	}
}
