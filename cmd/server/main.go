package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"mailsense/internal/classifier"
	"mailsense/internal/config"
	"mailsense/internal/gmail"
	"mailsense/internal/handlers"
	"mailsense/internal/inference"
	"mailsense/internal/pipeline"
	"mailsense/internal/server"
	"mailsense/internal/state"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slogLevel(cfg.LogLevel),
	}))

	// Initialize classification history store
	store, err := state.Open(cfg.StateDBPath)
	if err != nil {
		log.Fatalf("Failed to open state database: %v", err)
	}
	defer store.Close()

	log.Printf("State database initialized at %s", cfg.StateDBPath)

	// Gmail client: mock in test mode, live API otherwise
	var gmailClient gmail.Client
	if cfg.TestMode {
		log.Printf("TEST_MODE enabled, using mock Gmail client")
		gmailClient = gmail.NewMockClient(gmail.DefaultTestMessage())
	} else {
		ctx := context.Background()
		gmailClient, err = gmail.NewAPIClient(ctx, &gmail.Config{
			ClientID:       cfg.Gmail.ClientID,
			ClientSecret:   cfg.Gmail.ClientSecret,
			RefreshToken:   cfg.Gmail.RefreshToken,
			AccessToken:    cfg.Gmail.AccessToken,
			TokenFile:      cfg.Gmail.TokenFile,
			UserEmail:      cfg.Gmail.UserEmail,
			RequestTimeout: cfg.Gmail.RequestTimeout,
			RateLimitDelay: cfg.Gmail.RateLimitDelay,
			RetryCount:     cfg.Gmail.RetryCount,
			RetryDelay:     cfg.Gmail.RetryDelay,
		})
		if err != nil {
			log.Fatalf("Failed to create Gmail client: %v", err)
		}
	}
	defer gmailClient.Close()

	// Zero-shot inference client; an unreachable model is fatal at startup
	inferenceClient := inference.NewClient(&inference.Config{
		Endpoint:      cfg.Model.Endpoint,
		Model:         cfg.Model.Name,
		Timeout:       cfg.Model.Timeout,
		RetryCount:    cfg.Model.RetryCount,
		RetryDelay:    cfg.Model.RetryDelay,
		BackoffFactor: cfg.Model.BackoffFactor,
	})
	if !cfg.TestMode {
		healthCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := inferenceClient.HealthCheck(healthCtx); err != nil {
			cancel()
			log.Fatalf("Inference endpoint unavailable: %v", err)
		}
		cancel()
	}

	rules := classifier.NewRuleClassifier()
	intents := classifier.NewIntentClassifier(inferenceClient)

	cache := pipeline.NewResultCache(cfg.CacheDisabled, cfg.CacheTTL)
	defer cache.Close()

	processor := pipeline.NewProcessor(gmailClient, rules, intents, store, cache, &pipeline.Config{
		DryRun:         cfg.DryRun,
		MaxPerScan:     cfg.MaxPerScan,
		MaxKeywords:    5,
		SummaryLength:  200,
		EnrichAnalysis: cfg.EnrichAnalysis,
	}, logger)

	// Build HTTP handlers and router
	webhookHandler := handlers.NewWebhookHandler(processor, logger)
	classificationHandler := handlers.NewClassificationHandler(store)
	healthHandler := handlers.NewHealthHandler(store, gmailClient, inferenceClient)

	router := server.NewRouter(webhookHandler, classificationHandler, healthHandler)

	handler := server.Chain(
		router,
		server.LoggingMiddleware,
		server.RecoveryMiddleware,
		server.CORSMiddleware,
		server.ContentTypeMiddleware,
		server.SecurityMiddleware,
	)

	srv := &http.Server{
		Addr:    cfg.Address(),
		Handler: handler,

		// Timeouts
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Handle server startup and graceful shutdown
	if err := server.HandleSignals(srv, cfg.Server.ShutdownTimeout); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

