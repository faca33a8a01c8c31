package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mailsense/internal/classifier"
	"mailsense/internal/config"
	"mailsense/internal/gmail"
	"mailsense/internal/handlers"
	"mailsense/internal/inference"
	"mailsense/internal/pipeline"
	"mailsense/internal/server"
	"mailsense/internal/state"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook classification server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// loadConfiguration loads configuration from files and environment variables.
func loadConfiguration() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		// .env files go through the env loader; structured files (YAML,
		// TOML, JSON) go through Viper.
		if strings.HasSuffix(configFile, ".env") || strings.HasPrefix(filepath.Base(configFile), ".env") {
			if loadErr := config.LoadEnvFile(configFile); loadErr != nil {
				return nil, fmt.Errorf("failed to load env file %s: %w", configFile, loadErr)
			}
			cfg, err = config.Load()
		} else {
			cfg, err = config.LoadWithFile(configFile)
		}
	} else {
		cfg, err = config.Load()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// CLI flags override config values
	if dryRun {
		cfg.DryRun = true
	}
	if testMode {
		cfg.TestMode = true
	}

	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfiguration()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	logger.Info("Starting mailsense service",
		"version", Version,
		"build_date", BuildDate)

	logger.Info("Configuration loaded successfully",
		"dry_run", cfg.DryRun,
		"test_mode", cfg.TestMode,
		"model", cfg.Model.Name)

	// Log configuration (with sensitive fields redacted)
	if configJSON, err := cfg.ToJSON(); err == nil {
		logger.Debug("Configuration details", "config", configJSON)
	}

	store, err := state.Open(cfg.StateDBPath)
	if err != nil {
		logger.Error("Failed to open state database", "error", err)
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer store.Close()

	logger.Info("State database initialized", "db_path", cfg.StateDBPath)

	gmailClient, err := createGmailClient(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("Failed to create Gmail client", "error", err)
		return fmt.Errorf("failed to create Gmail client: %w", err)
	}
	defer gmailClient.Close()

	logger.Info("Gmail client initialized successfully")

	inferenceClient := inference.NewClient(&inference.Config{
		Endpoint:      cfg.Model.Endpoint,
		Model:         cfg.Model.Name,
		Timeout:       cfg.Model.Timeout,
		RetryCount:    cfg.Model.RetryCount,
		RetryDelay:    cfg.Model.RetryDelay,
		BackoffFactor: cfg.Model.BackoffFactor,
	})

	if !cfg.TestMode {
		healthCtx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		err := inferenceClient.HealthCheck(healthCtx)
		cancel()
		if err != nil {
			logger.Error("Inference health check failed", "error", err, "endpoint", cfg.Model.Endpoint)
			return fmt.Errorf("inference health check failed: %w", err)
		}
	}

	logger.Info("Inference client initialized successfully",
		"endpoint", cfg.Model.Endpoint,
		"model", cfg.Model.Name)

	cache := pipeline.NewResultCache(cfg.CacheDisabled, cfg.CacheTTL)
	defer cache.Close()

	processor := pipeline.NewProcessor(
		gmailClient,
		classifier.NewRuleClassifier(),
		classifier.NewIntentClassifier(inferenceClient),
		store,
		cache,
		&pipeline.Config{
			DryRun:         cfg.DryRun,
			MaxPerScan:     cfg.MaxPerScan,
			MaxKeywords:    5,
			SummaryLength:  200,
			EnrichAnalysis: cfg.EnrichAnalysis,
		},
		logger,
	)

	router := server.NewRouter(
		handlers.NewWebhookHandler(processor, logger),
		handlers.NewClassificationHandler(store),
		handlers.NewHealthHandler(store, gmailClient, inferenceClient),
	)

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

		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("Mailsense service started", "addr", cfg.Address())

	if err := server.HandleSignals(srv, cfg.Server.ShutdownTimeout); err != nil {
		logger.Error("Server error", "error", err)
		return err
	}

	logger.Info("Mailsense service stopped gracefully")
	return nil
}

// createGmailClient creates the configured Gmail client.
func createGmailClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (gmail.Client, error) {
	if cfg.TestMode {
		logger.Info("Test mode enabled, using mock Gmail client")
		return gmail.NewMockClient(gmail.DefaultTestMessage()), nil
	}

	return gmail.NewAPIClient(ctx, &gmail.Config{
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
}

func logLevel(level string) slog.Level {
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
