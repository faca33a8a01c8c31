package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Gmail API configuration
	Gmail GmailConfig `json:"gmail" mapstructure:"gmail"`

	// Zero-shot model configuration
	Model ModelConfig `json:"model" mapstructure:"model"`

	// Classification history storage
	StateDBPath string `json:"state_db_path" mapstructure:"state_db_path"`

	// Result cache
	CacheTTL      time.Duration `json:"cache_ttl" mapstructure:"cache_ttl"`
	CacheDisabled bool          `json:"cache_disabled" mapstructure:"cache_disabled"`

	// Pipeline behavior
	DryRun         bool  `json:"dry_run" mapstructure:"dry_run"`
	MaxPerScan     int64 `json:"max_per_scan" mapstructure:"max_per_scan"`
	EnrichAnalysis bool  `json:"enrich_analysis" mapstructure:"enrich_analysis"`

	// Test mode uses a mock Gmail client instead of the live API
	TestMode bool `json:"test_mode" mapstructure:"test_mode"`

	// Logging
	LogLevel string `json:"log_level" mapstructure:"log_level"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `json:"host" mapstructure:"host"`
	Port            string        `json:"port" mapstructure:"port"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// GmailConfig holds Gmail API settings.
type GmailConfig struct {
	ClientID     string `json:"client_id" mapstructure:"client_id"`
	ClientSecret string `json:"client_secret" mapstructure:"client_secret"`
	RefreshToken string `json:"refresh_token" mapstructure:"refresh_token"`
	AccessToken  string `json:"access_token" mapstructure:"access_token"`
	TokenFile    string `json:"token_file" mapstructure:"token_file"`
	UserEmail    string `json:"user_email" mapstructure:"user_email"`

	RequestTimeout time.Duration `json:"request_timeout" mapstructure:"request_timeout"`
	RateLimitDelay time.Duration `json:"rate_limit_delay" mapstructure:"rate_limit_delay"`
	RetryCount     int           `json:"retry_count" mapstructure:"retry_count"`
	RetryDelay     time.Duration `json:"retry_delay" mapstructure:"retry_delay"`
}

// ModelConfig holds zero-shot inference settings.
type ModelConfig struct {
	Endpoint      string        `json:"endpoint" mapstructure:"endpoint"`
	Name          string        `json:"name" mapstructure:"name"`
	Timeout       time.Duration `json:"timeout" mapstructure:"timeout"`
	RetryCount    int           `json:"retry_count" mapstructure:"retry_count"`
	RetryDelay    time.Duration `json:"retry_delay" mapstructure:"retry_delay"`
	BackoffFactor float64       `json:"backoff_factor" mapstructure:"backoff_factor"`
}

// Load loads configuration from environment variables with defaults.
// If a .env file exists, it is loaded first.
func Load() (*Config, error) {
	loadEnvFile(".env")

	config := &Config{
		Server: ServerConfig{
			Host:            getEnvOrDefault("SERVER_HOST", "localhost"),
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			ShutdownTimeout: getEnvDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", "30s"),
		},

		Gmail: GmailConfig{
			ClientID:       getEnvOrDefault("GMAIL_CLIENT_ID", ""),
			ClientSecret:   getEnvOrDefault("GMAIL_CLIENT_SECRET", ""),
			RefreshToken:   getEnvOrDefault("GMAIL_REFRESH_TOKEN", ""),
			AccessToken:    getEnvOrDefault("GMAIL_ACCESS_TOKEN", ""),
			TokenFile:      getEnvOrDefault("GMAIL_TOKEN_FILE", "./gmail-token.json"),
			UserEmail:      getEnvOrDefault("GMAIL_USER_EMAIL", ""),
			RequestTimeout: getEnvDurationOrDefault("GMAIL_REQUEST_TIMEOUT", "30s"),
			RateLimitDelay: getEnvDurationOrDefault("GMAIL_RATE_LIMIT_DELAY", "100ms"),
			RetryCount:     getEnvIntOrDefault("GMAIL_RETRY_COUNT", 3),
			RetryDelay:     getEnvDurationOrDefault("GMAIL_RETRY_DELAY", "1s"),
		},

		Model: ModelConfig{
			Endpoint:      getEnvOrDefault("MODEL_ENDPOINT", "http://localhost:8000"),
			Name:          getEnvOrDefault("MODEL_NAME", "facebook/bart-large-mnli"),
			Timeout:       getEnvDurationOrDefault("MODEL_TIMEOUT", "30s"),
			RetryCount:    getEnvIntOrDefault("MODEL_RETRY_COUNT", 3),
			RetryDelay:    getEnvDurationOrDefault("MODEL_RETRY_DELAY", "1s"),
			BackoffFactor: getEnvFloatOrDefault("MODEL_BACKOFF_FACTOR", 2.0),
		},

		StateDBPath: getEnvOrDefault("STATE_DB_PATH", "./mailsense.db"),

		CacheTTL:      getEnvDurationOrDefault("CACHE_TTL", "5m"),
		CacheDisabled: getEnvBoolOrDefault("CACHE_DISABLED", false),

		DryRun:         getEnvBoolOrDefault("DRY_RUN", false),
		MaxPerScan:     getEnvInt64OrDefault("MAX_PER_SCAN", 20),
		EnrichAnalysis: getEnvBoolOrDefault("ENRICH_ANALYSIS", true),

		TestMode: getEnvBoolOrDefault("TEST_MODE", false),

		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid.
func (c *Config) validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid server port: %s", c.Server.Port)
	}

	if c.StateDBPath == "" {
		return fmt.Errorf("state database path cannot be empty")
	}

	// Live mode needs OAuth2 credentials; test mode does not.
	if !c.TestMode {
		if c.Gmail.ClientID == "" || c.Gmail.ClientSecret == "" {
			return fmt.Errorf("gmail client_id and client_secret are required unless test mode is enabled")
		}
		if c.Model.Endpoint == "" {
			return fmt.Errorf("model endpoint cannot be empty")
		}
	}

	if c.Model.Name == "" {
		return fmt.Errorf("model name cannot be empty")
	}

	if c.Gmail.RetryCount < 0 || c.Gmail.RetryCount > 10 {
		return fmt.Errorf("gmail retry_count must be between 0 and 10")
	}
	if c.Model.RetryCount < 0 || c.Model.RetryCount > 10 {
		return fmt.Errorf("model retry_count must be between 0 and 10")
	}

	if c.MaxPerScan < 1 || c.MaxPerScan > 500 {
		return fmt.Errorf("max_per_scan must be between 1 and 500")
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	return nil
}

// Address returns the listen address for the HTTP server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

// ToJSON serializes the configuration with sensitive fields redacted.
func (c *Config) ToJSON() (string, error) {
	safe := *c
	safe.Gmail.ClientSecret = redact(safe.Gmail.ClientSecret)
	safe.Gmail.RefreshToken = redact(safe.Gmail.RefreshToken)
	safe.Gmail.AccessToken = redact(safe.Gmail.AccessToken)

	data, err := json.MarshalIndent(safe, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func redact(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "***" + value[len(value)-4:]
}
