package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// LoadWithViper loads configuration using a Viper instance, supporting
// config files in addition to environment variables. Used by the CLI.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	setupEnvBinding(v)

	if err := loadConfigFile(v); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	config := &Config{}
	if err := unmarshalConfig(v, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadWithFile loads configuration from a specific config file.
func LoadWithFile(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	}
	return LoadWithViper(v)
}

// setDefaults sets default values for all configuration keys.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Gmail defaults
	v.SetDefault("gmail.token_file", "./gmail-token.json")
	v.SetDefault("gmail.request_timeout", "30s")
	v.SetDefault("gmail.rate_limit_delay", "100ms")
	v.SetDefault("gmail.retry_count", 3)
	v.SetDefault("gmail.retry_delay", "1s")

	// Model defaults
	v.SetDefault("model.endpoint", "http://localhost:8000")
	v.SetDefault("model.name", "facebook/bart-large-mnli")
	v.SetDefault("model.timeout", "30s")
	v.SetDefault("model.retry_count", 3)
	v.SetDefault("model.retry_delay", "1s")
	v.SetDefault("model.backoff_factor", 2.0)

	// Storage defaults
	v.SetDefault("state_db_path", "./mailsense.db")

	// Cache defaults
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.disabled", false)

	// Pipeline defaults
	v.SetDefault("pipeline.dry_run", false)
	v.SetDefault("pipeline.max_per_scan", 20)
	v.SetDefault("pipeline.enrich_analysis", true)

	// Development/testing defaults
	v.SetDefault("test_mode", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
}

// setupEnvBinding binds configuration keys to environment variables.
func setupEnvBinding(v *viper.Viper) {
	v.AutomaticEnv()

	envBindings := map[string]string{
		"server.host":              "SERVER_HOST",
		"server.port":              "SERVER_PORT",
		"server.shutdown_timeout":  "SERVER_SHUTDOWN_TIMEOUT",
		"gmail.client_id":          "GMAIL_CLIENT_ID",
		"gmail.client_secret":      "GMAIL_CLIENT_SECRET",
		"gmail.refresh_token":      "GMAIL_REFRESH_TOKEN",
		"gmail.access_token":       "GMAIL_ACCESS_TOKEN",
		"gmail.token_file":         "GMAIL_TOKEN_FILE",
		"gmail.user_email":         "GMAIL_USER_EMAIL",
		"gmail.request_timeout":    "GMAIL_REQUEST_TIMEOUT",
		"gmail.rate_limit_delay":   "GMAIL_RATE_LIMIT_DELAY",
		"gmail.retry_count":        "GMAIL_RETRY_COUNT",
		"gmail.retry_delay":        "GMAIL_RETRY_DELAY",
		"model.endpoint":           "MODEL_ENDPOINT",
		"model.name":               "MODEL_NAME",
		"model.timeout":            "MODEL_TIMEOUT",
		"model.retry_count":        "MODEL_RETRY_COUNT",
		"model.retry_delay":        "MODEL_RETRY_DELAY",
		"model.backoff_factor":     "MODEL_BACKOFF_FACTOR",
		"state_db_path":            "STATE_DB_PATH",
		"cache.ttl":                "CACHE_TTL",
		"cache.disabled":           "CACHE_DISABLED",
		"pipeline.dry_run":         "DRY_RUN",
		"pipeline.max_per_scan":    "MAX_PER_SCAN",
		"pipeline.enrich_analysis": "ENRICH_ANALYSIS",
		"test_mode":                "TEST_MODE",
		"logging.level":            "LOG_LEVEL",
	}

	for configKey, envVar := range envBindings {
		v.BindEnv(configKey, envVar)
	}
}

// loadConfigFile loads a configuration file if one exists.
func loadConfigFile(v *viper.Viper) error {
	if v.ConfigFileUsed() == "" {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.mailsense")
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	return nil
}

// unmarshalConfig maps Viper keys onto the Config struct.
func unmarshalConfig(v *viper.Viper, config *Config) error {
	config.Server.Host = v.GetString("server.host")
	config.Server.Port = v.GetString("server.port")

	config.Gmail.ClientID = v.GetString("gmail.client_id")
	config.Gmail.ClientSecret = v.GetString("gmail.client_secret")
	config.Gmail.RefreshToken = v.GetString("gmail.refresh_token")
	config.Gmail.AccessToken = v.GetString("gmail.access_token")
	config.Gmail.TokenFile = v.GetString("gmail.token_file")
	config.Gmail.UserEmail = v.GetString("gmail.user_email")
	config.Gmail.RetryCount = v.GetInt("gmail.retry_count")

	config.Model.Endpoint = v.GetString("model.endpoint")
	config.Model.Name = v.GetString("model.name")
	config.Model.RetryCount = v.GetInt("model.retry_count")
	config.Model.BackoffFactor = v.GetFloat64("model.backoff_factor")

	config.StateDBPath = v.GetString("state_db_path")
	config.CacheDisabled = v.GetBool("cache.disabled")

	config.DryRun = v.GetBool("pipeline.dry_run")
	config.MaxPerScan = v.GetInt64("pipeline.max_per_scan")
	config.EnrichAnalysis = v.GetBool("pipeline.enrich_analysis")

	config.TestMode = v.GetBool("test_mode")
	config.LogLevel = v.GetString("logging.level")

	// Duration fields need explicit parsing so bad values fail loudly.
	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"server.shutdown_timeout", &config.Server.ShutdownTimeout},
		{"gmail.request_timeout", &config.Gmail.RequestTimeout},
		{"gmail.rate_limit_delay", &config.Gmail.RateLimitDelay},
		{"gmail.retry_delay", &config.Gmail.RetryDelay},
		{"model.timeout", &config.Model.Timeout},
		{"model.retry_delay", &config.Model.RetryDelay},
		{"cache.ttl", &config.CacheTTL},
	}
	for _, d := range durations {
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.target = parsed
	}

	return nil
}
