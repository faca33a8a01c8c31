package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearMailsenseEnv unsets every variable the loader reads so tests are
// isolated from the host environment.
func clearMailsenseEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"SERVER_HOST", "SERVER_PORT", "SERVER_SHUTDOWN_TIMEOUT",
		"GMAIL_CLIENT_ID", "GMAIL_CLIENT_SECRET", "GMAIL_REFRESH_TOKEN",
		"GMAIL_ACCESS_TOKEN", "GMAIL_TOKEN_FILE", "GMAIL_USER_EMAIL",
		"GMAIL_REQUEST_TIMEOUT", "GMAIL_RATE_LIMIT_DELAY",
		"GMAIL_RETRY_COUNT", "GMAIL_RETRY_DELAY",
		"MODEL_ENDPOINT", "MODEL_NAME", "MODEL_TIMEOUT",
		"MODEL_RETRY_COUNT", "MODEL_RETRY_DELAY", "MODEL_BACKOFF_FACTOR",
		"STATE_DB_PATH", "CACHE_TTL", "CACHE_DISABLED",
		"DRY_RUN", "MAX_PER_SCAN", "ENRICH_ANALYSIS",
		"TEST_MODE", "LOG_LEVEL",
	}
	for _, v := range vars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearMailsenseEnv(t)
	t.Setenv("TEST_MODE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Host != "localhost" || cfg.Server.Port != "8080" {
		t.Errorf("server defaults = %s:%s", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Model.Name != "facebook/bart-large-mnli" {
		t.Errorf("model name = %q", cfg.Model.Name)
	}
	if cfg.Model.Endpoint != "http://localhost:8000" {
		t.Errorf("model endpoint = %q", cfg.Model.Endpoint)
	}
	if cfg.StateDBPath != "./mailsense.db" {
		t.Errorf("state db path = %q", cfg.StateDBPath)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("cache TTL = %v", cfg.CacheTTL)
	}
	if cfg.MaxPerScan != 20 {
		t.Errorf("max per scan = %d", cfg.MaxPerScan)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if !cfg.TestMode {
		t.Error("test mode should be enabled")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearMailsenseEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("GMAIL_CLIENT_ID", "client-id")
	t.Setenv("GMAIL_CLIENT_SECRET", "client-secret")
	t.Setenv("MODEL_NAME", "custom/model")
	t.Setenv("MODEL_BACKOFF_FACTOR", "1.5")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Model.Name != "custom/model" {
		t.Errorf("model name = %q", cfg.Model.Name)
	}
	if cfg.Model.BackoffFactor != 1.5 {
		t.Errorf("backoff factor = %v", cfg.Model.BackoffFactor)
	}
	if cfg.CacheTTL != 90*time.Second {
		t.Errorf("cache TTL = %v", cfg.CacheTTL)
	}
	if !cfg.DryRun {
		t.Error("dry run should be enabled")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestLoad_Validation(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing gmail credentials outside test mode",
			env:  map[string]string{},
		},
		{
			name: "invalid port",
			env: map[string]string{
				"TEST_MODE":   "true",
				"SERVER_PORT": "not-a-port",
			},
		},
		{
			name: "invalid log level",
			env: map[string]string{
				"TEST_MODE": "true",
				"LOG_LEVEL": "verbose",
			},
		},
		{
			name: "max per scan out of range",
			env: map[string]string{
				"TEST_MODE":    "true",
				"MAX_PER_SCAN": "10000",
			},
		},
		{
			name: "retry count out of range",
			env: map[string]string{
				"TEST_MODE":         "true",
				"MODEL_RETRY_COUNT": "99",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearMailsenseEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			if _, err := Load(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfig_ToJSON_RedactsSecrets(t *testing.T) {
	clearMailsenseEnv(t)
	t.Setenv("GMAIL_CLIENT_ID", "client-id")
	t.Setenv("GMAIL_CLIENT_SECRET", "super-secret-value")
	t.Setenv("GMAIL_REFRESH_TOKEN", "refresh-token-value")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	out, err := cfg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON error: %v", err)
	}

	if strings.Contains(out, "super-secret-value") {
		t.Error("client secret should be redacted")
	}
	if strings.Contains(out, "refresh-token-value") {
		t.Error("refresh token should be redacted")
	}
	if !strings.Contains(out, "client-id") {
		t.Error("non-sensitive fields should be present")
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearMailsenseEnv(t)

	dir := t.TempDir()
	envPath := filepath.Join(dir, "test.env")
	content := "# comment line\nSERVER_PORT=7070\nMODEL_NAME=\"quoted/model\"\n\nbadline\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}

	if err := LoadEnvFile(envPath); err != nil {
		t.Fatalf("LoadEnvFile error: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("SERVER_PORT")
		os.Unsetenv("MODEL_NAME")
	})

	if got := os.Getenv("SERVER_PORT"); got != "7070" {
		t.Errorf("SERVER_PORT = %q", got)
	}
	if got := os.Getenv("MODEL_NAME"); got != "quoted/model" {
		t.Errorf("MODEL_NAME = %q (quotes should be stripped)", got)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConfig_Address(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Host: "0.0.0.0", Port: "8080"}}
	if cfg.Address() != "0.0.0.0:8080" {
		t.Errorf("Address() = %q", cfg.Address())
	}
}
