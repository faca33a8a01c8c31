// Package inference provides an HTTP client for a zero-shot text
// classification endpoint (HuggingFace inference API or a local
// equivalent serving the same request shape).
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config configures the inference client behavior.
type Config struct {
	Endpoint      string        `json:"endpoint"`       // Base URL of the inference server
	Model         string        `json:"model"`          // Model name, e.g. "facebook/bart-large-mnli"
	Timeout       time.Duration `json:"timeout"`        // Per-request timeout
	RetryCount    int           `json:"retry_count"`    // Retries for retryable failures
	RetryDelay    time.Duration `json:"retry_delay"`    // Base delay between retries
	BackoffFactor float64       `json:"backoff_factor"` // Exponential backoff multiplier
}

// DefaultConfig returns a configuration suitable for a local inference server.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:      "http://localhost:8000",
		Model:         "facebook/bart-large-mnli",
		Timeout:       30 * time.Second,
		RetryCount:    3,
		RetryDelay:    1 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Result holds ranked candidate labels with their scores.
type Result struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

// Best returns the top-ranked label and its score.
func (r *Result) Best() (string, float64) {
	if len(r.Labels) == 0 || len(r.Scores) == 0 {
		return "", 0
	}
	return r.Labels[0], r.Scores[0]
}

// APIError represents a failure response from the inference server.
type APIError struct {
	StatusCode int
	Message    string
	Retryable  bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inference API error (%d): %s", e.StatusCode, e.Message)
}

// ErrModelUnavailable indicates the model could not be loaded or reached.
// A health check failure wrapping this error is fatal at startup.
var ErrModelUnavailable = errors.New("inference model unavailable")

// Client performs zero-shot classification requests with retries.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates an inference client, filling in defaults for
// missing fields.
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 1 * time.Second
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 2.0
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// request is the zero-shot classification request payload.
type request struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

type parameters struct {
	CandidateLabels    []string `json:"candidate_labels"`
	HypothesisTemplate string   `json:"hypothesis_template,omitempty"`
}

// errorResponse is the error payload returned by the inference server.
type errorResponse struct {
	Error string `json:"error"`
}

// Classify scores text against the candidate labels and returns them
// ranked by score. Retryable failures (model loading, rate limits,
// server errors) are retried with exponential backoff.
func (c *Client) Classify(ctx context.Context, text string, candidates []string, hypothesisTemplate string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("classification input cannot be empty")
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("candidate labels cannot be empty")
	}

	payload, err := json.Marshal(request{
		Inputs: text,
		Parameters: parameters{
			CandidateLabels:    candidates,
			HypothesisTemplate: hypothesisTemplate,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		result, err := c.executeRequest(ctx, payload)
		if err == nil {
			return result, nil
		}

		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("classification canceled: %w", ctx.Err())
		}

		if attempt < c.config.RetryCount {
			select {
			case <-time.After(c.backoffDelay(attempt)):
			case <-ctx.Done():
				return nil, fmt.Errorf("classification canceled: %w", ctx.Err())
			}
		}
	}

	return nil, fmt.Errorf("classification failed after %d attempts: %w", c.config.RetryCount+1, lastErr)
}

// executeRequest performs a single classification request.
func (c *Client) executeRequest(ctx context.Context, payload []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures are retryable.
		return nil, &APIError{StatusCode: 0, Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		var result Result
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("failed to parse inference response: %w", err)
		}
		if len(result.Labels) != len(result.Scores) {
			return nil, fmt.Errorf("malformed inference response: %d labels, %d scores",
				len(result.Labels), len(result.Scores))
		}
		return &result, nil

	case resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= http.StatusInternalServerError:
		// 503 also covers "model is loading" on HuggingFace-style servers.
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
			Retryable:  true,
		}

	default:
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
			Retryable:  false,
		}
	}
}

func errorMessage(body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return errResp.Error
	}
	return string(body)
}

// modelURL builds the request URL for the configured model.
func (c *Client) modelURL() string {
	return fmt.Sprintf("%s/models/%s", strings.TrimRight(c.config.Endpoint, "/"), c.config.Model)
}

// backoffDelay calculates the exponential backoff delay for an attempt,
// capped at 30 seconds.
func (c *Client) backoffDelay(attempt int) time.Duration {
	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.config.BackoffFactor
	}

	delay := time.Duration(float64(c.config.RetryDelay) * multiplier)
	maxDelay := 30 * time.Second
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}

// HealthCheck verifies the model is loaded and able to score input.
// Failure here should be treated as fatal at startup.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Classify(ctx, "health check", []string{"ok"}, "")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.config.Model
}
