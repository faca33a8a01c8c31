package gmail

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Client defines the operations the classification pipeline needs from
// a mailbox. The live implementation talks to the Gmail API; tests and
// test mode use MockClient.
type Client interface {
	// FetchLatest retrieves the newest message in the inbox.
	// Returns ErrNoMessages when the inbox is empty.
	FetchLatest(ctx context.Context) (*Message, error)

	// GetMessage retrieves the full content of a specific message.
	GetMessage(ctx context.Context, id string) (*Message, error)

	// ListRecent retrieves recent messages across the inbox and all
	// Gmail category tabs, de-duplicated by message ID.
	ListRecent(ctx context.Context, maxPerCategory int64) ([]Message, error)

	// ApplyLabels ensures the named labels exist and adds them to the
	// message. Reapplying the same set has no additional effect.
	ApplyLabels(ctx context.Context, messageID string, names []string) error

	// HealthCheck verifies the client connection is working.
	HealthCheck(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}

// Message represents an email message with parsed content.
type Message struct {
	ID       string            `json:"id"`
	ThreadID string            `json:"thread_id"`
	From     string            `json:"from"`
	Subject  string            `json:"subject"`
	Date     time.Time         `json:"date"`
	Headers  map[string]string `json:"headers"`

	PlainText string `json:"plain_text"`
	HTMLText  string `json:"html_text"`

	Labels []string `json:"labels,omitempty"`
}

// ErrNoMessages indicates an empty inbox; callers treat it as a no-op.
var ErrNoMessages = errors.New("no messages found in inbox")

// AuthError indicates the stored credentials are invalid or expired.
// It is fatal for the current request; the OAuth flow must be re-run.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("gmail authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// APIError indicates the Gmail API was unavailable or rejected a request
// after retries were exhausted.
type APIError struct {
	Op  string
	Err error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gmail API error during %s: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
