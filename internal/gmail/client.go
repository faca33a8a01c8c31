package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Scopes required for fetching messages and managing labels.
var Scopes = []string{
	gmail.GmailReadonlyScope,
	gmail.GmailModifyScope,
	gmail.GmailLabelsScope,
}

// categoryLabels are the Gmail system labels scanned by ListRecent.
var categoryLabels = []string{
	"INBOX",
	"CATEGORY_PERSONAL",
	"CATEGORY_PROMOTIONS",
	"CATEGORY_SOCIAL",
	"CATEGORY_UPDATES",
	"CATEGORY_FORUMS",
}

// Config holds Gmail API configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccessToken  string
	TokenFile    string
	UserEmail    string

	RequestTimeout time.Duration
	RateLimitDelay time.Duration
	RetryCount     int
	RetryDelay     time.Duration
}

// APIClient implements Client against the Gmail API.
type APIClient struct {
	service *gmail.Service
	userID  string
	config  *Config

	// Label name to ID cache, populated lazily.
	labelMu sync.Mutex
	labels  map[string]string
}

// NewAPIClient creates a Gmail API client using OAuth2 credentials from
// the config or a stored token file and verifies the connection.
func NewAPIClient(ctx context.Context, config *Config) (*APIClient, error) {
	oauthConfig := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}

	token, err := loadToken(config)
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	httpClient := oauthConfig.Client(ctx, token)

	service, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	userID := "me"
	if config.UserEmail != "" {
		userID = config.UserEmail
	}

	client := &APIClient{
		service: service,
		userID:  userID,
		config:  config,
		labels:  make(map[string]string),
	}

	if err := client.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("Gmail client health check failed: %w", err)
	}

	return client, nil
}

// loadToken builds an OAuth2 token from the token file when present,
// otherwise from the config fields.
func loadToken(config *Config) (*oauth2.Token, error) {
	if config.TokenFile != "" {
		if data, err := os.ReadFile(config.TokenFile); err == nil {
			token := &oauth2.Token{}
			if err := json.Unmarshal(data, token); err != nil {
				return nil, fmt.Errorf("invalid token file %s: %w", config.TokenFile, err)
			}
			return token, nil
		}
	}

	if config.RefreshToken == "" && config.AccessToken == "" {
		return nil, fmt.Errorf("no OAuth2 token available: set GMAIL_REFRESH_TOKEN or provide a token file")
	}

	return &oauth2.Token{
		AccessToken:  config.AccessToken,
		RefreshToken: config.RefreshToken,
		TokenType:    "Bearer",
	}, nil
}

// FetchLatest retrieves the newest inbox message in full form.
func (c *APIClient) FetchLatest(ctx context.Context) (*Message, error) {
	var resp *gmail.ListMessagesResponse
	err := c.withRetry(ctx, "messages.list", func() error {
		var err error
		resp, err = c.service.Users.Messages.List(c.userID).
			LabelIds("INBOX").
			MaxResults(1).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Messages) == 0 {
		return nil, ErrNoMessages
	}

	return c.GetMessage(ctx, resp.Messages[0].Id)
}

// GetMessage retrieves the full content of a specific message.
func (c *APIClient) GetMessage(ctx context.Context, id string) (*Message, error) {
	var msg *gmail.Message
	err := c.withRetry(ctx, "messages.get", func() error {
		var err error
		msg, err = c.service.Users.Messages.Get(c.userID, id).
			Format("full").
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, err
	}

	return parseMessage(msg), nil
}

// ListRecent fetches recent messages across the inbox and category tabs,
// de-duplicated by message ID. Category-specific failures are skipped so
// one broken tab does not abort the scan.
func (c *APIClient) ListRecent(ctx context.Context, maxPerCategory int64) ([]Message, error) {
	seen := make(map[string]struct{})
	var messages []Message

	for _, label := range categoryLabels {
		var resp *gmail.ListMessagesResponse
		err := c.withRetry(ctx, "messages.list", func() error {
			var err error
			resp, err = c.service.Users.Messages.List(c.userID).
				LabelIds(label).
				MaxResults(maxPerCategory).
				Context(ctx).
				Do()
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			continue
		}

		for _, meta := range resp.Messages {
			if _, ok := seen[meta.Id]; ok {
				continue
			}
			seen[meta.Id] = struct{}{}

			time.Sleep(c.config.RateLimitDelay)
			full, err := c.GetMessage(ctx, meta.Id)
			if err != nil {
				if ctx.Err() != nil {
					return nil, err
				}
				continue
			}
			messages = append(messages, *full)
		}
	}

	return messages, nil
}

// ApplyLabels ensures the named labels exist and adds them to the
// message. Gmail treats label addition as a set operation, so reapplying
// the same names is a no-op.
func (c *APIClient) ApplyLabels(ctx context.Context, messageID string, names []string) error {
	if len(names) == 0 {
		return nil
	}

	labelIDs := make([]string, 0, len(names))
	for _, name := range names {
		id, err := c.ensureLabel(ctx, name)
		if err != nil {
			return err
		}
		labelIDs = append(labelIDs, id)
	}

	return c.withRetry(ctx, "messages.modify", func() error {
		_, err := c.service.Users.Messages.Modify(c.userID, messageID, &gmail.ModifyMessageRequest{
			AddLabelIds: labelIDs,
		}).Context(ctx).Do()
		return err
	})
}

// ensureLabel returns the ID for a label name, creating the label if it
// does not exist. A create conflict (concurrent creation) is resolved by
// re-listing.
func (c *APIClient) ensureLabel(ctx context.Context, name string) (string, error) {
	c.labelMu.Lock()
	defer c.labelMu.Unlock()

	if id, ok := c.labels[name]; ok {
		return id, nil
	}

	id, err := c.findLabel(ctx, name)
	if err != nil {
		return "", err
	}
	if id != "" {
		c.labels[name] = id
		return id, nil
	}

	var created *gmail.Label
	err = c.withRetry(ctx, "labels.create", func() error {
		var err error
		created, err = c.service.Users.Labels.Create(c.userID, &gmail.Label{
			Name:                  name,
			LabelListVisibility:   "labelShow",
			MessageListVisibility: "show",
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		// Another writer may have created it between list and create.
		if id, findErr := c.findLabel(ctx, name); findErr == nil && id != "" {
			c.labels[name] = id
			return id, nil
		}
		return "", err
	}

	c.labels[name] = created.Id
	return created.Id, nil
}

// findLabel looks up a label ID by name, returning "" when absent.
func (c *APIClient) findLabel(ctx context.Context, name string) (string, error) {
	var resp *gmail.ListLabelsResponse
	err := c.withRetry(ctx, "labels.list", func() error {
		var err error
		resp, err = c.service.Users.Labels.List(c.userID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}

	for _, label := range resp.Labels {
		if label.Name == name {
			return label.Id, nil
		}
	}
	return "", nil
}

// HealthCheck verifies the Gmail connection is working.
func (c *APIClient) HealthCheck(ctx context.Context) error {
	return c.withRetry(ctx, "users.getProfile", func() error {
		_, err := c.service.Users.GetProfile(c.userID).Context(ctx).Do()
		return err
	})
}

// Close cleans up resources. The Gmail API client requires no explicit
// cleanup.
func (c *APIClient) Close() error {
	return nil
}

// withRetry runs a Gmail API call, retrying rate-limit and server errors
// with a fixed delay. Authentication failures are wrapped in AuthError
// and returned immediately; other failures become APIError.
func (c *APIClient) withRetry(ctx context.Context, op string, call func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		err := call()
		if err == nil {
			return nil
		}
		lastErr = err

		if gerr, ok := err.(*googleapi.Error); ok {
			switch {
			case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
				return &AuthError{Err: err}
			case gerr.Code == http.StatusNotFound:
				return &APIError{Op: op, Err: err}
			case gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError:
				// Retryable.
			default:
				return &APIError{Op: op, Err: err}
			}
		}

		if attempt < c.config.RetryCount {
			select {
			case <-time.After(c.config.RetryDelay):
			case <-ctx.Done():
				return &APIError{Op: op, Err: ctx.Err()}
			}
		}
	}

	return &APIError{Op: op, Err: lastErr}
}

// parseMessage converts a Gmail API message to a Message.
func parseMessage(msg *gmail.Message) *Message {
	parsed := &Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Headers:  make(map[string]string),
		Labels:   msg.LabelIds,
	}

	if msg.Payload == nil {
		return parsed
	}

	for _, header := range msg.Payload.Headers {
		parsed.Headers[header.Name] = header.Value

		switch strings.ToLower(header.Name) {
		case "from":
			parsed.From = header.Value
		case "subject":
			parsed.Subject = header.Value
		case "date":
			if date, err := mail.ParseDate(header.Value); err == nil {
				parsed.Date = date
			}
		}
	}

	plainText, htmlText := extractContent(msg.Payload)
	parsed.PlainText = plainText
	parsed.HTMLText = htmlText

	return parsed
}

// extractContent extracts plain text and HTML content from a message
// payload, walking multipart trees recursively.
func extractContent(payload *gmail.MessagePart) (plainText, htmlText string) {
	if payload.Body != nil && payload.Body.Data != "" {
		if decoded, err := decodeBody(payload.Body.Data); err == nil {
			switch {
			case strings.Contains(payload.MimeType, "text/plain"):
				plainText = string(decoded)
			case strings.Contains(payload.MimeType, "text/html"):
				htmlText = string(decoded)
			}
		}
	}

	for _, part := range payload.Parts {
		partPlain, partHTML := extractContent(part)
		if partPlain != "" && plainText == "" {
			plainText = partPlain
		}
		if partHTML != "" && htmlText == "" {
			htmlText = partHTML
		}
	}

	if plainText == "" && htmlText != "" {
		plainText = htmlToText(htmlText)
	}

	return plainText, htmlText
}

// decodeBody decodes base64url message data, accepting both padded and
// unpadded forms.
func decodeBody(data string) ([]byte, error) {
	if decoded, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return decoded, nil
	}
	return base64.URLEncoding.DecodeString(data)
}

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// htmlToText converts HTML content to plain text (basic implementation).
func htmlToText(html string) string {
	text := htmlTagPattern.ReplaceAllString(html, " ")

	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&quot;", "\"")
	text = strings.ReplaceAll(text, "&#39;", "'")
	text = strings.ReplaceAll(text, "&nbsp;", " ")

	text = whitespacePattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// Body returns the plain-text body of a message, falling back to the
// stripped HTML body.
func (m *Message) Body() string {
	if strings.TrimSpace(m.PlainText) != "" {
		return m.PlainText
	}
	if m.HTMLText != "" {
		return htmlToText(m.HTMLText)
	}
	return ""
}
