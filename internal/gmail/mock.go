package gmail

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockClient implements Client with canned data and no network access.
// It is used when test mode is configured and throughout the test suite.
type MockClient struct {
	mu       sync.Mutex
	messages []Message
	applied  map[string]map[string]struct{}

	FetchErr error
	ApplyErr error
}

// NewMockClient creates a mock client seeded with the given messages.
// The first message is treated as the newest.
func NewMockClient(messages ...Message) *MockClient {
	return &MockClient{
		messages: messages,
		applied:  make(map[string]map[string]struct{}),
	}
}

// DefaultTestMessage returns the canned message used in test mode when
// no fixtures are supplied.
func DefaultTestMessage() Message {
	return Message{
		ID:       "test-message-001",
		ThreadID: "test-thread-001",
		From:     "sender@example.com",
		Subject:  "Weekly project update",
		Date:     time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		Headers: map[string]string{
			"From":    "sender@example.com",
			"Subject": "Weekly project update",
		},
		PlainText: "Hi team, here is the weekly summary of our progress. " +
			"Review notes are attached and we meet again on Monday.",
		Labels: []string{"INBOX"},
	}
}

// FetchLatest returns the first seeded message.
func (m *MockClient) FetchLatest(ctx context.Context) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	if len(m.messages) == 0 {
		return nil, ErrNoMessages
	}

	msg := m.messages[0]
	return &msg, nil
}

// GetMessage returns the seeded message with the given ID.
func (m *MockClient) GetMessage(ctx context.Context, id string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, msg := range m.messages {
		if msg.ID == id {
			found := msg
			return &found, nil
		}
	}
	return nil, ErrNoMessages
}

// ListRecent returns all seeded messages.
func (m *MockClient) ListRecent(ctx context.Context, maxPerCategory int64) ([]Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out, nil
}

// ApplyLabels records the labels in memory with set semantics, matching
// Gmail's idempotent label addition.
func (m *MockClient) ApplyLabels(ctx context.Context, messageID string, names []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ApplyErr != nil {
		return m.ApplyErr
	}

	set, ok := m.applied[messageID]
	if !ok {
		set = make(map[string]struct{})
		m.applied[messageID] = set
	}
	for _, name := range names {
		set[name] = struct{}{}
	}
	return nil
}

// AppliedLabels returns the sorted label set recorded for a message.
func (m *MockClient) AppliedLabels(messageID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.applied[messageID]
	if !ok {
		return nil
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HealthCheck always succeeds for the mock.
func (m *MockClient) HealthCheck(ctx context.Context) error {
	return nil
}

// Close is a no-op for the mock.
func (m *MockClient) Close() error {
	return nil
}
