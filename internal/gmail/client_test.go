package gmail

import (
	"encoding/base64"
	"testing"

	"google.golang.org/api/gmail/v1"
)

func TestParseMessage(t *testing.T) {
	msg := &gmail.Message{
		Id:       "msg-123",
		ThreadId: "thread-456",
		LabelIds: []string{"INBOX", "UNREAD"},
		Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "Alice <alice@example.com>"},
				{Name: "Subject", Value: "Quarterly numbers"},
				{Name: "Date", Value: "Mon, 02 Jun 2025 10:15:00 +0000"},
				{Name: "X-Custom", Value: "custom-value"},
			},
			Body: &gmail.MessagePartBody{
				Data: base64.RawURLEncoding.EncodeToString([]byte("The numbers look good.")),
			},
		},
	}

	parsed := parseMessage(msg)

	if parsed.ID != "msg-123" {
		t.Errorf("ID = %q, expected msg-123", parsed.ID)
	}
	if parsed.ThreadID != "thread-456" {
		t.Errorf("ThreadID = %q, expected thread-456", parsed.ThreadID)
	}
	if parsed.From != "Alice <alice@example.com>" {
		t.Errorf("From = %q", parsed.From)
	}
	if parsed.Subject != "Quarterly numbers" {
		t.Errorf("Subject = %q", parsed.Subject)
	}
	if parsed.Date.IsZero() {
		t.Error("Date should be parsed")
	}
	if parsed.Headers["X-Custom"] != "custom-value" {
		t.Error("all headers should be preserved")
	}
	if parsed.PlainText != "The numbers look good." {
		t.Errorf("PlainText = %q", parsed.PlainText)
	}
	if len(parsed.Labels) != 2 {
		t.Errorf("Labels = %v", parsed.Labels)
	}
}

func TestParseMessage_NilPayload(t *testing.T) {
	parsed := parseMessage(&gmail.Message{Id: "msg-1"})

	if parsed.ID != "msg-1" {
		t.Errorf("ID = %q", parsed.ID)
	}
	if parsed.PlainText != "" {
		t.Errorf("PlainText = %q, expected empty", parsed.PlainText)
	}
}

func TestExtractContent_Multipart(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmail.MessagePart{
			{
				MimeType: "text/plain",
				Body: &gmail.MessagePartBody{
					Data: base64.RawURLEncoding.EncodeToString([]byte("plain version")),
				},
			},
			{
				MimeType: "text/html",
				Body: &gmail.MessagePartBody{
					Data: base64.RawURLEncoding.EncodeToString([]byte("<p>html version</p>")),
				},
			},
		},
	}

	plainText, htmlText := extractContent(payload)

	if plainText != "plain version" {
		t.Errorf("plainText = %q", plainText)
	}
	if htmlText != "<p>html version</p>" {
		t.Errorf("htmlText = %q", htmlText)
	}
}

func TestExtractContent_HTMLOnly(t *testing.T) {
	payload := &gmail.MessagePart{
		MimeType: "text/html",
		Body: &gmail.MessagePartBody{
			Data: base64.RawURLEncoding.EncodeToString([]byte("<div>Hello &amp; welcome</div>")),
		},
	}

	plainText, _ := extractContent(payload)

	if plainText != "Hello & welcome" {
		t.Errorf("plainText = %q, expected stripped HTML", plainText)
	}
}

func TestDecodeBody(t *testing.T) {
	content := []byte("some message content?>")

	padded := base64.URLEncoding.EncodeToString(content)
	unpadded := base64.RawURLEncoding.EncodeToString(content)

	for _, encoded := range []string{padded, unpadded} {
		decoded, err := decodeBody(encoded)
		if err != nil {
			t.Fatalf("decodeBody(%q) error: %v", encoded, err)
		}
		if string(decoded) != string(content) {
			t.Errorf("decodeBody(%q) = %q", encoded, decoded)
		}
	}

	if _, err := decodeBody("not valid base64!!!"); err == nil {
		t.Error("expected error for invalid input")
	}
}

func TestHTMLToText(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "tags stripped",
			html:     "<html><body><h1>Title</h1><p>Body text</p></body></html>",
			expected: "Title Body text",
		},
		{
			name:     "entities decoded",
			html:     "Fish &amp; chips &lt;today&gt; &quot;only&quot; &#39;now&#39;&nbsp;here",
			expected: "Fish & chips <today> \"only\" 'now' here",
		},
		{
			name:     "whitespace collapsed",
			html:     "<p>one</p>\n\n\t  <p>two</p>",
			expected: "one two",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := htmlToText(tc.html); got != tc.expected {
				t.Errorf("htmlToText() = %q, expected %q", got, tc.expected)
			}
		})
	}
}

func TestMessage_Body(t *testing.T) {
	msg := &Message{PlainText: "plain body", HTMLText: "<p>html body</p>"}
	if msg.Body() != "plain body" {
		t.Errorf("Body() = %q, expected plain text", msg.Body())
	}

	msg = &Message{HTMLText: "<p>html body</p>"}
	if msg.Body() != "html body" {
		t.Errorf("Body() = %q, expected stripped HTML", msg.Body())
	}

	msg = &Message{}
	if msg.Body() != "" {
		t.Errorf("Body() = %q, expected empty", msg.Body())
	}
}

func TestLoadToken_FromConfig(t *testing.T) {
	token, err := loadToken(&Config{RefreshToken: "refresh-abc"})
	if err != nil {
		t.Fatalf("loadToken error: %v", err)
	}
	if token.RefreshToken != "refresh-abc" {
		t.Errorf("RefreshToken = %q", token.RefreshToken)
	}
	if token.TokenType != "Bearer" {
		t.Errorf("TokenType = %q", token.TokenType)
	}
}

func TestLoadToken_Missing(t *testing.T) {
	if _, err := loadToken(&Config{}); err == nil {
		t.Error("expected error when no token source is configured")
	}
}
