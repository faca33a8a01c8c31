package classifier

import (
	"context"
	"fmt"
	"strings"

	"mailsense/internal/inference"
)

// EmailIntents is the fixed candidate-label list for intent prediction.
var EmailIntents = []string{
	"newsletter",
	"promotional",
	"personal",
	"work",
	"notification",
	"spam",
	"phishing",
	"important",
	"urgent",
	"social",
	"shopping",
	"marketing",
}

const (
	intentTemplate    = "This email is about {}."
	sentimentTemplate = "This email has a {} tone."
	priorityTemplate  = "This email has {} priority."

	// maxInputChars is how much body text is sent to the model.
	maxInputChars = 1000
)

// Prediction is a single zero-shot classification outcome.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// ZeroShotClient scores text against arbitrary candidate labels.
// *inference.Client satisfies this; tests substitute a stub.
type ZeroShotClient interface {
	Classify(ctx context.Context, text string, candidates []string, hypothesisTemplate string) (*inference.Result, error)
}

// IntentClassifier predicts email intent, sentiment and priority by
// delegating scoring to a zero-shot classification model.
type IntentClassifier struct {
	client  ZeroShotClient
	intents []string
}

// NewIntentClassifier creates a classifier over the default intent list.
func NewIntentClassifier(client ZeroShotClient) *IntentClassifier {
	return &IntentClassifier{
		client:  client,
		intents: EmailIntents,
	}
}

// PredictIntent returns the best-matching intent for the email text.
// Empty text yields {"unknown", 0} without calling the model.
func (ic *IntentClassifier) PredictIntent(ctx context.Context, text string) (Prediction, error) {
	return ic.predict(ctx, text, ic.intents, intentTemplate, "unknown")
}

// PredictSentiment classifies the tone of the email text.
func (ic *IntentClassifier) PredictSentiment(ctx context.Context, text string) (Prediction, error) {
	return ic.predict(ctx, text, []string{"positive", "negative", "neutral"}, sentimentTemplate, "neutral")
}

// PredictPriority classifies the priority level of an email, taking the
// subject line into account.
func (ic *IntentClassifier) PredictPriority(ctx context.Context, subject, text string) (Prediction, error) {
	combined := strings.TrimSpace(fmt.Sprintf("Subject: %s\n\n%s", subject, text))
	return ic.predict(ctx, combined, []string{"high", "normal", "low"}, priorityTemplate, "normal")
}

func (ic *IntentClassifier) predict(ctx context.Context, text string, candidates []string, template, fallback string) (Prediction, error) {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return Prediction{Label: fallback}, nil
	}
	clean = truncate(clean, maxInputChars)

	result, err := ic.client.Classify(ctx, clean, candidates, template)
	if err != nil {
		return Prediction{Label: fallback}, fmt.Errorf("intent prediction failed: %w", err)
	}

	label, score := result.Best()
	if label == "" {
		return Prediction{Label: fallback}, fmt.Errorf("model returned no labels")
	}

	return Prediction{Label: label, Confidence: score}, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
