// Package pipeline orchestrates the classification flow: fetch email,
// run rule and intent classifiers, apply Gmail labels, record history.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mailsense/internal/classifier"
	"mailsense/internal/gmail"
	"mailsense/internal/metrics"
	"mailsense/internal/state"
)

// IntentPredictor is the slice of IntentClassifier the pipeline needs.
type IntentPredictor interface {
	PredictIntent(ctx context.Context, text string) (classifier.Prediction, error)
	PredictSentiment(ctx context.Context, text string) (classifier.Prediction, error)
	PredictPriority(ctx context.Context, subject, text string) (classifier.Prediction, error)
}

// Config holds pipeline behavior settings.
type Config struct {
	DryRun         bool
	MaxPerScan     int64
	MaxKeywords    int
	SummaryLength  int
	EnrichAnalysis bool // run sentiment/priority/keywords in addition to intent
}

// SecurityAnalysis summarizes the security-relevant rule checks.
type SecurityAnalysis struct {
	Suspicious        bool `json:"suspicious"`
	UrgentLanguage    bool `json:"urgent_language"`
	MoneyRelated      bool `json:"money_related"`
	PotentialPhishing bool `json:"potential_phishing"`
}

// Summary is the outcome of classifying one message.
type Summary struct {
	MessageID     string                `json:"message_id"`
	AppliedLabels []string              `json:"applied_labels"`
	AILabel       string                `json:"ai_label"`
	Intent        string                `json:"intent,omitempty"`
	Confidence    float64               `json:"confidence"`
	RuleResult    classifier.RuleResult `json:"rule_classification"`
	Security      SecurityAnalysis      `json:"security_analysis"`

	Sentiment string   `json:"sentiment,omitempty"`
	Priority  string   `json:"priority,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Summary   string   `json:"summary,omitempty"`

	Status string `json:"status"`
	Cached bool   `json:"cached,omitempty"`
}

// Processor runs the classification pipeline.
type Processor struct {
	client  gmail.Client
	rules   *classifier.RuleClassifier
	intents IntentPredictor
	store   *state.Store
	cache   *ResultCache
	config  *Config
	logger  *slog.Logger
}

// NewProcessor wires up the pipeline.
func NewProcessor(client gmail.Client, rules *classifier.RuleClassifier, intents IntentPredictor,
	store *state.Store, cache *ResultCache, config *Config, logger *slog.Logger) *Processor {
	if config == nil {
		config = &Config{MaxPerScan: 20, MaxKeywords: 5, SummaryLength: 200}
	}
	return &Processor{
		client:  client,
		rules:   rules,
		intents: intents,
		store:   store,
		cache:   cache,
		config:  config,
		logger:  logger,
	}
}

// ProcessLatest fetches the newest inbox message and classifies it.
// With force set, cached results are bypassed and the message is
// re-classified.
func (p *Processor) ProcessLatest(ctx context.Context, force bool) (*Summary, error) {
	msg, err := p.client.FetchLatest(ctx)
	if err != nil {
		return nil, err
	}
	return p.ProcessMessage(ctx, msg, force)
}

// ProcessMessage classifies a single message, applies labels and records
// the outcome.
func (p *Processor) ProcessMessage(ctx context.Context, msg *gmail.Message, force bool) (*Summary, error) {
	start := time.Now()
	defer func() {
		metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	if !force {
		if cached := p.cache.Get(msg.ID); cached != nil {
			p.logger.Debug("Returning cached classification", "message_id", msg.ID)
			replay := *cached
			replay.Cached = true
			return &replay, nil
		}
	} else {
		p.cache.Invalidate(msg.ID)
	}

	body := msg.Body()

	// Rule-based classification
	ruleResult := p.rules.Classify(body)

	// AI-based classification; failure is non-fatal and falls back to
	// the "unclassified" label.
	summary := &Summary{
		MessageID:  msg.ID,
		RuleResult: ruleResult,
		Security: SecurityAnalysis{
			Suspicious:        ruleResult.Suspicious,
			UrgentLanguage:    ruleResult.UrgentLanguage,
			MoneyRelated:      ruleResult.MoneyRelated,
			PotentialPhishing: ruleResult.PotentialPhishing(),
		},
		Status: "classified",
	}

	intent, err := p.intents.PredictIntent(ctx, body)
	if err != nil {
		metrics.InferenceErrors.Inc()
		p.logger.Warn("Intent prediction failed, labeling unclassified",
			"message_id", msg.ID, "error", err)
		summary.AILabel = "AI:Unclassified"
	} else {
		summary.Intent = intent.Label
		summary.Confidence = intent.Confidence
		summary.AILabel = aiLabelName(intent.Label)
	}

	if p.config.EnrichAnalysis && strings.TrimSpace(body) != "" {
		p.enrich(ctx, msg, body, summary)
	}

	labelNames := make([]string, 0, 8)
	for _, label := range ruleResult.Labels() {
		labelNames = append(labelNames, label.DisplayName())
	}
	labelNames = append(labelNames, summary.AILabel)
	summary.AppliedLabels = labelNames

	if p.config.DryRun {
		p.logger.Info("Dry run, skipping label application",
			"message_id", msg.ID, "labels", labelNames)
	} else {
		if err := p.client.ApplyLabels(ctx, msg.ID, labelNames); err != nil {
			p.recordFailure(msg, summary, err)
			return nil, fmt.Errorf("failed to apply labels to %s: %w", msg.ID, err)
		}
		metrics.LabelsApplied.Add(float64(len(labelNames)))
	}

	entry := &state.Entry{
		MessageID:  msg.ID,
		ThreadID:   msg.ThreadID,
		Sender:     msg.From,
		Subject:    msg.Subject,
		Intent:     summary.Intent,
		Confidence: summary.Confidence,
		Labels:     labelNames,
		Status:     summary.Status,
	}
	if err := p.store.Record(entry); err != nil {
		// Label application already happened; log rather than fail the run.
		p.logger.Error("Failed to record classification", "message_id", msg.ID, "error", err)
	}

	p.cache.Set(msg.ID, summary)
	metrics.MessagesClassified.WithLabelValues(summary.Status).Inc()

	p.logger.Info("Email classified",
		"message_id", msg.ID,
		"intent", summary.Intent,
		"confidence", summary.Confidence,
		"labels", labelNames)

	return summary, nil
}

// Scan classifies recent messages across inbox and category tabs,
// skipping messages that already have a history row.
func (p *Processor) Scan(ctx context.Context) ([]*Summary, error) {
	messages, err := p.client.ListRecent(ctx, p.config.MaxPerScan)
	if err != nil {
		return nil, err
	}

	var summaries []*Summary
	for i := range messages {
		msg := &messages[i]

		processed, err := p.store.IsProcessed(msg.ID)
		if err != nil {
			return summaries, err
		}
		if processed {
			continue
		}

		summary, err := p.ProcessMessage(ctx, msg, false)
		if err != nil {
			if ctx.Err() != nil {
				return summaries, err
			}
			p.logger.Warn("Skipping message after classification failure",
				"message_id", msg.ID, "error", err)
			continue
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// enrich adds sentiment, priority, keywords and a summary to the result.
// Enrichment failures are logged and ignored.
func (p *Processor) enrich(ctx context.Context, msg *gmail.Message, body string, summary *Summary) {
	if sentiment, err := p.intents.PredictSentiment(ctx, body); err == nil {
		summary.Sentiment = sentiment.Label
	} else {
		p.logger.Debug("Sentiment prediction failed", "message_id", msg.ID, "error", err)
	}

	if priority, err := p.intents.PredictPriority(ctx, msg.Subject, body); err == nil {
		summary.Priority = priority.Label
	} else {
		p.logger.Debug("Priority prediction failed", "message_id", msg.ID, "error", err)
	}

	summary.Keywords = classifier.ExtractKeywords(body, p.config.MaxKeywords)
	summary.Summary = classifier.Summarize(body, p.config.SummaryLength)
}

func (p *Processor) recordFailure(msg *gmail.Message, summary *Summary, cause error) {
	metrics.MessagesClassified.WithLabelValues("failed").Inc()
	entry := &state.Entry{
		MessageID:  msg.ID,
		ThreadID:   msg.ThreadID,
		Sender:     msg.From,
		Subject:    msg.Subject,
		Intent:     summary.Intent,
		Confidence: summary.Confidence,
		Status:     "failed",
		ErrorMsg:   cause.Error(),
	}
	if err := p.store.Record(entry); err != nil {
		p.logger.Error("Failed to record failure", "message_id", msg.ID, "error", err)
	}
}

// aiLabelName formats the Gmail label for a predicted intent,
// e.g. "promotional" becomes "AI:Promotional".
func aiLabelName(intent string) string {
	if intent == "" {
		return "AI:Unclassified"
	}
	return "AI:" + strings.ToUpper(intent[:1]) + intent[1:]
}
