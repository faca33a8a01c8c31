package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mailsense/internal/classifier"
	"mailsense/internal/inference"
)

var (
	classifyFile    string
	classifySubject string
	rulesOnly       bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify an email body from a file or stdin",
	Long: `Runs the classification pipeline over a local email body without
touching Gmail. Reads from --file or stdin and prints the result as JSON.
Rule-based classification always runs; intent classification requires a
reachable inference endpoint unless --rules-only is set.`,
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyFile, "file", "f", "", "file containing the email body (default: stdin)")
	classifyCmd.Flags().StringVarP(&classifySubject, "subject", "s", "", "email subject line")
	classifyCmd.Flags().BoolVar(&rulesOnly, "rules-only", false, "skip zero-shot intent classification")
	rootCmd.AddCommand(classifyCmd)
}

// classifyOutput is the JSON shape printed by the classify command.
type classifyOutput struct {
	RuleResult classifier.RuleResult `json:"rule_classification"`
	Labels     []string              `json:"labels"`
	Intent     string                `json:"intent,omitempty"`
	Confidence float64               `json:"confidence,omitempty"`
	Sentiment  string                `json:"sentiment,omitempty"`
	Priority   string                `json:"priority,omitempty"`
	Keywords   []string              `json:"keywords,omitempty"`
	Summary    string                `json:"summary,omitempty"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	body, err := readBody()
	if err != nil {
		return err
	}

	rules := classifier.NewRuleClassifier()
	result := rules.Classify(body)

	output := classifyOutput{
		RuleResult: result,
	}
	for _, label := range result.Labels() {
		output.Labels = append(output.Labels, label.DisplayName())
	}

	if !rulesOnly {
		cfg, err := loadConfiguration()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		client := inference.NewClient(&inference.Config{
			Endpoint:      cfg.Model.Endpoint,
			Model:         cfg.Model.Name,
			Timeout:       cfg.Model.Timeout,
			RetryCount:    cfg.Model.RetryCount,
			RetryDelay:    cfg.Model.RetryDelay,
			BackoffFactor: cfg.Model.BackoffFactor,
		})

		intents := classifier.NewIntentClassifier(client)
		ctx := cmd.Context()

		prediction, err := intents.PredictIntent(ctx, body)
		if err != nil {
			return fmt.Errorf("intent classification failed: %w", err)
		}
		output.Intent = prediction.Label
		output.Confidence = prediction.Confidence

		if sentiment, err := intents.PredictSentiment(ctx, body); err == nil {
			output.Sentiment = sentiment.Label
		}
		if priority, err := intents.PredictPriority(ctx, classifySubject, body); err == nil {
			output.Priority = priority.Label
		}
		output.Keywords = classifier.ExtractKeywords(body, 5)
		output.Summary = classifier.Summarize(body, 200)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func readBody() (string, error) {
	if classifyFile != "" {
		data, err := os.ReadFile(classifyFile)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", classifyFile, err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}
