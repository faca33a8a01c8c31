package cmd

import (
	"context"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

const (
	// Version information
	Version   = "1.0.0"
	BuildDate = "development"
)

var (
	configFile string
	dryRun     bool
	testMode   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mailsense",
	Short: "Webhook-driven Gmail email classification service",
	Long: `Mailsense v1.0.0

DESCRIPTION:
    Classifies incoming Gmail messages with a combination of rule-based
    content analysis and zero-shot intent classification, and applies
    the results back to the mailbox as Gmail labels.

CONFIGURATION:
    Configuration is done via environment variables and .env files:

    Gmail API Configuration:
        GMAIL_CLIENT_ID         - OAuth2 client ID
        GMAIL_CLIENT_SECRET     - OAuth2 client secret
        GMAIL_REFRESH_TOKEN     - OAuth2 refresh token
        GMAIL_ACCESS_TOKEN      - OAuth2 access token
        GMAIL_TOKEN_FILE        - Token storage file (default: ./gmail-token.json)
        GMAIL_REQUEST_TIMEOUT   - Gmail API request timeout (default: 30s)
        GMAIL_RATE_LIMIT_DELAY  - Delay between Gmail API calls (default: 100ms)

    Model Configuration:
        MODEL_ENDPOINT          - Zero-shot inference endpoint (default: http://localhost:8000)
        MODEL_NAME              - Model identifier (default: facebook/bart-large-mnli)
        MODEL_TIMEOUT           - Inference request timeout (default: 30s)
        MODEL_RETRY_COUNT       - Number of inference retries (default: 3)

    Processing Configuration:
        STATE_DB_PATH           - SQLite database for classification history (default: ./mailsense.db)
        CACHE_TTL               - Result cache lifetime (default: 5m)
        CACHE_DISABLED          - Disable the result cache (default: false)
        DRY_RUN                 - Classify without applying labels (default: false)
        MAX_PER_SCAN            - Maximum emails per scan run (default: 20)
        TEST_MODE               - Use a mock Gmail client (default: false)

    Server Configuration:
        SERVER_HOST             - Listen host (default: localhost)
        SERVER_PORT             - Listen port (default: 8080)
        LOG_LEVEL               - Log level: debug, info, warn, error (default: info)

EXAMPLES:
    # Run the webhook server with OAuth2 credentials
    export GMAIL_CLIENT_ID="your-client-id"
    export GMAIL_CLIENT_SECRET="your-client-secret"
    export GMAIL_REFRESH_TOKEN="your-refresh-token"
    mailsense serve

    # With a custom configuration file
    mailsense serve --config=.env.production

    # Dry run mode for testing
    mailsense serve --dry-run

    # Classify a message body from a local file without touching Gmail
    mailsense classify --file=message.txt`,
	Version: Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	fang.Execute(context.Background(), rootCmd)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env in current directory)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "classify emails without applying labels")
	rootCmd.PersistentFlags().BoolVar(&testMode, "test-mode", false, "use a mock Gmail client instead of the live API")
}
