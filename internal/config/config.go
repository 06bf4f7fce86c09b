package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Ledger backends
const (
	LedgerMemory     = "memory"
	LedgerClickHouse = "clickhouse"
	LedgerDynamoDB   = "dynamodb"
)

// Config holds the application configuration
type Config struct {
	TelegramToken  string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	AllowedUserIDs []int64 `envconfig:"ALLOWED_USER_IDS"` // empty admits everyone

	// Secret webhook path segment, derived from the token when empty
	TelegramWebhookSecret string `envconfig:"TELEGRAM_WEBHOOK_SECRET"`

	// Bot mode configuration
	WebhookMode bool   `envconfig:"WEBHOOK_MODE" default:"false"`
	BaseURL     string `envconfig:"BASE_URL"` // public https URL, required in webhook mode
	Port        string `envconfig:"PORT" default:"8080"`

	Environment string `envconfig:"ENV" default:"production"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// Ledger
	LedgerBackend string `envconfig:"LEDGER_BACKEND" default:"memory"`

	ClickHouseHost     string `envconfig:"CLICKHOUSE_HOST"`
	ClickHousePort     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	ClickHouseDatabase string `envconfig:"CLICKHOUSE_DATABASE" default:"default"`
	ClickHouseUser     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	ClickHousePassword string `envconfig:"CLICKHOUSE_PASSWORD"`
	ClickHouseUseTLS   bool   `envconfig:"CLICKHOUSE_USE_TLS" default:"false"`

	DynamoDBTable    string `envconfig:"DYNAMODB_TABLE"`
	DynamoDBEndpoint string `envconfig:"DYNAMODB_ENDPOINT"` // e.g. http://localhost:8000 for DynamoDB Local

	// Payments
	FlutterwaveSecretKey   string `envconfig:"FLUTTERWAVE_SECRET_KEY"` // empty selects the sandbox gateway
	FlutterwaveWebhookHash string `envconfig:"FLUTTERWAVE_WEBHOOK_HASH"`
	FlutterwaveBaseURL     string `envconfig:"FLUTTERWAVE_BASE_URL"`
	PaymentRedirectURL     string `envconfig:"PAYMENT_REDIRECT_URL"`

	// Covers
	PlaceholderURL string        `envconfig:"PLACEHOLDER_URL" default:"https://placehold.co"`
	VerifyCovers   bool          `envconfig:"VERIFY_COVERS" default:"true"`
	ImageAPIKey    string        `envconfig:"IMAGE_API_KEY"` // enables the generative backend
	ImageBaseURL   string        `envconfig:"IMAGE_BASE_URL"`
	ImageModel     string        `envconfig:"IMAGE_MODEL"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"10m"`
}

// LoadFromEnv loads .env if present and reads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that depend on each other
func (c *Config) Validate() error {
	if strings.TrimSpace(c.TelegramToken) == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	if c.WebhookMode {
		if c.BaseURL == "" {
			return fmt.Errorf("BASE_URL is required when WEBHOOK_MODE is true")
		}
		if !strings.HasPrefix(c.BaseURL, "https://") {
			return fmt.Errorf("BASE_URL must be an https URL, got %q", c.BaseURL)
		}
		c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	}

	c.LedgerBackend = strings.ToLower(strings.TrimSpace(c.LedgerBackend))
	switch c.LedgerBackend {
	case LedgerMemory:
	case LedgerClickHouse:
		if c.ClickHouseHost == "" {
			return fmt.Errorf("CLICKHOUSE_HOST is required when LEDGER_BACKEND is %s", LedgerClickHouse)
		}
	case LedgerDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required when LEDGER_BACKEND is %s", LedgerDynamoDB)
		}
	default:
		return fmt.Errorf("invalid LEDGER_BACKEND %q (want memory, clickhouse or dynamodb)", c.LedgerBackend)
	}

	if c.SessionTTL < 0 {
		return fmt.Errorf("SESSION_TTL must not be negative")
	}
	return nil
}

// IsDevelopment reports whether development logging should be used
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}
