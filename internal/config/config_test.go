package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, LedgerMemory, cfg.LedgerBackend)
	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.WebhookMode)
	assert.Empty(t, cfg.AllowedUserIDs)
	assert.Equal(t, 10*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "https://placehold.co", cfg.PlaceholderURL)
	assert.Equal(t, 9000, cfg.ClickHousePort)
	assert.True(t, cfg.VerifyCovers)
}

func TestLoadFromEnv_Values(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ALLOWED_USER_IDS", "1,22,333")
	t.Setenv("WEBHOOK_MODE", "true")
	t.Setenv("BASE_URL", "https://covercraft.example.com/")
	t.Setenv("LEDGER_BACKEND", "DynamoDB")
	t.Setenv("DYNAMODB_TABLE", "covercraft-ledger")
	t.Setenv("SESSION_TTL", "90s")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 22, 333}, cfg.AllowedUserIDs)
	assert.True(t, cfg.WebhookMode)
	assert.Equal(t, "https://covercraft.example.com", cfg.BaseURL)
	assert.Equal(t, LedgerDynamoDB, cfg.LedgerBackend)
	assert.Equal(t, 90*time.Second, cfg.SessionTTL)
}

func TestLoadFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing token", env: map[string]string{}},
		{name: "webhook without base url", env: map[string]string{"WEBHOOK_MODE": "true"}},
		{name: "webhook with http base url", env: map[string]string{"WEBHOOK_MODE": "true", "BASE_URL": "http://x"}},
		{name: "clickhouse without host", env: map[string]string{"LEDGER_BACKEND": "clickhouse"}},
		{name: "dynamodb without table", env: map[string]string{"LEDGER_BACKEND": "dynamodb"}},
		{name: "unknown backend", env: map[string]string{"LEDGER_BACKEND": "redis"}},
		{name: "bad user id", env: map[string]string{"ALLOWED_USER_IDS": "1,abc"}},
		{name: "bad ttl", env: map[string]string{"SESSION_TTL": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
			if tt.name == "missing token" {
				t.Setenv("TELEGRAM_BOT_TOKEN", "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}
