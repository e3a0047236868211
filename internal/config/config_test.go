package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DatabaseDSN:             "user:pass@tcp(localhost:3306)/agentlens",
		DataAPIAuthMode:         AuthModeNone,
		HolderFetchLimit:        100,
		ScanHolderLimit:         15,
		ScanBatchSize:           5,
		DustThresholdUSD:        0.5,
		KellyFraction:           0.5,
		NeutralBand:             2,
		AlphaAlertMinConfidence: 70,
		ScanSchedule:            "0 */5 * * * *",
		AlertMode:               "log",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing dsn", func(c *Config) { c.DatabaseDSN = "" }, "DATABASE_DSN"},
		{"bearer without token", func(c *Config) { c.DataAPIAuthMode = AuthModeBearer }, "DATA_API_BEARER_TOKEN"},
		{"api key without key", func(c *Config) { c.DataAPIAuthMode = AuthModeAPIKey }, "DATA_API_API_KEY"},
		{"unknown auth mode", func(c *Config) { c.DataAPIAuthMode = "oauth" }, "DATA_API_AUTH_MODE"},
		{"zero holder limit", func(c *Config) { c.ScanHolderLimit = 0 }, "SCAN_HOLDER_LIMIT"},
		{"fetch limit below scan limit", func(c *Config) { c.HolderFetchLimit = 10 }, "HOLDER_FETCH_LIMIT"},
		{"zero batch size", func(c *Config) { c.ScanBatchSize = 0 }, "SCAN_BATCH_SIZE"},
		{"kelly above one", func(c *Config) { c.KellyFraction = 1.5 }, "KELLY_FRACTION"},
		{"neutral band too wide", func(c *Config) { c.NeutralBand = 50 }, "NEUTRAL_BAND"},
		{"bad schedule", func(c *Config) { c.ScanSchedule = "every minute" }, "SCAN_SCHEDULE"},
		{"descriptor schedule", func(c *Config) { c.ScanSchedule = "@every 5m" }, ""},
		{"unknown alert mode", func(c *Config) { c.AlertMode = "log,slack" }, "ALERT_MODE"},
		{"discord without webhook", func(c *Config) { c.AlertMode = "log,discord" }, "DISCORD_WEBHOOK_URL"},
		{"discord with webhook", func(c *Config) {
			c.AlertMode = "log, discord"
			c.DiscordWebhookURL = "https://discord.example/webhook"
		}, ""},
		{"smtp without host", func(c *Config) {
			c.AlertMode = "smtp"
			c.SMTPTo = []string{"ops@example.com"}
		}, "SMTP_HOST"},
		{"smtp without recipients", func(c *Config) {
			c.AlertMode = "smtp"
			c.SMTPHost = "smtp.example.com"
		}, "SMTP_TO"},
		{"smtp configured", func(c *Config) {
			c.AlertMode = "log,smtp"
			c.SMTPHost = "smtp.example.com"
			c.SMTPTo = []string{"ops@example.com"}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SCAN_HOLDER_LIMIT", "20")
	t.Setenv("CONSENSUS_CACHE_TTL_SECS", "60")
	t.Setenv("KELLY_FRACTION", "0.25")
	t.Setenv("WATCH_MARKETS", " 0xabc, ,0xdef ")
	t.Setenv("DATA_API_EXTRA_HEADERS", `{"X-Client":"agentlens"}`)
	t.Setenv("SCAN_BATCH_SIZE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.ScanHolderLimit)
	assert.Equal(t, 100, cfg.HolderFetchLimit)
	assert.Equal(t, 5, cfg.ScanBatchSize)
	assert.Equal(t, time.Minute, cfg.ConsensusCacheTTL)
	assert.InDelta(t, 0.25, cfg.KellyFraction, 1e-9)
	assert.Equal(t, []string{"0xabc", "0xdef"}, cfg.WatchMarkets)
	assert.Equal(t, map[string]string{"X-Client": "agentlens"}, cfg.DataAPIExtraHeaders)
	assert.InDelta(t, 0.5, cfg.DustThresholdUSD, 1e-9)
}

func TestLoadSMTPSettings(t *testing.T) {
	t.Setenv("ALERT_MODE", "log,smtp")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_TO", "ops@example.com, desk@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com", cfg.SMTPHost)
	assert.Equal(t, 2525, cfg.SMTPPort)
	assert.Equal(t, "agentlens@example.com", cfg.SMTPFrom)
	assert.Equal(t, []string{"ops@example.com", "desk@example.com"}, cfg.SMTPTo)
}

func TestLoadRejectsBadHeaders(t *testing.T) {
	t.Setenv("DATA_API_EXTRA_HEADERS", "{not json")

	_, err := Load()
	assert.ErrorContains(t, err, "DATA_API_EXTRA_HEADERS")
}
