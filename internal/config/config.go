package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/liamashdown/agentlens/internal/secrets"
)

// AuthMode represents the authentication mode for Data API
type AuthMode string

const (
	AuthModeNone   AuthMode = "none"
	AuthModeBearer AuthMode = "bearer"
	AuthModeAPIKey AuthMode = "api_key"
)

// Config holds all application configuration
type Config struct {
	// Environment
	Environment string
	LogLevel    string

	// Database
	DatabaseDSN         string
	DatabaseMaxConns    int
	DatabaseMaxIdleTime time.Duration

	// Data API
	DataAPIBaseURL      string
	DataAPIAuthMode     AuthMode
	DataAPIBearerToken  string
	DataAPIAPIKey       string
	DataAPIExtraHeaders map[string]string

	// Gamma API
	GammaAPIBaseURL string

	// Rate limits (requests per second)
	DataAPIRPS   float64
	DataAPIBurst int
	GammaAPIRPS  float64

	// Market deep scan
	HolderFetchLimit int // holders requested from the provider per scan
	ScanHolderLimit  int // largest holders deep-scanned out of those fetched
	ScanBatchSize    int

	// Smart money consensus
	LeaderboardSize   int
	DustThresholdUSD  float64
	ConsensusCacheTTL time.Duration

	// Probability engine
	MaxAgentAdjustment float64
	ImpactThresholdPct float64
	KellyFraction      float64
	NeutralBand        float64

	// Scheduling
	ScanSchedule string // cron spec with seconds field
	WatchMarkets []string

	// Alerts
	AlertMode               string // log, discord, smtp or a comma-separated combination
	DiscordWebhookURL       string
	SMTPHost                string
	SMTPPort                int
	SMTPUser                string
	SMTPPassword            string
	SMTPFrom                string
	SMTPTo                  []string
	AlphaAlertMinConfidence int

	// HTTP
	HTTPPort    int
	MetricsPort int
}

// Load reads configuration from environment variables, with a .env file as
// fallback for anything not set in the environment
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Environment:             getEnv("ENVIRONMENT", "production"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		DatabaseDSN:             getEnv("DATABASE_DSN", "agentlens:agentlens@tcp(mysql:3306)/agentlens?parseTime=true"),
		DatabaseMaxConns:        getEnvInt("DATABASE_MAX_CONNS", 25),
		DatabaseMaxIdleTime:     time.Duration(getEnvInt("DATABASE_MAX_IDLE_TIME_MINS", 5)) * time.Minute,
		DataAPIBaseURL:          getEnv("DATA_API_BASE_URL", "https://data-api.polymarket.com"),
		DataAPIAuthMode:         AuthMode(getEnv("DATA_API_AUTH_MODE", "none")),
		DataAPIBearerToken:      secrets.GetOptionalSecret("DATA_API_BEARER_TOKEN", ""),
		DataAPIAPIKey:           secrets.GetOptionalSecret("DATA_API_API_KEY", ""),
		GammaAPIBaseURL:         getEnv("GAMMA_API_BASE_URL", "https://gamma-api.polymarket.com"),
		DataAPIRPS:              getEnvFloat("DATA_API_RPS", 5.0),
		DataAPIBurst:            getEnvInt("DATA_API_BURST", 5),
		GammaAPIRPS:             getEnvFloat("GAMMA_API_RPS", 5.0),
		HolderFetchLimit:        getEnvInt("HOLDER_FETCH_LIMIT", 100),
		ScanHolderLimit:         getEnvInt("SCAN_HOLDER_LIMIT", 15),
		ScanBatchSize:           getEnvInt("SCAN_BATCH_SIZE", 5),
		LeaderboardSize:         getEnvInt("LEADERBOARD_SIZE", 50),
		DustThresholdUSD:        getEnvFloat("DUST_THRESHOLD_USD", 0.5),
		ConsensusCacheTTL:       time.Duration(getEnvInt("CONSENSUS_CACHE_TTL_SECS", 300)) * time.Second,
		MaxAgentAdjustment:      getEnvFloat("MAX_AGENT_ADJUSTMENT", 10),
		ImpactThresholdPct:      getEnvFloat("IMPACT_THRESHOLD_PCT", 1),
		KellyFraction:           getEnvFloat("KELLY_FRACTION", 0.5),
		NeutralBand:             getEnvFloat("NEUTRAL_BAND", 2),
		ScanSchedule:            getEnv("SCAN_SCHEDULE", "0 */5 * * * *"),
		WatchMarkets:            parseCSV(getEnv("WATCH_MARKETS", "")),
		AlertMode:               getEnv("ALERT_MODE", "log"),
		DiscordWebhookURL:       secrets.GetOptionalSecret("DISCORD_WEBHOOK_URL", ""),
		SMTPHost:                getEnv("SMTP_HOST", ""),
		SMTPPort:                getEnvInt("SMTP_PORT", 587),
		SMTPUser:                getEnv("SMTP_USER", ""),
		SMTPPassword:            secrets.GetOptionalSecret("SMTP_PASSWORD", ""),
		SMTPFrom:                getEnv("SMTP_FROM", "agentlens@example.com"),
		SMTPTo:                  parseCSV(getEnv("SMTP_TO", "")),
		AlphaAlertMinConfidence: getEnvInt("ALPHA_ALERT_MIN_CONFIDENCE", 70),
		HTTPPort:                getEnvInt("HTTP_PORT", 8080),
		MetricsPort:             getEnvInt("METRICS_PORT", 9090),
	}

	// Parse extra headers JSON
	extraHeadersJSON := getEnv("DATA_API_EXTRA_HEADERS", "{}")
	if err := json.Unmarshal([]byte(extraHeadersJSON), &cfg.DataAPIExtraHeaders); err != nil {
		return nil, fmt.Errorf("invalid DATA_API_EXTRA_HEADERS JSON: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}

	// Validate auth mode
	switch c.DataAPIAuthMode {
	case AuthModeNone:
		// No validation needed
	case AuthModeBearer:
		if c.DataAPIBearerToken == "" {
			return fmt.Errorf("DATA_API_BEARER_TOKEN is required when AUTH_MODE is bearer")
		}
	case AuthModeAPIKey:
		if c.DataAPIAPIKey == "" {
			return fmt.Errorf("DATA_API_API_KEY is required when AUTH_MODE is api_key")
		}
	default:
		return fmt.Errorf("invalid DATA_API_AUTH_MODE: %s (must be none, bearer, or api_key)", c.DataAPIAuthMode)
	}

	if c.ScanHolderLimit <= 0 {
		return fmt.Errorf("SCAN_HOLDER_LIMIT must be positive")
	}
	if c.HolderFetchLimit < c.ScanHolderLimit {
		return fmt.Errorf("HOLDER_FETCH_LIMIT must be at least SCAN_HOLDER_LIMIT (%d), got %d", c.ScanHolderLimit, c.HolderFetchLimit)
	}
	if c.ScanBatchSize <= 0 {
		return fmt.Errorf("SCAN_BATCH_SIZE must be positive")
	}
	if c.DustThresholdUSD < 0 {
		return fmt.Errorf("DUST_THRESHOLD_USD must not be negative")
	}
	if c.KellyFraction <= 0 || c.KellyFraction > 1 {
		return fmt.Errorf("KELLY_FRACTION must be in (0, 1], got %v", c.KellyFraction)
	}
	if c.NeutralBand < 0 || c.NeutralBand >= 50 {
		return fmt.Errorf("NEUTRAL_BAND must be in [0, 50), got %v", c.NeutralBand)
	}
	if c.AlphaAlertMinConfidence < 0 || c.AlphaAlertMinConfidence > 100 {
		return fmt.Errorf("ALPHA_ALERT_MIN_CONFIDENCE must be in [0, 100]")
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.ScanSchedule); err != nil {
		return fmt.Errorf("invalid SCAN_SCHEDULE %q: %w", c.ScanSchedule, err)
	}

	// Validate alert mode (comma-separated list)
	hasDiscord := false
	hasSMTP := false
	for _, mode := range strings.Split(c.AlertMode, ",") {
		switch strings.TrimSpace(mode) {
		case "log":
		case "discord":
			hasDiscord = true
		case "smtp":
			hasSMTP = true
		default:
			return fmt.Errorf("invalid ALERT_MODE value: %s (valid values: log, discord, smtp)", mode)
		}
	}

	if hasDiscord && c.DiscordWebhookURL == "" {
		return fmt.Errorf("DISCORD_WEBHOOK_URL is required when discord is in ALERT_MODE")
	}
	if hasSMTP {
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when smtp is in ALERT_MODE")
		}
		if len(c.SMTPTo) == 0 {
			return fmt.Errorf("SMTP_TO is required when smtp is in ALERT_MODE")
		}
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func parseCSV(s string) []string {
	var result []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
