package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL string
	HTTPAddr    string
	AdminAPIKey string

	LogLevel    string
	Environment string

	// Auto-send pipeline
	AutoSendDelay     time.Duration // delay between creation and unattended delivery
	StaleClaimTimeout time.Duration // how long a 'sending' row may sit before reclaim
	CronSpecSweep     string
	CronSpecReclaim   string

	// Quotas
	DefaultRequestsLimit int

	// SMTP delivery
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPFrom      string // e.g. "Concern2Care <no-reply@concern2care.app>"
	SkipTLSVerify bool

	// AI generator
	AIAPIKey string
	AIModel  string

	// Optional Telegram admin alert channel
	TelegramToken   string
	AdminChatID     int64
	TelegramEnabled bool
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.AdminAPIKey = os.Getenv("ADMIN_API_KEY")
	if cfg.AdminAPIKey == "" {
		return nil, fmt.Errorf("ADMIN_API_KEY is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	delayMinutes, err := envInt("AUTO_SEND_DELAY_MINUTES", 30)
	if err != nil {
		return nil, err
	}
	cfg.AutoSendDelay = time.Duration(delayMinutes) * time.Minute

	staleMinutes, err := envInt("STALE_CLAIM_TIMEOUT_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	cfg.StaleClaimTimeout = time.Duration(staleMinutes) * time.Minute

	cfg.CronSpecSweep = os.Getenv("CRON_SPEC_SWEEP")
	if cfg.CronSpecSweep == "" {
		cfg.CronSpecSweep = "* * * * *" // Default: every minute
	}
	cfg.CronSpecReclaim = os.Getenv("CRON_SPEC_RECLAIM")
	if cfg.CronSpecReclaim == "" {
		cfg.CronSpecReclaim = "*/5 * * * *" // Default: every 5 minutes
	}

	cfg.DefaultRequestsLimit, err = envInt("DEFAULT_REQUESTS_LIMIT", 20)
	if err != nil {
		return nil, err
	}

	cfg.SMTPHost = os.Getenv("SMTP_HOST")
	if cfg.SMTPHost == "" {
		return nil, fmt.Errorf("SMTP_HOST is not set")
	}
	cfg.SMTPPort, err = envInt("SMTP_PORT", 587)
	if err != nil {
		return nil, err
	}
	cfg.SMTPUser = os.Getenv("SMTP_USER")
	cfg.SMTPPass = os.Getenv("SMTP_PASS")
	cfg.SMTPFrom = os.Getenv("SMTP_FROM")
	if cfg.SMTPFrom == "" {
		return nil, fmt.Errorf("SMTP_FROM is not set")
	}
	cfg.SkipTLSVerify = os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1"

	cfg.AIAPIKey = os.Getenv("AI_API_KEY")
	if cfg.AIAPIKey == "" {
		return nil, fmt.Errorf("AI_API_KEY is not set")
	}
	cfg.AIModel = os.Getenv("AI_MODEL")
	if cfg.AIModel == "" {
		return nil, fmt.Errorf("AI_MODEL is not set")
	}

	// Telegram alerts are optional: both values must be present to enable.
	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	adminChatIDStr := os.Getenv("ADMIN_TELEGRAM_CHAT_ID")
	if cfg.TelegramToken != "" && adminChatIDStr != "" {
		cfg.AdminChatID, err = strconv.ParseInt(adminChatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramEnabled = true
	}

	return cfg, nil
}

func envInt(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}
