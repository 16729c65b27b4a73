package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken string
	DatabaseURL   string
	SweepInterval time.Duration
	StoreLatency  time.Duration
	DigestTime    string // HH:MM local time
	DigestTo      string
	SMTP          SMTPConfig
	GeminiAPIKey  string
}

// SMTPConfig carries mail-out settings for the daily digest.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads configuration from the environment with sane defaults.
// A .env file in the working directory is applied first if present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SweepInterval: getEnvAsDuration("SWEEP_INTERVAL", time.Minute),
		StoreLatency:  getEnvAsDuration("STORE_LATENCY", 100*time.Millisecond),
		DigestTime:    getEnv("DIGEST_TIME", "08:00"),
		DigestTo:      strings.TrimSpace(os.Getenv("DIGEST_TO")),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		GeminiAPIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "studynote.db"
	}

	if _, err := ParseClock(cfg.DigestTime); err != nil {
		return cfg, fmt.Errorf("DIGEST_TIME: %w", err)
	}

	return cfg, nil
}

// MailConfigured reports whether the digest can actually be sent.
func (c Config) MailConfigured() bool {
	return c.SMTP.Host != "" && c.SMTP.From != "" && c.DigestTo != ""
}

// ParseClock validates an HH:MM string and returns hour and minute.
func ParseClock(value string) ([2]int, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return [2]int{}, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return [2]int{}, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return [2]int{}, fmt.Errorf("invalid minute in %q", value)
	}
	return [2]int{hour, minute}, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
