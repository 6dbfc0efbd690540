// config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DBDriver       string
	DatabaseURL    string
	ServiceToken   string
	AllowedOrigins []string

	EscrowAuditInterval time.Duration
	RateLimitRPS        float64
	RateLimitBurst      int

	EventWebhookURL      string
	EventWebhookInterval time.Duration

	ArchiveBucket       string
	CloudflareAccountID string
	R2AccessKeyID       string
	R2AccessKeySecret   string
	ArchiveInterval     time.Duration
}

// ArchiveEnabled reports whether the bucket and all R2 credentials are set.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != "" && c.CloudflareAccountID != "" &&
		c.R2AccessKeyID != "" && c.R2AccessKeySecret != ""
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	var errs []error

	cfg := &Config{
		Port:                getEnv("PORT", "5300"),
		DBDriver:            strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		ServiceToken:        os.Getenv("LEDGER_SERVICE_TOKEN"),
		EventWebhookURL:     os.Getenv("EVENT_WEBHOOK_URL"),
		ArchiveBucket:       os.Getenv("ARCHIVE_BUCKET"),
		CloudflareAccountID: os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		R2AccessKeyID:       os.Getenv("R2_ACCESS_KEY_ID"),
		R2AccessKeySecret:   os.Getenv("R2_ACCESS_KEY_SECRET"),
	}

	if cfg.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL environment variable not set"))
	}
	if cfg.ServiceToken == "" {
		errs = append(errs, errors.New("LEDGER_SERVICE_TOKEN environment variable not set"))
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.DBDriver))
	}

	for _, origin := range strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	cfg.EscrowAuditInterval = getDuration("ESCROW_AUDIT_INTERVAL", 5*time.Minute, &errs)
	cfg.EventWebhookInterval = getDuration("EVENT_WEBHOOK_INTERVAL", 10*time.Second, &errs)
	cfg.ArchiveInterval = getDuration("ARCHIVE_INTERVAL", time.Hour, &errs)

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "5"), 64)
	if err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS: %w", err))
	}
	cfg.RateLimitRPS = rps

	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "10"))
	if err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST: %w", err))
	}
	cfg.RateLimitBurst = burst

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a positive duration, got %q", key, raw))
		return fallback
	}
	return d
}
