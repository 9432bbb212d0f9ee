package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Priya8975/event-console/internal/engine"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "EVENTCONSOLE_"
	envCfgFile = "EVENTCONSOLE_CONFIG"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel string `koanf:"log_level"`
	Addr     string `koanf:"addr"`

	DatabaseURL string `koanf:"database_url"`
	DBMaxConns  int32  `koanf:"db_max_conns"`
	RedisURL    string `koanf:"redis_url"`

	// NumWorkers sizes the pool that applies Stripe webhook events.
	NumWorkers          int           `koanf:"num_workers"`
	WebhookMaxAttempts  int           `koanf:"webhook_max_attempts"`
	OverdueSweepEvery   time.Duration `koanf:"overdue_sweep_interval"`
	CMSURL              string        `koanf:"cms_url"`
	AppURL              string        `koanf:"app_url"`
	AllowedOrigins      []string      `koanf:"allowed_origins"`
	StripeSecretKey     string        `koanf:"stripe_secret_key"`
	StripeWebhookSecret string        `koanf:"stripe_webhook_secret"`

	// Consecutive Stripe API faults before calls fail fast, and for how long.
	StripeBreakerThreshold int           `koanf:"stripe_breaker_threshold"`
	StripeBreakerCooldown  time.Duration `koanf:"stripe_breaker_cooldown"`

	PlatformFeePercentage float64 `koanf:"platform_fee_percentage"`
	StripePercentageFee   float64 `koanf:"stripe_percentage_fee"`
	StripeFixedFee        float64 `koanf:"stripe_fixed_fee"`

	DraftMaxAge      time.Duration `koanf:"draft_max_age"`
	ExportMaxRows    int           `koanf:"export_max_rows"`
	ExportRateLimit  int           `koanf:"export_rate_limit"`
	ExportRateWindow time.Duration `koanf:"export_rate_window"`
}

// Defaults returns the configuration used when nothing overrides a key.
func Defaults() *Config {
	return &Config{
		LogLevel:               "info",
		Addr:                   ":8080",
		DBMaxConns:             10,
		NumWorkers:             8,
		WebhookMaxAttempts:     3,
		OverdueSweepEvery:      time.Hour,
		CMSURL:                 "http://localhost:8055",
		AppURL:                 "http://localhost:3000",
		AllowedOrigins:         []string{"*"},
		StripeBreakerThreshold: 5,
		StripeBreakerCooldown:  30 * time.Second,
		PlatformFeePercentage:  engine.DefaultFeeConfig.PlatformFeePercentage,
		StripePercentageFee:    engine.DefaultFeeConfig.StripePercentageFee,
		StripeFixedFee:         engine.DefaultFeeConfig.StripeFixedFee,
		DraftMaxAge:            7 * 24 * time.Hour,
		ExportMaxRows:          10_000,
		ExportRateLimit:        5,
		ExportRateWindow:       time.Minute,
	}
}

// Load layers defaults, an optional YAML file and EVENTCONSOLE_* env vars,
// lowest precedence first. path wins over EVENTCONSOLE_CONFIG when both are
// set.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(envCfgFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// EVENTCONSOLE_DATABASE_URL -> database_url
	envProvider := env.ProviderWithValue(envPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
		if key == "allowed_origins" {
			return key, strings.Split(value, ",")
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading env: %w", err)
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required keys and the fee configuration.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database_url is required")
	}
	if c.RedisURL == "" {
		return errors.New("redis_url is required")
	}
	if c.Addr == "" {
		return errors.New("addr must not be empty")
	}
	if c.NumWorkers <= 0 {
		return errors.New("num_workers must be positive")
	}
	if c.WebhookMaxAttempts <= 0 {
		return errors.New("webhook_max_attempts must be positive")
	}
	if c.ExportMaxRows <= 0 {
		return errors.New("export_max_rows must be positive")
	}
	return c.Fees().Validate()
}

// Fees returns the fee configuration for engine.Calculate.
func (c *Config) Fees() engine.FeeConfig {
	return engine.FeeConfig{
		PlatformFeePercentage: c.PlatformFeePercentage,
		StripePercentageFee:   c.StripePercentageFee,
		StripeFixedFee:        c.StripeFixedFee,
	}
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
