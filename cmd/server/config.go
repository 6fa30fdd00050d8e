package main

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"docflow/internal/core/numerator"
	"docflow/internal/domain/documents"
)

// Config is the server configuration read from the environment.
type Config struct {
	Addr string `envconfig:"APP_ADDR" default:":8080"`
	Env  string `envconfig:"APP_ENV" default:"development"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"25"`

	// RedisAddr selects the Redis idempotency store. PostgreSQL is used when empty.
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	IdempotencyTTL time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`

	// NumberingStrategy is "latest" (scan the latest code) or "counter" (sequence table)
	NumberingStrategy string `envconfig:"NUMBERING_STRATEGY" default:"latest"`

	// QuoteSequenceFamily is the family whose codes the quote sequence follows.
	// "quote" keeps quotes on their own QUO sequence.
	QuoteSequenceFamily string `envconfig:"QUOTE_SEQUENCE_FAMILY" default:"quote"`

	DefaultTaxRate string `envconfig:"DEFAULT_TAX_RATE" default:"20"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoadConfig reads and validates the configuration.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if _, err := cfg.TaxRate(); err != nil {
		return cfg, err
	}
	if _, err := numerator.ParseStrategy(cfg.NumberingStrategy); err != nil {
		return cfg, fmt.Errorf("NUMBERING_STRATEGY: %w", err)
	}
	if _, err := documents.ParseFamily(cfg.QuoteSequenceFamily); err != nil {
		return cfg, fmt.Errorf("QUOTE_SEQUENCE_FAMILY: %w", err)
	}
	if cfg.DBMaxConns <= 0 {
		return cfg, fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	return cfg, nil
}

// Development reports whether the server runs in development mode.
func (c Config) Development() bool {
	return c.Env == "development"
}

// TaxRate parses DEFAULT_TAX_RATE as a percentage.
func (c Config) TaxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.DefaultTaxRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("DEFAULT_TAX_RATE: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("DEFAULT_TAX_RATE must be between 0 and 100")
	}
	return rate, nil
}

// Numbering returns the code sequences of every family.
func (c Config) Numbering() documents.Numbering {
	strategy, _ := numerator.ParseStrategy(c.NumberingStrategy)
	n := documents.DefaultNumbering().WithStrategy(strategy)
	family, err := documents.ParseFamily(c.QuoteSequenceFamily)
	if err != nil || family == documents.FamilyQuote {
		return n
	}
	return n.WithQuoteSequence(family)
}
