// Package config loads engine configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all engine configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port string

	// DatabaseURL enables the PostgreSQL store; empty falls back to the
	// in-memory store (development only).
	DatabaseURL string

	// RedisURL enables the read-through cache; empty disables it.
	RedisURL string

	// MinMarketCapCents is the platform valuation floor.
	MinMarketCapCents int64

	// TransferRate is the fraction of the loser's cap moved per match.
	TransferRate decimal.Decimal

	// PriceToleranceCents bounds quote drift accepted at settlement.
	PriceToleranceCents int64

	// MaxSharesPerTeam and MaxTotalInvestedCents are the holding limits;
	// zero disables the corresponding check.
	MaxSharesPerTeam      int64
	MaxTotalInvestedCents int64

	// FixturePollInterval is how often the applier job scans for finished
	// fixtures.
	FixturePollInterval time.Duration

	// TxTimeout bounds every settlement transaction.
	TxTimeout time.Duration
}

// Load reads configuration from environment variables. A .env file is
// honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
	}

	var err error
	if cfg.MinMarketCapCents, err = getEnvInt64("MIN_MARKET_CAP_CENTS", 1000); err != nil {
		return nil, err
	}
	if cfg.PriceToleranceCents, err = getEnvInt64("PRICE_TOLERANCE_CENTS", 1); err != nil {
		return nil, err
	}
	if cfg.MaxSharesPerTeam, err = getEnvInt64("MAX_SHARES_PER_TEAM", 0); err != nil {
		return nil, err
	}
	if cfg.MaxTotalInvestedCents, err = getEnvInt64("MAX_TOTAL_INVESTED_CENTS", 0); err != nil {
		return nil, err
	}

	rate := getEnv("MATCH_TRANSFER_RATE", "0.10")
	cfg.TransferRate, err = decimal.NewFromString(rate)
	if err != nil {
		return nil, fmt.Errorf("config: invalid MATCH_TRANSFER_RATE %q: %w", rate, err)
	}

	if cfg.FixturePollInterval, err = getEnvDuration("FIXTURE_POLL_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.TxTimeout, err = getEnvDuration("SETTLEMENT_TX_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
