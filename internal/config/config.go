// Package config binds the environment variables of spec.md §6 ("Environment")
// to a typed struct using caarlos0/env, the way taibuivan-yomira loads its
// service config.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the full set of environment options recognized by every
// cmd/ingestd command.
type Config struct {
	StoreBaseURL string `env:"STORE_BASE_URL,required"`
	StoreAPIKey  string `env:"STORE_API_KEY"`
	MetaBaseURL  string `env:"META_BASE_URL,required"`
	MetaAPIKey   string `env:"META_API_KEY,required"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"5432"`
	DBDatabase string `env:"DB_DATABASE,required"`
	DBUser     string `env:"DB_USER,required"`
	DBPassword string `env:"DB_PASSWORD"`
	DBSSLMode  string `env:"DB_SSL" envDefault:"disable"`

	StoreRateLimitN         int `env:"STORE_RATE_LIMIT_N" envDefault:"200"`
	StoreRateLimitWindowMs  int `env:"STORE_RATE_LIMIT_WINDOW_MS" envDefault:"310000"`
	MetaRateLimitN          int `env:"META_RATE_LIMIT_N" envDefault:"200"`
	MetaRateLimitWindowMs   int `env:"META_RATE_LIMIT_WINDOW_MS" envDefault:"310000"`

	BatchConcurrency int `env:"BATCH_CONCURRENCY" envDefault:"4"`
	FetchBatchSize   int `env:"FETCH_BATCH_SIZE" envDefault:"1000"`
	SaveBatchSize    int `env:"SAVE_BATCH_SIZE" envDefault:"1000"`

	LogBaseDir string `env:"LOG_BASE_DIR" envDefault:"./logs"`
}

// Load parses Config from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// DSN builds a libpq-style connection string from the DB_* fields, the
// format github.com/jackc/pgx/v5/pgxpool.ParseConfig expects.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBDatabase, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}
