package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL,  default=24h"`
	// InitialCash is decoded through decimal.Decimal's TextUnmarshaler.
	InitialCash decimal.Decimal `env:"INITIAL_CASH, default=10000.00"`

	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Quote    QuoteConfig
	Activity ActivityConfig
}

type DatabaseConfig struct {
	Driver      string `env:"DB_DRIVER,    default=sqlite"`
	URL         string `env:"DATABASE_URL, default=file:simulator.db?_pragma=busy_timeout(5000)&_txlock=immediate"`
	AutoMigrate bool   `env:"AUTO_MIGRATE, default=true"`
}

type MongoConfig struct {
	// URI empty disables the activity log.
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=trading_simulator"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type QuoteConfig struct {
	Provider string        `env:"QUOTE_PROVIDER, default=iex"`
	APIKey   string        `env:"API_KEY"`
	BaseURL  string        `env:"QUOTE_BASE_URL"`
	Timeout  time.Duration `env:"QUOTE_TIMEOUT,  default=5s"`

	AlpacaKeyID   string `env:"APCA_API_KEY_ID"`
	AlpacaSecret  string `env:"APCA_API_SECRET_KEY"`
	AlpacaDataURL string `env:"APCA_DATA_URL"`
	AlpacaBaseURL string `env:"APCA_BASE_URL"`
}

type ActivityConfig struct {
	Workers int `env:"ACTIVITY_WORKERS, default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// Validate reports settings the server cannot start without. Quote
// credentials are checked here so a missing key fails at startup rather
// than on the first lookup.
func (c *Config) Validate() error {
	var errs []error
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	switch strings.ToLower(c.Quote.Provider) {
	case "iex":
		if c.Quote.APIKey == "" {
			errs = append(errs, errors.New("API_KEY is required for the iex quote provider"))
		}
	case "alpaca":
		if c.Quote.AlpacaKeyID == "" || c.Quote.AlpacaSecret == "" {
			errs = append(errs, errors.New("APCA_API_KEY_ID and APCA_API_SECRET_KEY are required for the alpaca quote provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("QUOTE_PROVIDER %q is not one of iex, alpaca", c.Quote.Provider))
	}
	if c.InitialCash.IsNegative() {
		errs = append(errs, errors.New("INITIAL_CASH must not be negative"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether human-friendly logging should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
