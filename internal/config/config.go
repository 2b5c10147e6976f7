package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Config holds the application configuration.
type Config struct {
	ServerPort  int    `env:"PORT" envDefault:"3001"`
	Environment string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	StoreDriver   string        `env:"STORE_DRIVER" envDefault:"sqlite"`
	DatabasePath  string        `env:"DATABASE_PATH" envDefault:"./carlist.db"`
	MongoURI      string        `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string        `env:"MONGODB_DATABASE" envDefault:"carlist"`
	MongoTimeout  time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`

	JWTSecret          string `env:"JWT_SECRET"`
	TokenExpirySeconds int    `env:"TOKEN_EXPIRY_SECONDS" envDefault:"360000"`
	BcryptCost         int    `env:"BCRYPT_COST" envDefault:"7"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	AuthRateLimit   int           `env:"RATE_LIMIT_AUTH" envDefault:"20"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	RedisURL        string        `env:"REDIS_URL"`

	NATSURL string `env:"NATS_URL"`

	EventRetentionCron string `env:"EVENT_RETENTION_CRON" envDefault:"0 3 * * *"`
	EventRetentionDays int    `env:"EVENT_RETENTION_DAYS" envDefault:"30"`
}

// Load reads an optional .env file, then parses the environment into a Config.
// Variables already present in the environment win over the file.
func Load() (Config, error) {
	envFile := ".env"
	if path, ok := os.LookupEnv("ENV_FILE"); ok {
		envFile = path
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail later at request time.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TokenExpirySeconds <= 0 {
		return fmt.Errorf("TOKEN_EXPIRY_SECONDS must be positive, got %d", c.TokenExpirySeconds)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	switch c.StoreDriver {
	case DriverSQLite:
		if c.DatabasePath == "" {
			return errors.New("DATABASE_PATH is required for the sqlite driver")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI is required for the mongo driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.EventRetentionDays <= 0 {
		return fmt.Errorf("EVENT_RETENTION_DAYS must be positive, got %d", c.EventRetentionDays)
	}
	return nil
}

// TokenTTL is the lifetime of issued bearer tokens.
func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenExpirySeconds) * time.Second
}

// EventRetention is how long activity events are kept.
func (c Config) EventRetention() time.Duration {
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}
