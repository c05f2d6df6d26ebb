// Package config reads server settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage type constants
const (
	StorageTypeMemory   = "memory"
	StorageTypeRedis    = "redis"
	StorageTypeSQLite   = "sqlite"
	StorageTypePostgres = "postgres"
)

// Config holds server configuration
type Config struct {
	StorageType  string `env:"STORAGE_TYPE" envDefault:"memory"`
	RedisURL     string `env:"REDIS_URL"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"data/treason.db"`
	PostgresURL  string `env:"POSTGRES_URL"`
	DatabaseName string `env:"DATABASE_NAME" envDefault:"treason_db"`

	HTTPHost string `env:"HTTP_HOST"`
	HTTPPort int    `env:"HTTP_PORT" envDefault:"8080"`

	LogLevel      string        `env:"LOG_LEVEL" envDefault:"info"`
	RenameTimeout time.Duration `env:"RENAME_TIMEOUT" envDefault:"10s"`
}

// Load reads configuration from the process environment. Variables from
// the given dotenv files (default ".env") are applied first without
// overriding anything already set; missing files are ignored.
func Load(dotenvFiles ...string) (Config, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// FromMap reads configuration from vars instead of the process environment
func FromMap(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that the selected storage backend is fully configured
func (c Config) Validate() error {
	switch c.StorageType {
	case StorageTypeMemory:
	case StorageTypeRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
	case StorageTypeSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH required when STORAGE_TYPE=sqlite")
		}
	case StorageTypePostgres:
		if c.PostgresURL == "" {
			return errors.New("POSTGRES_URL required when STORAGE_TYPE=postgres")
		}
	default:
		return fmt.Errorf("invalid STORAGE_TYPE %q: must be one of memory, redis, sqlite, postgres", c.StorageType)
	}

	if c.DatabaseName == "" {
		return errors.New("DATABASE_NAME must not be empty")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %d", c.HTTPPort)
	}
	if c.RenameTimeout <= 0 {
		return errors.New("RENAME_TIMEOUT must be positive")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Addr is the address the HTTP server listens on
func (c Config) Addr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

// Level parses LogLevel
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	return level, nil
}
