package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mcoot/treason-stats/internal/config"
	"github.com/mcoot/treason-stats/internal/dependencies/random"
	"github.com/mcoot/treason-stats/internal/services/identity"
	"github.com/mcoot/treason-stats/internal/services/ranking"
	"github.com/mcoot/treason-stats/internal/services/readiness"
	"github.com/mcoot/treason-stats/internal/services/recorder"
	"github.com/mcoot/treason-stats/internal/storage"
	"github.com/mcoot/treason-stats/internal/storage/memory"
	"github.com/mcoot/treason-stats/internal/storage/postgres"
	redisstorage "github.com/mcoot/treason-stats/internal/storage/redis"
	"github.com/mcoot/treason-stats/internal/storage/sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.DocumentStore
	// StorageType names the backend behind Storage
	StorageType string

	// External dependencies
	Random random.Random

	// Services
	Gate            *readiness.Gate
	IdentityService *identity.Service
	RecorderService *recorder.Service
	RankingService  *ranking.Service

	closer io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis", "sqlite" or "postgres")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the database file (required if StorageType is "sqlite")
	SQLitePath string
	// PostgresConfig holds PostgreSQL settings (required if StorageType is "postgres")
	PostgresConfig *postgres.Config
	// IdentityConfig configures player registration (optional)
	IdentityConfig identity.Config
	// RankingConfig configures leaderboard aggregation (optional)
	RankingConfig ranking.Config
}

// FromEnv builds a factory Config from parsed environment settings
func FromEnv(env config.Config, logger *slog.Logger) Config {
	cfg := Config{
		Logger:         logger,
		StorageType:    env.StorageType,
		SQLitePath:     env.SQLitePath,
		IdentityConfig: identity.Config{RenameTimeout: env.RenameTimeout},
		RankingConfig:  ranking.DefaultConfig(),
	}
	if env.StorageType == config.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = env.RedisURL
		redisCfg.Database = env.DatabaseName
		cfg.RedisConfig = &redisCfg
	}
	if env.StorageType == config.StorageTypePostgres {
		cfg.PostgresConfig = &postgres.Config{URL: env.PostgresURL, Schema: env.DatabaseName}
	}
	return cfg
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	storageType := cfg.StorageType
	if storageType == "" {
		storageType = config.StorageTypeMemory
	}

	var (
		store  storage.DocumentStore
		closer io.Closer
	)
	switch storageType {
	case config.StorageTypeMemory:
		store = memory.New()
	case config.StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store, closer = redisStore, redisStore
	case config.StorageTypeSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLitePath required when StorageType is sqlite")
		}
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		sqliteStore, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store, closer = sqliteStore, sqliteStore
	case config.StorageTypePostgres:
		if cfg.PostgresConfig == nil {
			return nil, errors.New("PostgresConfig required when StorageType is postgres")
		}
		pgStore, err := postgres.Open(*cfg.PostgresConfig)
		if err != nil {
			return nil, err
		}
		store, closer = pgStore, pgStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis', 'sqlite' or 'postgres'")
	}

	app := newWithDependencies(store, random.New(), cfg.IdentityConfig, cfg.RankingConfig, logger)
	app.StorageType = storageType
	app.closer = closer
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.DocumentStore, rnd random.Random, identityCfg identity.Config, rankingCfg ranking.Config, logger *slog.Logger) *App {
	gate := readiness.New(store, logger)

	return &App{
		Storage:         store,
		StorageType:     config.StorageTypeMemory,
		Random:          rnd,
		Gate:            gate,
		IdentityService: identity.New(store, gate, rnd, identityCfg, logger),
		RecorderService: recorder.New(store, gate, logger),
		RankingService:  ranking.New(store, gate, rankingCfg, logger),
	}
}

// Close releases the storage backend's connections
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
