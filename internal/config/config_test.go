package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromMap(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, StorageTypeMemory, cfg.StorageType)
	assert.Equal(t, "treason_db", cfg.DatabaseName)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 10*time.Second, cfg.RenameTimeout)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestOverrides(t *testing.T) {
	cfg, err := FromMap(map[string]string{
		"STORAGE_TYPE":   "redis",
		"REDIS_URL":      "redis://cache:6379/1",
		"DATABASE_NAME":  "stats",
		"HTTP_HOST":      "127.0.0.1",
		"HTTP_PORT":      "9000",
		"LOG_LEVEL":      "debug",
		"RENAME_TIMEOUT": "250ms",
	})
	require.NoError(t, err)

	assert.Equal(t, StorageTypeRedis, cfg.StorageType)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, "stats", cfg.DatabaseName)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, 250*time.Millisecond, cfg.RenameTimeout)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestPostgres(t *testing.T) {
	cfg, err := FromMap(map[string]string{
		"STORAGE_TYPE": "postgres",
		"POSTGRES_URL": "postgres://treason@db/treason?sslmode=disable",
	})
	require.NoError(t, err)

	assert.Equal(t, StorageTypePostgres, cfg.StorageType)
	assert.Equal(t, "postgres://treason@db/treason?sslmode=disable", cfg.PostgresURL)
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"unknown storage", map[string]string{"STORAGE_TYPE": "couch"}},
		{"redis without url", map[string]string{"STORAGE_TYPE": "redis"}},
		{"postgres without url", map[string]string{"STORAGE_TYPE": "postgres"}},
		{"port out of range", map[string]string{"HTTP_PORT": "70000"}},
		{"port not a number", map[string]string{"HTTP_PORT": "http"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"bad timeout", map[string]string{"RENAME_TIMEOUT": "soon"}},
		{"zero timeout", map[string]string{"RENAME_TIMEOUT": "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.vars)
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("STORAGE_TYPE=sqlite\nSQLITE_PATH=/tmp/stats.db\n"), 0o600))
	for _, key := range []string{"STORAGE_TYPE", "SQLITE_PATH"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("HTTP_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StorageTypeSQLite, cfg.StorageType)
	assert.Equal(t, "/tmp/stats.db", cfg.SQLitePath)
	assert.Equal(t, 9100, cfg.HTTPPort)
}

func TestLoadIgnoresMissingDotenv(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "memory")

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}
