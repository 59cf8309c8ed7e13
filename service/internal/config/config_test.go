// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"AVALON_HTTP_ADDR", "AVALON_SHUTDOWN_TIMEOUT", "DB_DIALECT", "DB_SQLITE_PATH",
		"DB_POSTGRES_DSN", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "LOG_LEVEL",
		"LOG_FORMAT", "AVALON_MAX_WRITE_RETRIES", "AVALON_ENFORCE_GOOD_SUCCESS",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.DBDialect)
	assert.Equal(t, "tmp/avalon.sqlite", cfg.SQLitePath)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5, cfg.MaxWriteRetries)
	assert.True(t, cfg.EnforceGoodSuccess)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("AVALON_HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("DB_DIALECT", "Postgres")
	t.Setenv("DB_POSTGRES_DSN", "postgres://avalon@localhost/avalon")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("AVALON_MAX_WRITE_RETRIES", "9")
	t.Setenv("AVALON_ENFORCE_GOOD_SUCCESS", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPAddr)
	assert.Equal(t, "postgres", cfg.DBDialect)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 9, cfg.MaxWriteRetries)
	assert.False(t, cfg.EnforceGoodSuccess)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"postgres without dsn", map[string]string{"DB_DIALECT": "postgres"}, "requires DB_POSTGRES_DSN"},
		{"unknown dialect", map[string]string{"DB_DIALECT": "oracle"}, "unsupported DB_DIALECT"},
		{"zero retries", map[string]string{"AVALON_MAX_WRITE_RETRIES": "0"}, "at least 1"},
		{"bad int", map[string]string{"REDIS_DB": "two"}, "parse env"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("AVALON_HTTP_ADDR=:7070\nLOG_LEVEL=debug\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("AVALON_HTTP_ADDR")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)

	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err, "missing .env is ignored")
}
