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

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "izposoja.sqlite3", cfg.DBPath)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 168*time.Hour, cfg.TokenTTL)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes)
	assert.Empty(t, cfg.JWTSecret)
}

func TestLoadEnvAndDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"IZPOSOJA_DB_PATH=/var/lib/izposoja/data.sqlite3\nIZPOSOJA_ADDR=:9000\nIZPOSOJA_LOG_LEVEL=debug\n",
	), 0o600))

	// Real environment beats the file.
	t.Setenv("IZPOSOJA_ADDR", "127.0.0.1:7000")
	t.Setenv("IZPOSOJA_TOKEN_TTL", "12h")
	t.Cleanup(func() {
		os.Unsetenv("IZPOSOJA_DB_PATH")
		os.Unsetenv("IZPOSOJA_LOG_LEVEL")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr)
	assert.Equal(t, "/var/lib/izposoja/data.sqlite3", cfg.DBPath)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("unparsable", func(t *testing.T) {
		t.Setenv("IZPOSOJA_TOKEN_TTL", "a week")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("non-positive", func(t *testing.T) {
		t.Setenv("IZPOSOJA_MAX_UPLOAD_BYTES", "0")
		_, err := Load()
		assert.Error(t, err)
	})
}
