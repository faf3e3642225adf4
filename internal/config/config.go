// Package config loads server settings from IZPOSOJA_* environment variables,
// optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable name.
const Prefix = "IZPOSOJA_"

// Config holds the server settings.
type Config struct {
	Addr     string     `env:"ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"izposoja.sqlite3"`
	LogPath  string     `env:"LOG_PATH"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// JWTSecret signs session tokens. When empty, a secret is generated
	// once and kept in the database.
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"168h"`

	// First-run admin account.
	AdminEmail string `env:"ADMIN_EMAIL" envDefault:"admin@izposoja.local"`
	AdminName  string `env:"ADMIN_NAME" envDefault:"Admin"`

	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// Load reads the given .env files (missing files are skipped) and parses the
// environment into a Config. Variables already set in the environment win
// over .env values.
func Load(dotenv ...string) (*Config, error) {
	for _, path := range dotenv {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: Prefix}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable zero value.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return errors.New("listen address is required")
	case c.DBPath == "":
		return errors.New("database path is required")
	case c.TokenTTL <= 0:
		return fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("max upload size must be positive, got %d", c.MaxUploadBytes)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout)
	}
	return nil
}
