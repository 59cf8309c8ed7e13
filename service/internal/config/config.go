// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the service configuration read from the environment.
type Config struct {
	HTTPAddr        string        `env:"AVALON_HTTP_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"AVALON_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	DBDialect   string `env:"DB_DIALECT" envDefault:"sqlite"`
	SQLitePath  string `env:"DB_SQLITE_PATH" envDefault:"tmp/avalon.sqlite"`
	PostgresDSN string `env:"DB_POSTGRES_DSN"`

	RedisAddr     string `env:"REDIS_ADDR"` // Empty disables the action log.
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	MaxWriteRetries    int  `env:"AVALON_MAX_WRITE_RETRIES" envDefault:"5"`
	EnforceGoodSuccess bool `env:"AVALON_ENFORCE_GOOD_SUCCESS" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads an optional .env file from envFile (ignored when missing),
// then parses and validates Config.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	c.DBDialect = strings.ToLower(strings.TrimSpace(c.DBDialect))
	switch c.DBDialect {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("DB_DIALECT=postgres requires DB_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unsupported DB_DIALECT %q", c.DBDialect)
	}
	if c.MaxWriteRetries < 1 {
		return fmt.Errorf("AVALON_MAX_WRITE_RETRIES must be at least 1, got %d", c.MaxWriteRetries)
	}
	return nil
}
