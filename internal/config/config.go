package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration read from the environment.
type Config struct {
	DatabaseURL     string        `env:"DATABASE_URL"`
	HTTPAddr        string        `env:"HTTP_ADDR" envDefault:":8080"`
	JWTSecret       string        `env:"AUTH_JWT_SECRET"`
	JWTIssuer       string        `env:"AUTH_JWT_ISSUER"`
	JWTAudience     string        `env:"AUTH_JWT_AUDIENCE"`
	MigrationsPath  string        `env:"MIGRATIONS_PATH" envDefault:"internal/migrations"`
	ModelsPath      string        `env:"GORM_MODELS_PATH" envDefault:"internal/models"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	OTelEndpoint    string        `env:"OTEL_ENDPOINT"`
	DBMaxOpenConns  int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// RequireDatabase reports an error when no database is configured.
func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	return nil
}

// RequireAuth reports an error when session tokens cannot be verified.
func (c Config) RequireAuth() error {
	if c.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET environment variable is required")
	}
	return nil
}
