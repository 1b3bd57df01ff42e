// Package config loads server settings from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// MinSecretLength is the shortest JWT secret accepted.
const MinSecretLength = 16

type Config struct {
	Port  int `env:"PORT" env-default:"8080" yaml:"port"`
	Store StoreConfig
	Auth  AuthConfig
	Log   LogConfig
	// AllowedOrigins are host patterns accepted on the websocket handshake
	// in addition to the request's own host.
	AllowedOrigins []string `env:"WS_ALLOWED_ORIGINS" env-separator:"," yaml:"allowed_origins"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER" env-default:"memory" yaml:"driver"`
	DBPath string `env:"DB_PATH" env-default:"data/kanban.db" yaml:"db_path"`
}

type AuthConfig struct {
	JWTSecret     string        `env:"JWT_SECRET" env-required:"true" yaml:"jwt_secret"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" env-default:"24h" yaml:"token_ttl"`
	TokenIssuer   string        `env:"TOKEN_ISSUER" env-default:"kanban" yaml:"token_issuer"`
	SweepInterval time.Duration `env:"REVOCATION_SWEEP_INTERVAL" env-default:"10m" yaml:"sweep_interval"`
	BcryptCost    int           `env:"BCRYPT_COST" env-default:"12" yaml:"bcrypt_cost"`
	// LoginRateLimit is the number of login/register attempts allowed per
	// client IP per minute.
	LoginRateLimit int `env:"LOGIN_RATE_LIMIT" env-default:"10" yaml:"login_rate_limit"`
	LoginRateBurst int `env:"LOGIN_RATE_BURST" env-default:"5" yaml:"login_rate_burst"`
}

type LogConfig struct {
	Level  string `env:"LOG_LEVEL" env-default:"info" yaml:"level"`
	Format string `env:"LOG_FORMAT" env-default:"text" yaml:"format"`
}

// Load reads the config file at path, if given, then the environment.
// Environment variables win over file values.
func Load(path string) (*Config, error) {
	cfg := new(Config)

	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port))
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Store.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverMemory, DriverSQLite, c.Store.Driver))
	}
	if len(c.Auth.JWTSecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", MinSecretLength))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.Auth.SweepInterval <= 0 {
		errs = append(errs, errors.New("REVOCATION_SWEEP_INTERVAL must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}
	if c.Auth.LoginRateLimit <= 0 || c.Auth.LoginRateBurst <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_BURST must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
