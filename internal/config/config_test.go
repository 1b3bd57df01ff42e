package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:  8080,
		Store: StoreConfig{Driver: DriverMemory},
		Auth: AuthConfig{
			JWTSecret:      "0123456789abcdef",
			TokenTTL:       time.Hour,
			SweepInterval:  time.Minute,
			BcryptCost:     12,
			LoginRateLimit: 10,
			LoginRateBurst: 5,
		},
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "data/kanban.db", cfg.Store.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "kanban", cfg.Auth.TokenIssuer)
	assert.Equal(t, 10*time.Minute, cfg.Auth.SweepInterval)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("WS_ALLOWED_ORIGINS", "example.com,*.example.org")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"example.com", "*.example.org"}, cfg.AllowedOrigins)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("port: 7070\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad driver", func(c *Config) { c.Store.Driver = "postgres" }, "STORE_DRIVER"},
		{"sqlite without path", func(c *Config) { c.Store.Driver = DriverSQLite }, "DB_PATH"},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "JWT_SECRET"},
		{"zero ttl", func(c *Config) { c.Auth.TokenTTL = 0 }, "TOKEN_TTL"},
		{"negative sweep", func(c *Config) { c.Auth.SweepInterval = -time.Second }, "REVOCATION_SWEEP_INTERVAL"},
		{"bcrypt cost", func(c *Config) { c.Auth.BcryptCost = 40 }, "BCRYPT_COST"},
		{"bad port", func(c *Config) { c.Port = 0 }, "PORT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
