package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "static", cfg.MarketData.Provider)
	assert.Equal(t, 25.0, cfg.Underwriting.DownPaymentPercent)
	assert.Equal(t, 6.5, cfg.Underwriting.InterestRate)
	assert.Equal(t, 30, cfg.Underwriting.LoanTermYears)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
server:
  addr: ":9000"
  read_timeout: 5s
storage:
  driver: sqlite
  sqlite_path: /tmp/deals.db
cache:
  ttl: 2m
underwriting:
  interest_rate: 7.25
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/deals")
	t.Setenv("RATE_LIMIT_RPM", "120")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/deals", cfg.Storage.PostgresURL)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 7.25, cfg.Underwriting.InterestRate)
	assert.Equal(t, 120, cfg.RateLimit.RequestsPerMinute)
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown storage", func(c *Config) { c.Storage.Driver = "mongo" }},
		{"postgres without url", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"unknown cache", func(c *Config) { c.Cache.Driver = "memcached" }},
		{"http provider without url", func(c *Config) { c.MarketData.Provider = "http" }},
		{"down payment above 100", func(c *Config) { c.Underwriting.DownPaymentPercent = 120 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
