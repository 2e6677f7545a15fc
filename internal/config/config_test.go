package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.App.Port)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "https://api.binance.com", cfg.Quote.BinanceURL)
	assert.Equal(t, 5*time.Second, cfg.Quote.Timeout)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 50, cfg.Logs.Limit)
	assert.True(t, cfg.Database.Migrate)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", ":9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("QUOTE_TIMEOUT", "250ms")
	t.Setenv("LOGS_LIMIT", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.App.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, 250*time.Millisecond, cfg.Quote.Timeout)
	assert.Equal(t, 10, cfg.Logs.Limit)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Store:    StoreConfig{Driver: DriverPostgres},
			Database: DatabaseConfig{URL: "postgres://x"},
			Quote:    QuoteConfig{Timeout: time.Second},
			Logs:     LogsConfig{Limit: 50},
		}
	}

	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{name: "Valid", mutate: func(c *Config) {}},
		{name: "MemoryWithoutURL", mutate: func(c *Config) { c.Store.Driver = DriverMemory; c.Database.URL = "" }},
		{name: "PostgresWithoutURL", mutate: func(c *Config) { c.Database.URL = "" }, expectError: true},
		{name: "UnknownDriver", mutate: func(c *Config) { c.Store.Driver = "sqlite" }, expectError: true},
		{name: "ZeroTimeout", mutate: func(c *Config) { c.Quote.Timeout = 0 }, expectError: true},
		{name: "ZeroLimit", mutate: func(c *Config) { c.Logs.Limit = 0 }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
