package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), "", "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.True(t, cfg.AutoStart)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 64, cfg.OutboxSize)
	assert.Empty(t, cfg.AllowedOrigins)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("BINGO_HTTP_ADDR", ":9999")
	t.Setenv("BINGO_AUTO_START", "false")
	t.Setenv("BINGO_STORE_TIMEOUT", "250ms")
	t.Setenv("BINGO_ALLOWED_ORIGINS", "a.example.com, b.example.com")
	t.Setenv("BINGO_STORE", "sqlite")

	cfg, err := Load(viper.New(), "", "")
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.HTTPAddr)
	assert.False(t, cfg.AutoStart)
	assert.Equal(t, 250*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, StoreSQLite, cfg.Store)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BINGO_RATE_BURST=7\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("BINGO_RATE_BURST") })

	cfg, err := Load(viper.New(), path, "")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.RateBurst)
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.env"), "")
	assert.NoError(t, err)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bingo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: postgres\npostgres_url: postgres://bingo@localhost/bingo\n"), 0o600))

	cfg, err := Load(viper.New(), "", path)
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, "postgres://bingo@localhost/bingo", cfg.PostgresURL)
}

func TestLoad_FlagsWin(t *testing.T) {
	t.Setenv("BINGO_LOG_LEVEL", "warn")
	v := viper.New()
	v.Set(LogLevelKey, "debug")

	cfg, err := Load(v, "", "")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		v := viper.New()
		SetDefaults(v)
		var c Config
		require.NoError(t, v.Unmarshal(&c))
		return c
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Store = "redis" }},
		{"postgres without url", func(c *Config) { c.Store = StorePostgres }},
		{"sqlite without path", func(c *Config) { c.Store = StoreSQLite; c.SQLitePath = "" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"no rate", func(c *Config) { c.RateLimit = 0 }},
		{"no outbox", func(c *Config) { c.OutboxSize = 0 }},
		{"no timeout", func(c *Config) { c.StoreTimeout = 0 }},
		{"no http addr", func(c *Config) { c.HTTPAddr = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
