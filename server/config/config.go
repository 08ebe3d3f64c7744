package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	HTTPAddrKey       = "http_addr"
	GRPCAddrKey       = "grpc_addr"
	LogLevelKey       = "log_level"
	LogFormatKey      = "log_format"
	StoreKey          = "store"
	SQLitePathKey     = "sqlite_path"
	PostgresURLKey    = "postgres_url"
	AutoStartKey      = "auto_start"
	RateLimitKey      = "rate_limit"
	RateBurstKey      = "rate_burst"
	OutboxSizeKey     = "outbox_size"
	StoreTimeoutKey   = "store_timeout"
	AllowedOriginsKey = "allowed_origins"

	EnvPrefix = "BINGO"
)

const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

type Config struct {
	HTTPAddr       string        `mapstructure:"http_addr"`
	GRPCAddr       string        `mapstructure:"grpc_addr"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFormat      string        `mapstructure:"log_format"`
	Store          string        `mapstructure:"store"`
	SQLitePath     string        `mapstructure:"sqlite_path"`
	PostgresURL    string        `mapstructure:"postgres_url"`
	AutoStart      bool          `mapstructure:"auto_start"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
	OutboxSize     int           `mapstructure:"outbox_size"`
	StoreTimeout   time.Duration `mapstructure:"store_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(HTTPAddrKey, ":8080")
	v.SetDefault(GRPCAddrKey, ":50051")
	v.SetDefault(LogLevelKey, "info")
	v.SetDefault(LogFormatKey, "json")
	v.SetDefault(StoreKey, StoreMemory)
	v.SetDefault(SQLitePathKey, "./bingo.db")
	v.SetDefault(PostgresURLKey, "")
	v.SetDefault(AutoStartKey, true)
	v.SetDefault(RateLimitKey, 20.0)
	v.SetDefault(RateBurstKey, 40)
	v.SetDefault(OutboxSizeKey, 64)
	v.SetDefault(StoreTimeoutKey, 3*time.Second)
	v.SetDefault(AllowedOriginsKey, []string{})
}

// Load resolves the configuration from flags already bound to v, BINGO_* environment
// variables, an optional .env file and an optional config file, in that order of precedence.
func Load(v *viper.Viper, envFile, configFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("%s must not be empty", HTTPAddrKey)
	}
	if !slices.Contains([]string{StoreMemory, StoreSQLite, StorePostgres}, c.Store) {
		return fmt.Errorf("unknown %s %q", StoreKey, c.Store)
	}
	if c.Store == StoreSQLite && c.SQLitePath == "" {
		return fmt.Errorf("%s is required for the sqlite store", SQLitePathKey)
	}
	if c.Store == StorePostgres && c.PostgresURL == "" {
		return fmt.Errorf("%s is required for the postgres store", PostgresURLKey)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("unknown %s %q", LogFormatKey, c.LogFormat)
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("%s and %s must be positive", RateLimitKey, RateBurstKey)
	}
	if c.OutboxSize <= 0 {
		return fmt.Errorf("%s must be positive", OutboxSizeKey)
	}
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("%s must be positive", StoreTimeoutKey)
	}
	return nil
}

// splitList accepts both repeated values and a single comma separated value.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
