package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Log       LogConfig        `mapstructure:"log"`
	Storage   StorageConfig    `mapstructure:"storage"`
	Redis     RedisConfig      `mapstructure:"redis"`
	Failover  FailoverConfig   `mapstructure:"failover"`
	Quota     QuotaConfig      `mapstructure:"quota"`
	Tracing   TracingConfig    `mapstructure:"tracing"`
	Providers []ProviderConfig `mapstructure:"providers"`
}

type ServerConfig struct {
	Port      string          `mapstructure:"port"`
	Env       string          `mapstructure:"env"`
	APIKeys   []string        `mapstructure:"api_keys"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig selects the key-value backend holding quota state.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // memory, sqlite, redis
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type FailoverConfig struct {
	CooldownWindow  time.Duration `mapstructure:"cooldown_window"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	PollMaxAttempts int           `mapstructure:"poll_max_attempts"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

type QuotaConfig struct {
	DailyLimit int    `mapstructure:"daily_limit"`
	Timezone   string `mapstructure:"timezone"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// ProviderConfig is one entry of the ordered provider list. Order is priority.
type ProviderConfig struct {
	ID         string            `json:"id" mapstructure:"id" validate:"required"`
	Type       string            `json:"type" mapstructure:"type" validate:"required,oneof=chat inference replicate"`
	Name       string            `json:"name" mapstructure:"name"`
	APIKey     string            `json:"-" mapstructure:"api_key"`
	APIKeyEnv  string            `json:"api_key_env" mapstructure:"api_key_env"`
	Endpoint   string            `json:"endpoint" mapstructure:"endpoint" validate:"required,url"`
	Model      string            `json:"model" mapstructure:"model" validate:"required"`
	AuthScheme string            `json:"auth_scheme" mapstructure:"auth_scheme" validate:"omitempty,oneof=Bearer Token"`
	Headers    map[string]string `json:"headers" mapstructure:"headers"`
	Config     map[string]string `json:"config" mapstructure:"config"`
	Disabled   bool              `json:"disabled" mapstructure:"disabled"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.api_keys", []string{})
	v.SetDefault("server.rate_limit.requests_per_second", 10.0)
	v.SetDefault("server.rate_limit.burst", 20)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "file:prism-copy.db?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("failover.cooldown_window", 5*time.Minute)
	v.SetDefault("failover.poll_interval", time.Second)
	v.SetDefault("failover.poll_max_attempts", 60)
	v.SetDefault("failover.request_timeout", 60*time.Second)
	v.SetDefault("quota.daily_limit", 20)
	v.SetDefault("quota.timezone", "Local")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "prism-copy")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if len(cfg.Providers) == 0 {
		cfg.Providers = DefaultProviders()
	}

	ResolveAPIKeys(cfg.Providers, func(name string) string {
		if val := os.Getenv(name); val != "" {
			return val
		}
		return v.GetString(name)
	})

	return &cfg, nil
}

// ResolveAPIKeys fills each provider's APIKey from the environment. An
// "ENV:NAME" key is replaced by the value of NAME; an empty key falls back
// to APIKeyEnv.
func ResolveAPIKeys(providers []ProviderConfig, lookup func(string) string) {
	for i, p := range providers {
		switch {
		case strings.HasPrefix(p.APIKey, "ENV:"):
			providers[i].APIKey = lookup(strings.TrimPrefix(p.APIKey, "ENV:"))
		case p.APIKey == "" && p.APIKeyEnv != "":
			providers[i].APIKey = lookup(p.APIKeyEnv)
		}
	}
}
