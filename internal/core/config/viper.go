package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FQL_SERVER_PORT.
const EnvPrefix = "FQL"

// LoadConfig reads configuration with precedence env > config file > defaults.
// CLI flags are applied by the caller on top of the result.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MaxRecvBytes:   v.GetInt("server.max_recv_bytes"),
		},
		Cache: CacheConfig{
			Size: v.GetInt("cache.size"),
		},
		Dispatch: DispatchConfig{
			Destination: v.GetString("dispatch.destination"),
			Concurrency: v.GetInt("dispatch.concurrency"),
		},
		Store: StoreConfig{
			URL: v.GetString("store.url"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.max_recv_bytes", d.Server.MaxRecvBytes)
	v.SetDefault("cache.size", d.Cache.Size)
	v.SetDefault("dispatch.destination", d.Dispatch.Destination)
	v.SetDefault("dispatch.concurrency", d.Dispatch.Concurrency)
	v.SetDefault("store.url", d.Store.URL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Validate checks ranges and enumerations. It is exported so callers can
// re-check after applying flag overrides.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("server.request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Server.MaxRecvBytes <= 0 {
		return fmt.Errorf("server.max_recv_bytes must be positive, got %d", cfg.Server.MaxRecvBytes)
	}
	if cfg.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive, got %d", cfg.Cache.Size)
	}
	if cfg.Dispatch.Concurrency <= 0 {
		return fmt.Errorf("dispatch.concurrency must be positive, got %d", cfg.Dispatch.Concurrency)
	}
	switch cfg.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", cfg.Log.Format)
	}
	return nil
}
