// Package config loads settings for the fql command and its services.
package config

import "time"

// Config is the full runtime configuration.
type Config struct {
	Server   ServerConfig
	Cache    CacheConfig
	Dispatch DispatchConfig
	Store    StoreConfig
	Log      LogConfig
}

// ServerConfig holds the gRPC subscription service settings.
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	MaxRecvBytes   int
}

// CacheConfig sizes the parsed-subscription LRU.
type CacheConfig struct {
	Size int
}

// DispatchConfig names the destination whose subscriptions are dispatched.
type DispatchConfig struct {
	Destination string
	// Concurrency bounds subscriptions evaluated in parallel per event.
	Concurrency int
}

// StoreConfig locates the subscription store (sqlite:// or postgres://).
type StoreConfig struct {
	URL string
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string
	Format string
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50051,
			RequestTimeout: 5 * time.Second,
			MaxRecvBytes:   4 << 20,
		},
		Cache:    CacheConfig{Size: 1024},
		Dispatch: DispatchConfig{Destination: "default", Concurrency: 8},
		Store:    StoreConfig{URL: "sqlite://fql.db"},
		Log:      LogConfig{Level: "info", Format: "json"},
	}
}
