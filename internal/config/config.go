// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package config

import (
	"time"

	"github.com/tomtom215/fishbone/internal/api"
	"github.com/tomtom215/fishbone/internal/loader"
	"github.com/tomtom215/fishbone/internal/logging"
	"github.com/tomtom215/fishbone/internal/resilience"
	"github.com/tomtom215/fishbone/internal/store"
)

// Config holds all application configuration
type Config struct {
	Cache    CacheConfig    `koanf:"cache"`
	Retry    RetryConfig    `koanf:"retry"`
	Loader   LoaderConfig   `koanf:"loader"`
	Database DatabaseConfig `koanf:"database"`
	Store    StoreConfig    `koanf:"store"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// CacheConfig sizes the bounded cache shared by the loaders.
type CacheConfig struct {
	TTL      time.Duration `koanf:"ttl"`
	Capacity int           `koanf:"capacity"`
}

// RetryConfig controls the resilient executor.
type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	BaseDelay   time.Duration `koanf:"base_delay"`
	MaxDelay    time.Duration `koanf:"max_delay"`

	// Strategy is "linear" or "exponential".
	Strategy string `koanf:"strategy"`
}

// LoaderConfig holds selection and pagination settings.
type LoaderConfig struct {
	// Debounce is the quiet period before a client selection is applied.
	Debounce time.Duration `koanf:"debounce"`
	PageSize int           `koanf:"page_size"`

	// RefreshInterval reloads everything periodically; 0 disables it.
	RefreshInterval time.Duration `koanf:"refresh_interval"`
}

// DatabaseConfig selects and opens the backing store.
type DatabaseConfig struct {
	// Driver is "duckdb" or "postgres".
	Driver string `koanf:"driver"`

	// Path is the DuckDB file; empty or ":memory:" is in-memory.
	Path string `koanf:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `koanf:"dsn"`

	// Seed inserts the demo dataset on startup when tables are empty.
	Seed bool `koanf:"seed"`

	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// StoreConfig guards store queries with a rate limiter and circuit breaker.
type StoreConfig struct {
	RateLimit float64       `koanf:"rate_limit"`
	RateBurst int           `koanf:"rate_burst"`
	Breaker   BreakerConfig `koanf:"breaker"`
}

// BreakerConfig holds circuit breaker thresholds.
type BreakerConfig struct {
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	HalfOpenMax  uint32        `koanf:"half_open_max"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// CORSOrigins lists allowed cross-origin callers. Empty disables CORS.
	CORSOrigins []string `koanf:"cors_origins"`

	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Load reads configuration from, in increasing priority:
//  1. Built-in defaults
//  2. Config file (config.yaml if present, or the CONFIG_PATH file)
//  3. Environment variables
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// SessionConfig converts the cache, retry and loader sections into loader
// session settings.
func (c *Config) SessionConfig() loader.Config {
	return loader.Config{
		CacheCapacity: c.Cache.Capacity,
		CacheTTL:      c.Cache.TTL,
		Retry: resilience.Config{
			MaxAttempts: c.Retry.MaxAttempts,
			BaseDelay:   c.Retry.BaseDelay,
			MaxDelay:    c.Retry.MaxDelay,
			Strategy:    resilience.Strategy(c.Retry.Strategy),
		},
		Debounce: c.Loader.Debounce,
		PageSize: c.Loader.PageSize,
	}
}

// StoreOpenConfig returns the settings used to open the SQL store.
func (c *Config) StoreOpenConfig() store.Config {
	return store.Config{
		Driver:          c.Database.Driver,
		Path:            c.Database.Path,
		DSN:             c.Database.DSN,
		MaxOpenConns:    c.Database.MaxOpenConns,
		MaxIdleConns:    c.Database.MaxIdleConns,
		ConnMaxLifetime: c.Database.ConnMaxLifetime,
	}
}

// GuardConfig returns the limiter and breaker settings for store.Guarded.
func (c *Config) GuardConfig() store.GuardConfig {
	return store.GuardConfig{
		RateLimit:    c.Store.RateLimit,
		RateBurst:    c.Store.RateBurst,
		MinRequests:  c.Store.Breaker.MinRequests,
		FailureRatio: c.Store.Breaker.FailureRatio,
		Interval:     c.Store.Breaker.Interval,
		Timeout:      c.Store.Breaker.Timeout,
		HalfOpenMax:  c.Store.Breaker.HalfOpenMax,
	}
}

// MiddlewareConfig returns the CORS and rate limit settings of the router.
func (c *Config) MiddlewareConfig() api.ChiMiddlewareConfig {
	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = c.Server.CORSOrigins
	mw.RateLimitRequests = c.Server.RateLimitRequests
	mw.RateLimitWindow = c.Server.RateLimitWindow
	mw.RateLimitDisabled = c.Server.RateLimitDisabled
	return mw
}

// LogConfig returns the logger settings.
func (c *Config) LogConfig() logging.Config {
	return logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Caller: c.Logging.Caller,
	}
}
