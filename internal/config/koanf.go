// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/fishbone/internal/cache"
	"github.com/tomtom215/fishbone/internal/coalesce"
	"github.com/tomtom215/fishbone/internal/loader"
	"github.com/tomtom215/fishbone/internal/resilience"
	"github.com/tomtom215/fishbone/internal/store"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fishbone/config.yaml",
	"/etc/fishbone/config.yml",
}

// ConfigPathEnvVar names the environment variable holding an explicit config
// file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	retry := resilience.DefaultConfig()
	guard := store.DefaultGuardConfig()

	return &Config{
		Cache: CacheConfig{
			TTL:      cache.DefaultTTL,
			Capacity: cache.DefaultCapacity,
		},
		Retry: RetryConfig{
			MaxAttempts: retry.MaxAttempts,
			BaseDelay:   retry.BaseDelay,
			MaxDelay:    retry.MaxDelay,
			Strategy:    string(retry.Strategy),
		},
		Loader: LoaderConfig{
			Debounce: coalesce.DefaultQuietPeriod,
			PageSize: loader.DefaultPageSize,
		},
		Database: DatabaseConfig{
			Driver:          store.DriverDuckDB,
			Path:            "/data/fishbone.duckdb",
			Seed:            false,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Store: StoreConfig{
			RateLimit: guard.RateLimit,
			RateBurst: guard.RateBurst,
			Breaker: BreakerConfig{
				MinRequests:  guard.MinRequests,
				FailureRatio: guard.FailureRatio,
				Interval:     guard.Interval,
				Timeout:      guard.Timeout,
				HalfOpenMax:  guard.HalfOpenMax,
			},
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    3858,
			Timeout: 30 * time.Second,

			CORSOrigins:       []string{},
			RateLimitRequests: 300,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config File: optional YAML file
//  3. Environment Variables: override any mapped setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// CACHE_TTL -> cache.ttl, HTTP_PORT -> server.port
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "" if none.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	"cache_ttl":      "cache.ttl",
	"cache_capacity": "cache.capacity",

	"retry_max_attempts": "retry.max_attempts",
	"retry_base_delay":   "retry.base_delay",
	"retry_max_delay":    "retry.max_delay",
	"retry_strategy":     "retry.strategy",

	"loader_debounce":  "loader.debounce",
	"loader_page_size": "loader.page_size",
	"loader_refresh":   "loader.refresh_interval",

	"database_driver":            "database.driver",
	"duckdb_path":                "database.path",
	"database_path":              "database.path",
	"database_url":               "database.dsn",
	"database_dsn":               "database.dsn",
	"database_seed":              "database.seed",
	"database_max_open_conns":    "database.max_open_conns",
	"database_max_idle_conns":    "database.max_idle_conns",
	"database_conn_max_lifetime": "database.conn_max_lifetime",

	"store_rate_limit":            "store.rate_limit",
	"store_rate_burst":            "store.rate_burst",
	"store_breaker_min_requests":  "store.breaker.min_requests",
	"store_breaker_failure_ratio": "store.breaker.failure_ratio",
	"store_breaker_interval":      "store.breaker.interval",
	"store_breaker_timeout":       "store.breaker.timeout",
	"store_breaker_half_open_max": "store.breaker.half_open_max",

	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

// sliceConfigPaths lists config paths given as comma-separated strings in
// the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

// processSliceFields splits comma-separated string values of the known
// slice fields. Values already loaded as lists from YAML are kept.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}
