// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/fishbone/internal/resilience"
	"github.com/tomtom215/fishbone/internal/store"
)

// Validate checks that every section holds usable values.
func (c *Config) Validate() error {
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateLoader(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCache() error {
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("CACHE_CAPACITY must be at least 1, got %d", c.Cache.Capacity)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %v", c.Cache.TTL)
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts < 1 || c.Retry.MaxAttempts > 10 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be between 1 and 10, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("RETRY_BASE_DELAY must not be negative")
	}
	if c.Retry.MaxDelay > 0 && c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("RETRY_MAX_DELAY (%v) must not be below RETRY_BASE_DELAY (%v)",
			c.Retry.MaxDelay, c.Retry.BaseDelay)
	}

	switch resilience.Strategy(strings.ToLower(c.Retry.Strategy)) {
	case resilience.Linear, resilience.Exponential:
		c.Retry.Strategy = strings.ToLower(c.Retry.Strategy)
		return nil
	default:
		return fmt.Errorf("RETRY_STRATEGY must be one of: linear, exponential (got %q)", c.Retry.Strategy)
	}
}

func (c *Config) validateLoader() error {
	if c.Loader.Debounce < 0 {
		return fmt.Errorf("LOADER_DEBOUNCE must not be negative")
	}
	if c.Loader.RefreshInterval < 0 {
		return fmt.Errorf("LOADER_REFRESH must not be negative")
	}
	if c.Loader.PageSize < 1 || c.Loader.PageSize > 1000 {
		return fmt.Errorf("LOADER_PAGE_SIZE must be between 1 and 1000, got %d", c.Loader.PageSize)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	driver := strings.ToLower(c.Database.Driver)
	switch driver {
	case store.DriverDuckDB:
	case store.DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required when DATABASE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be one of: duckdb, postgres (got %q)", c.Database.Driver)
	}
	c.Database.Driver = driver

	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database connection limits must not be negative")
	}
	return nil
}

func (c *Config) validateStore() error {
	if c.Store.RateLimit < 0 {
		return fmt.Errorf("STORE_RATE_LIMIT must not be negative")
	}
	if c.Store.RateLimit > 0 && c.Store.RateBurst < 1 {
		return fmt.Errorf("STORE_RATE_BURST must be at least 1 when rate limiting is enabled")
	}
	if r := c.Store.Breaker.FailureRatio; r <= 0 || r > 1 {
		return fmt.Errorf("STORE_BREAKER_FAILURE_RATIO must be in (0, 1], got %v", r)
	}
	if c.Store.Breaker.Timeout <= 0 {
		return fmt.Errorf("STORE_BREAKER_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitRequests < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1 unless DISABLE_RATE_LIMIT is set")
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	for _, origin := range c.Server.CORSOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("CORS_ORIGINS entry %q must be * or start with http:// or https://", origin)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	level := strings.ToLower(c.Logging.Level)
	if !validLevels[level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error (got %q)", c.Logging.Level)
	}
	c.Logging.Level = level

	format := strings.ToLower(c.Logging.Format)
	if format != "json" && format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console (got %q)", c.Logging.Format)
	}
	c.Logging.Format = format
	return nil
}
