// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

/*
Package config loads and validates Fishbone configuration.

# Configuration Sources

Load layers three sources with Koanf v2, later sources winning:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: CONFIG_PATH, else the first of DefaultConfigPaths
 3. Environment variables listed in the mapping table

Unmapped environment variables are ignored.

# Environment Variables

Cache:
  - CACHE_TTL: entry time-to-live (default: 5m)
  - CACHE_CAPACITY: maximum entries (default: 100)

Retry:
  - RETRY_MAX_ATTEMPTS: attempts per operation, 1-10 (default: 3)
  - RETRY_BASE_DELAY: first backoff delay (default: 1s)
  - RETRY_MAX_DELAY: backoff ceiling (default: 10s)
  - RETRY_STRATEGY: linear or exponential (default: linear)

Loader:
  - LOADER_DEBOUNCE: selection quiet period (default: 300ms)
  - LOADER_PAGE_SIZE: mappings per page (default: 100)
  - LOADER_REFRESH: periodic full refresh interval (default: 0, disabled)

Database:
  - DATABASE_DRIVER: duckdb or postgres (default: duckdb)
  - DUCKDB_PATH / DATABASE_PATH: DuckDB file (default: /data/fishbone.duckdb)
  - DATABASE_URL / DATABASE_DSN: PostgreSQL DSN (required for postgres)
  - DATABASE_SEED: insert the demo dataset into empty tables

Store guard:
  - STORE_RATE_LIMIT, STORE_RATE_BURST
  - STORE_BREAKER_MIN_REQUESTS, STORE_BREAKER_FAILURE_RATIO
  - STORE_BREAKER_INTERVAL, STORE_BREAKER_TIMEOUT, STORE_BREAKER_HALF_OPEN_MAX

Server:
  - HTTP_HOST (default: 0.0.0.0), HTTP_PORT (default: 3858), HTTP_TIMEOUT (default: 30s)
  - CORS_ORIGINS: comma-separated allowed origins (default: none)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW: per-IP API limit (default: 300 per 1m)
  - DISABLE_RATE_LIMIT

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Example config.yaml

	cache:
	  ttl: 2m
	  capacity: 250
	retry:
	  strategy: exponential
	database:
	  driver: postgres
	  dsn: postgres://fishbone@localhost:5432/fishbone
	logging:
	  format: console

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal().Err(err).Msg("invalid configuration")
	}
	session := loader.NewSession(querier, cfg.SessionConfig())
*/
package config
