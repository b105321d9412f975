// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

/*
Command server runs the Fishbone aggregation service.

Startup order:

 1. Configuration (Koanf v2: defaults, config.yaml, environment)
 2. Logging (zerolog)
 3. Store: open DuckDB or PostgreSQL, migrate, optionally seed demo data
 4. Guarded querier: rate limiter and circuit breaker around the store
 5. Session: cache, resilient executor, debounced selection, loaders
 6. Websocket hub pushing a snapshot after every session change
 7. HTTP API (Chi, CORS, per-IP rate limiting)
 8. Supervisor tree: session warm-up in the data layer, hub and HTTP in
    the API layer

SIGINT or SIGTERM cancels the tree; the HTTP server drains within ten
seconds and in-flight loads are cancelled.

Run with an in-memory demo database:

	DUCKDB_PATH=:memory: DATABASE_SEED=true LOG_FORMAT=console go run ./cmd/server
*/
package main
