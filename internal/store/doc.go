// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

/*
Package store reads journey structure, the client roster and supplier
mappings from a relational database.

Querier is the interface the loaders consume. SQLStore implements it over
database/sql with either the embedded DuckDB driver (default, file or
in-memory) or PostgreSQL through pgx's stdlib adapter. The SQL is written
once with $n placeholders, which both engines accept.

Tables:
  - companies: every company (clients, partners, suppliers, internal groups);
    clients point at their owning internal group through owner_id
  - journey_stages, journey_substages: the journey structure
  - supplier_mappings: client × stage (× sub-stage) → supplier

Guarded decorates any Querier with a token-bucket limiter
(golang.org/x/time/rate) and a circuit breaker (sony/gobreaker). The breaker
only counts real failures: context cancellation and ErrNotFound pass through
as successes so a burst of superseded requests cannot open it.

	sqlStore, err := store.Open(ctx, store.Config{Driver: "duckdb", Path: "/data/fishbone.duckdb"})
	if err != nil {
	    return err
	}
	if err := sqlStore.Migrate(ctx); err != nil {
	    return err
	}
	q := store.NewGuarded(sqlStore, store.DefaultGuardConfig())
*/
package store
