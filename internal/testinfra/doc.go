// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

// Package testinfra starts containers for integration tests.
//
// Files are built only with the integration tag:
//
//	go test -tags integration ./internal/store/...
//
// # PostgreSQL
//
//	func TestPostgres(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//
//	    db, err := store.Open(ctx, store.Config{Driver: store.DriverPostgres, DSN: pg.DSN})
//	    // ...
//	}
//
// Tests are skipped when Docker is unavailable. The first run pulls the
// image.
package testinfra
