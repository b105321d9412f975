// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

// Package logging provides zerolog-based structured logging for Fishbone.
//
// A single global logger is configured once at startup and read through
// package-level helpers. Components that need their own logger (the executor,
// the supervisor) take a zerolog.Logger value so tests can capture output.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("client_id", id).Msg("client selected")
//	logging.Warn().Err(err).Int("attempt", 2).Msg("attempt failed, retrying")
//
// # Correlation IDs
//
// API handlers attach a short correlation id to the request context;
// Ctx(ctx) returns a logger that includes it:
//
//	ctx = logging.ContextWithCorrelationID(ctx, logging.NewCorrelationID())
//	logging.Ctx(ctx).Info().Msg("refresh requested")
//
// # slog
//
// NewSlog returns an *slog.Logger backed by the same zerolog output. The
// supervisor tree hands it to sutureslog so restart events share the JSON
// stream.
//
// # Testing
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
package logging
