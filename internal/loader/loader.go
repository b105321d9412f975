// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package loader

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/fishbone/internal/cache"
	"github.com/tomtom215/fishbone/internal/metrics"
	"github.com/tomtom215/fishbone/internal/resilience"
)

// env is what every loader shares inside one session.
type env struct {
	cache  *cache.Cache
	exec   *resilience.Executor
	logger zerolog.Logger
}

// telemetry counts cache lookups of one loader.
type telemetry struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (t *telemetry) record(loader string, hit bool) {
	if hit {
		t.hits.Add(1)
	} else {
		t.misses.Add(1)
	}
	metrics.RecordCacheLookup(loader, hit)
}

// Counters returns the hit and miss totals.
func (t *telemetry) Counters() (hits, misses int64) {
	return t.hits.Load(), t.misses.Load()
}

// status is the loading flag and last error of one loader (or of one
// client inside ClientLoader).
type status struct {
	mu       sync.RWMutex
	inFlight int
	err      string
}

func (s *status) begin() {
	s.mu.Lock()
	s.inFlight++
	s.mu.Unlock()
}

func (s *status) end() {
	s.mu.Lock()
	if s.inFlight > 0 {
		s.inFlight--
	}
	s.mu.Unlock()
}

func (s *status) setErr(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

// Loading reports whether a remote load is in flight.
func (s *status) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

// Err returns the last load error, or "" after a successful load.
func (s *status) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// request describes one load. R is the normalized payload that is both
// committed to loader state and written to the cache.
type request[R any] struct {
	loader  string // metric label and log field
	slot    string // executor slot
	key     string // cache key
	errText string // prefix of the user-facing error string

	// supersedes lists other slots a load of slot makes obsolete.
	supersedes []string

	fetch  func(ctx context.Context) (R, error)
	commit func(R)
}

// runLoad is the algorithm every loader shares:
//
//  1. cache hit: commit the cached payload, count a hit, done
//  2. miss: count a miss and run fetch through the executor
//  3. success: commit and write through to the cache (under the executor's
//     ownership check, so a superseded load commits nothing)
//  4. failure: record a loader-scoped error string and keep the old state;
//     cancellations are silent
func runLoad[R any](ctx context.Context, e *env, st *status, tel *telemetry, req request[R]) error {
	typed := cache.NewTyped[R](e.cache)

	for _, slot := range req.supersedes {
		e.exec.Cancel(slot)
	}

	if payload, ok := typed.Get(req.key); ok {
		// A cache hit supersedes any older remote load for the same slot.
		e.exec.Cancel(req.slot)
		tel.record(req.loader, true)
		req.commit(payload)
		st.setErr("")
		metrics.RecordLoad(req.loader, "cache_hit", 0)
		return nil
	}
	tel.record(req.loader, false)

	st.begin()
	defer st.end()

	start := time.Now()
	err := resilience.Execute(ctx, e.exec, req.slot, req.fetch, func(payload R) {
		req.commit(payload)
		typed.Set(req.key, payload)
	})
	elapsed := time.Since(start)

	switch {
	case err == nil:
		st.setErr("")
		metrics.RecordLoad(req.loader, "loaded", elapsed)
		e.logger.Debug().Str("loader", req.loader).Str("slot", req.slot).Dur("took", elapsed).Msg("load complete")
		return nil
	case resilience.IsCancelled(err):
		metrics.RecordLoad(req.loader, "cancelled", elapsed)
		return err
	default:
		st.setErr(req.errText + ": " + err.Error())
		metrics.RecordLoad(req.loader, "failed", elapsed)
		e.logger.Error().Err(err).Str("loader", req.loader).Str("slot", req.slot).Msg("load failed")
		return err
	}
}
