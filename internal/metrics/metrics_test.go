// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "none"},
		{"context canceled", context.Canceled, "cancelled"},
		{"wrapped deadline", fmt.Errorf("query stages: %w", context.DeadlineExceeded), "timeout"},
		{"connection refused", errors.New("dial tcp: connection refused"), "connection"},
		{"breaker open", errors.New("circuit breaker is open"), "breaker"},
		{"no rows", errors.New("sql: no rows in result set"), "not_found"},
		{"other", errors.New("syntax error at or near"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorType(tt.err); got != tt.want {
				t.Errorf("ErrorType(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestRecordCacheLookup(t *testing.T) {
	hitsBefore := testutil.ToFloat64(CacheHits.WithLabelValues("metrics_test"))
	missesBefore := testutil.ToFloat64(CacheMisses.WithLabelValues("metrics_test"))

	RecordCacheLookup("metrics_test", true)
	RecordCacheLookup("metrics_test", true)
	RecordCacheLookup("metrics_test", false)

	if got := testutil.ToFloat64(CacheHits.WithLabelValues("metrics_test")) - hitsBefore; got != 2 {
		t.Errorf("hits delta = %v, want 2", got)
	}
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues("metrics_test")) - missesBefore; got != 1 {
		t.Errorf("misses delta = %v, want 1", got)
	}
}

func TestRecordLoad(t *testing.T) {
	before := testutil.ToFloat64(LoaderResults.WithLabelValues("metrics_test", "loaded"))

	RecordLoad("metrics_test", "loaded", 20*time.Millisecond)
	RecordLoad("metrics_test", "cache_hit", 0)

	if got := testutil.ToFloat64(LoaderResults.WithLabelValues("metrics_test", "loaded")) - before; got != 1 {
		t.Errorf("loaded delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(LoaderResults.WithLabelValues("metrics_test", "cache_hit")); got < 1 {
		t.Errorf("cache_hit = %v, want >= 1", got)
	}
}

func TestRecordStoreQuery(t *testing.T) {
	before := testutil.ToFloat64(StoreQueryErrors.WithLabelValues("metrics_test", "connection"))

	RecordStoreQuery("metrics_test", 5*time.Millisecond, nil)
	RecordStoreQuery("metrics_test", 5*time.Millisecond, errors.New("connection refused"))

	if got := testutil.ToFloat64(StoreQueryErrors.WithLabelValues("metrics_test", "connection")) - before; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/metrics_test", "200"))

	RecordAPIRequest("GET", "/metrics_test", "200", 3*time.Millisecond)

	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/metrics_test", "200")) - before; got != 1 {
		t.Errorf("requests delta = %v, want 1", got)
	}
}
