// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the aggregation layer:
// - Store query performance
// - Loader cache efficiency and outcomes
// - Executor retries and cancellations
// - Circuit breaker state
// - Derived coverage of the active view
// - API endpoint latency

var (
	// Store Metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fishbone_store_query_duration_seconds",
			Help:    "Duration of store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"}, // "stages", "client_options", "client", "mappings"
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishbone_store_query_errors_total",
			Help: "Total number of failed store queries",
		},
		[]string{"query", "error_type"},
	)

	StoreRowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishbone_store_rows_dropped_total",
			Help: "Rows dropped during normalization (missing identity or failed join)",
		},
		[]string{"entity", "reason"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishbone_cache_hits_total",
			Help: "Total number of loader cache hits",
		},
		[]string{"loader"}, // "stages", "client_options", "client"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishbone_cache_misses_total",
			Help: "Total number of loader cache misses",
		},
		[]string{"loader"},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fishbone_cache_evictions_total",
			Help: "Total number of entries evicted for capacity",
		},
	)

	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fishbone_cache_entries",
			Help: "Current number of cached entries",
		},
	)

	// Loader Metrics
	LoaderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fishbone_loader_duration_seconds",
			Help:    "Duration of loader runs including retries",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"loader"},
	)

	LoaderResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishbone_loader_results_total",
			Help: "Loader outcomes",
		},
		[]string{"loader", "result"}, // result: "cache_hit", "loaded", "cancelled", "failed"
	)

	// Executor Metrics
	ExecutorRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishbone_executor_retries_total",
			Help: "Total number of retried attempts",
		},
		[]string{"slot"},
	)

	ExecutorCancellations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishbone_executor_cancellations_total",
			Help: "Total number of superseded or cancelled operations",
		},
		[]string{"slot"},
	)

	ExecutorExhausted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishbone_executor_exhausted_total",
			Help: "Total number of operations that failed every attempt",
		},
		[]string{"slot"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fishbone_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishbone_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishbone_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// View Metrics
	CoveragePercentage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fishbone_coverage_percentage",
			Help: "Coverage percentage of the active client's assembled view",
		},
	)

	ValidationIssues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishbone_validation_issues_total",
			Help: "Shape validation findings",
		},
		[]string{"subject", "severity"}, // severity: "error", "warning"
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fishbone_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fishbone_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)
)

// RecordStoreQuery records the duration and outcome of a store query.
func RecordStoreQuery(query string, duration time.Duration, err error) {
	StoreQueryDuration.WithLabelValues(query).Observe(duration.Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(query, ErrorType(err)).Inc()
	}
}

// RecordLoad records the outcome of one loader run.
func RecordLoad(loader, result string, duration time.Duration) {
	LoaderResults.WithLabelValues(loader, result).Inc()
	if result != "cache_hit" {
		LoaderDuration.WithLabelValues(loader).Observe(duration.Seconds())
	}
}

// RecordCacheLookup increments the hit or miss counter of a loader.
func RecordCacheLookup(loader string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(loader).Inc()
		return
	}
	CacheMisses.WithLabelValues(loader).Inc()
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// ErrorType maps an error to a low-cardinality label value.
func ErrorType(err error) string {
	if err == nil {
		return "none"
	}
	msg := err.Error()
	switch {
	case containsAny(msg, "context canceled", "cancelled"):
		return "cancelled"
	case containsAny(msg, "deadline exceeded", "timeout", "timed out"):
		return "timeout"
	case containsAny(msg, "connection refused", "broken pipe", "bad connection", "no such host"):
		return "connection"
	case containsAny(msg, "circuit breaker", "too many requests"):
		return "breaker"
	case containsAny(msg, "not found", "no rows"):
		return "not_found"
	default:
		return "other"
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
