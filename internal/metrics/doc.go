// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

/*
Package metrics provides Prometheus metrics for the Fishbone service.

All collectors are registered on the default registry through promauto and
exposed by the API at /metrics.

# Available Metrics

Store:
  - fishbone_store_query_duration_seconds{query}
  - fishbone_store_query_errors_total{query, error_type}
  - fishbone_store_rows_dropped_total{entity, reason}

Cache and loaders:
  - fishbone_cache_hits_total{loader}, fishbone_cache_misses_total{loader}
  - fishbone_cache_evictions_total, fishbone_cache_entries
  - fishbone_loader_duration_seconds{loader}
  - fishbone_loader_results_total{loader, result}

Executor:
  - fishbone_executor_retries_total{slot}
  - fishbone_executor_cancellations_total{slot}
  - fishbone_executor_exhausted_total{slot}

Circuit breaker:
  - fishbone_circuit_breaker_state{name} (0=closed, 1=half-open, 2=open)
  - fishbone_circuit_breaker_requests_total{name, result}
  - fishbone_circuit_breaker_state_transitions_total{name, from_state, to_state}

View:
  - fishbone_coverage_percentage
  - fishbone_validation_issues_total{subject, severity}

API:
  - fishbone_api_requests_total{method, endpoint, status_code}
  - fishbone_api_request_duration_seconds{method, endpoint}

Slot labels use the loader slot name with the client id stripped
("client" rather than "client:<id>") to keep cardinality bounded.
*/
package metrics
