// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

/*
Package api exposes the Fishbone session over HTTP using the Chi router.

# Endpoints

	GET  /api/v1/health              store, breaker and cache status
	GET  /api/v1/health/live         liveness
	GET  /api/v1/stages              journey structure
	GET  /api/v1/clients             selectable clients
	GET  /api/v1/selection           selected clients, pending flag
	PUT  /api/v1/selection           {"client_ids": [...], "immediate": false}
	GET  /api/v1/fishbone            view, metrics, validation, loading, errors
	GET  /api/v1/fishbone/metrics    coverage metrics only
	POST /api/v1/fishbone/refresh    invalidate and reload
	POST /api/v1/fishbone/load-more  ?page=N, next mapping page
	GET  /api/v1/fishbone/stream     websocket, snapshot on every change
	GET  /metrics                    Prometheus exposition

Selection changes are debounced: PUT /selection answers 202 and the load
starts after the quiet period, unless "immediate" is set.

# Responses

Every endpoint answers with models.APIResponse. Errors carry a stable code
(VALIDATION_ERROR, INVALID_JSON, NO_ACTIVE_CLIENT, LOAD_FAILED, NOT_FOUND,
RATE_LIMITED).
Metadata includes the request's correlation id, which is also returned in
the X-Correlation-ID header and attached to every log line of the request.
*/
package api
