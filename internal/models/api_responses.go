// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package models

import (
	"time"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the envelope returned by every HTTP endpoint.
//
//	{
//	  "status": "success",
//	  "data": {"view": [...], "metrics": {...}},
//	  "metadata": {"timestamp": "2026-01-01T12:00:00Z", "correlation_id": "a1b2c3d4"}
//	}
//
// On failure Status is "error", Data is null and Error is set.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	QueryTimeMS   int64     `json:"query_time_ms,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is the payload of the health endpoint.
type HealthStatus struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      bool    `json:"database_connected"`
	Breaker       string  `json:"circuit_breaker,omitempty"`
	ActiveClient  string  `json:"active_client,omitempty"`
	CacheEntries  int     `json:"cache_entries"`
	CacheHitRate  float64 `json:"cache_hit_rate"`
	StreamClients int     `json:"stream_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// SelectionRequest replaces the selected clients. The first id becomes the
// active client.
type SelectionRequest struct {
	ClientIDs []string `json:"client_ids" validate:"required,min=1,max=20,dive,required,notblank"`

	// Immediate skips the debounce window.
	Immediate bool `json:"immediate"`
}

// SelectionStatus reports the current and pending selection.
type SelectionStatus struct {
	SelectedClients []string `json:"selected_clients"`
	ActiveClient    string   `json:"active_client"`
	Pending         bool     `json:"pending"`
}

// LoadMoreRequest asks for one more mapping page of the active client.
type LoadMoreRequest struct {
	Page int `json:"page" validate:"gte=1,lte=10000"`
}
