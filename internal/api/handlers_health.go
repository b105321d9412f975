// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/fishbone/internal/models"
)

const healthPingTimeout = 2 * time.Second

// Health reports store connectivity, breaker state and cache usage.
// It answers 200 when healthy and 503 when the store is unreachable or the
// breaker is open.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	dbConnected := true
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		dbConnected = h.db.Ping(ctx) == nil
		cancel()
	}

	breaker := ""
	if h.breaker != nil {
		breaker = h.breaker.State()
	}

	c := h.session.Cache()
	status := models.HealthStatus{
		Status:        "healthy",
		Version:       h.version,
		Database:      dbConnected,
		Breaker:       breaker,
		ActiveClient:  h.session.Active(),
		CacheEntries:  c.Len(),
		CacheHitRate:  c.HitRate(),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
	if h.stream != nil {
		status.StreamClients = h.stream.ClientCount()
	}

	code := http.StatusOK
	if !dbConnected || breaker == "open" {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	respondData(w, r, code, status, started)
}

// HealthLive answers 200 while the process serves requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, map[string]string{"status": "alive"}, time.Time{})
}
