// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/fishbone/internal/cache"
	"github.com/tomtom215/fishbone/internal/loader"
)

// Aggregator is the part of loader.Session the handlers drive.
type Aggregator interface {
	Snapshot() loader.Snapshot
	Selected() []string
	Active() string
	SelectClients(ids ...string)
	FlushSelection() bool
	SelectionPending() bool
	Refresh(ctx context.Context) error
	LoadMore(ctx context.Context, page int) error
	Cache() *cache.Cache
}

// Pinger reports store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerStater exposes the store circuit breaker state.
type BreakerStater interface {
	State() string
}

// Streamer upgrades requests to a live snapshot feed.
type Streamer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	ClientCount() int
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct and constructor
//   - handlers_helpers.go: response and request helpers
//   - handlers_health.go: health endpoint
//   - handlers_fishbone.go: stages, clients, selection and view endpoints
type Handler struct {
	session   Aggregator
	db        Pinger
	breaker   BreakerStater
	stream    Streamer
	version   string
	startTime time.Time
	timeout   time.Duration
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithPinger enables the database check of the health endpoint.
func WithPinger(p Pinger) HandlerOption {
	return func(h *Handler) { h.db = p }
}

// WithBreaker reports the breaker state in the health endpoint.
func WithBreaker(b BreakerStater) HandlerOption {
	return func(h *Handler) { h.breaker = b }
}

// WithStream enables the snapshot push endpoint.
func WithStream(s Streamer) HandlerOption {
	return func(h *Handler) { h.stream = s }
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(v string) HandlerOption {
	return func(h *Handler) { h.version = v }
}

// WithTimeout bounds refresh and load-more requests.
func WithTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) { h.timeout = d }
}

// NewHandler creates a new API handler
func NewHandler(session Aggregator, opts ...HandlerOption) *Handler {
	h := &Handler{
		session:   session,
		version:   "dev",
		startTime: time.Now(),
		timeout:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}
