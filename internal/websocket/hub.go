// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package websocket

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/fishbone/internal/logging"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during
	// shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types
const (
	MessageTypeSnapshot = "snapshot"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// Message is the envelope of every frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Source returns the state pushed to clients, usually a session snapshot.
type Source func() interface{}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithAllowedOrigins accepts upgrades from these origins in addition to
// same-origin requests. "*" accepts any origin.
func WithAllowedOrigins(origins []string) HubOption {
	return func(h *Hub) { h.origins = origins }
}

// WithLogger sets the hub logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) HubOption {
	return func(h *Hub) { h.logger = l }
}

// Hub tracks connected clients and pushes the current state to them
// whenever Notify is called. Bursts of notifications collapse into one
// broadcast.
type Hub struct {
	source   Source
	origins  []string
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	notify chan struct{}

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates a hub publishing source.
func NewHub(source Source, opts ...HubOption) *Hub {
	h := &Hub{
		source:  source,
		logger:  logging.WithComponent("websocket-hub"),
		notify:  make(chan struct{}, 1),
		clients: make(map[*Client]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// Notify schedules a broadcast of the current state. It never blocks.
func (h *Hub) Notify() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Serve broadcasts on every notification until ctx is cancelled, then
// closes all clients. It implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			closed := h.closeAllClients()
			h.logger.Info().
				Str("reason", string(getShutdownReason(ctx))).
				Int("clients_closed", closed).
				Msg("websocket hub stopped")
			return ctx.Err()

		case <-h.notify:
			frame, err := h.snapshotFrame()
			if err != nil {
				h.logger.Error().Err(err).Msg("failed to encode snapshot")
				continue
			}
			h.broadcast(frame)
		}
	}
}

// String names the hub in supervisor logs.
func (h *Hub) String() string {
	return "websocket-hub"
}

// ServeWS upgrades the request and registers the connection. The client
// receives the current state right away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("websocket upgrade rejected")
		return
	}

	client := newClient(h, conn)
	h.register(client)
	client.start()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	frame, err := h.snapshotFrame()

	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	if err == nil {
		c.send <- frame
	}
	h.mu.Unlock()

	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode snapshot")
	}
	h.logger.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.logger.Info().Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// trySend queues frame for c unless c is gone or its buffer is full.
func (h *Hub) trySend(c *Client, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.clients[c] {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

func (h *Hub) snapshotFrame() ([]byte, error) {
	return json.Marshal(Message{Type: MessageTypeSnapshot, Data: h.source()})
}

// broadcast sends frame to every client in id order. Clients whose send
// buffer is full are dropped.
func (h *Hub) broadcast(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClients() {
		select {
		case client.send <- frame:
		default:
			close(client.send)
			delete(h.clients, client)
			h.logger.Warn().Uint64("client_id", client.id).Msg("dropping slow websocket client")
		}
	}
}

func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.sortedClients()
	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	return len(clients)
}

// sortedClients must be called with mu held.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
