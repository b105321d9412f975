// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gorilla "github.com/gorilla/websocket"

	"github.com/tomtom215/fishbone/internal/loader"
	"github.com/tomtom215/fishbone/internal/resilience"
	"github.com/tomtom215/fishbone/internal/websocket"
)

func TestStream_Disabled(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t, &stubQuerier{})

	rec, env := do(t, h, http.MethodGet, "/api/v1/fishbone/stream", "")
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != codeNotFound {
		t.Errorf("stream without hub: %d %+v, want 404", rec.Code, env.Error)
	}
}

func TestStream_PushesSelection(t *testing.T) {
	t.Parallel()

	cfg := loader.DefaultConfig()
	cfg.Retry = resilience.Config{MaxAttempts: 1, Strategy: resilience.Linear}
	cfg.Debounce = time.Hour

	var session *loader.Session
	hub := websocket.NewHub(func() interface{} { return session.Snapshot() })
	session = loader.NewSession(&stubQuerier{}, cfg, loader.WithChangeHook(hub.Notify))
	t.Cleanup(session.Close)
	if err := session.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.Serve(ctx) }()

	server := httptest.NewServer(NewRouter(NewHandler(session, WithStream(hub)), nil).SetupChi())
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/fishbone/stream"
	conn, resp, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	type frame struct {
		Type string          `json:"type"`
		Data loader.Snapshot `json:"data"`
	}
	read := func() frame {
		t.Helper()
		if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
			t.Fatal(err)
		}
		var f frame
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return f
	}

	first := read()
	if first.Type != websocket.MessageTypeSnapshot || first.Data.ActiveClient != "" {
		t.Fatalf("initial frame = %s active %q", first.Type, first.Data.ActiveClient)
	}
	if len(first.Data.Stages) != 3 {
		t.Errorf("initial stages = %d, want 3", len(first.Data.Stages))
	}

	body := strings.NewReader(`{"client_ids":["c1"],"immediate":true}`)
	req, _ := http.NewRequest(http.MethodPut, server.URL+"/api/v1/selection", body)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()

	// Frames may arrive for the selection before its load has finished.
	for {
		f := read()
		if f.Data.ActiveClient == "c1" && !f.Data.Loading.Any && len(f.Data.Mappings) == 2 {
			break
		}
	}
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
}
