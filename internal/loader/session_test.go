// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package loader

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/fishbone/internal/models"
	"github.com/tomtom215/fishbone/internal/resilience"
	"github.com/tomtom215/fishbone/internal/store"
)

func TestSession_StartLoadsStructureAndRoster(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	s := newTestSession(q)
	defer s.Close()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Stages) != 2 {
		t.Errorf("stages = %d, want 2", len(snap.Stages))
	}
	if len(snap.ClientOptions) != 2 || snap.ClientOptions[0].Owner.ID != "g1" {
		t.Errorf("client options = %+v", snap.ClientOptions)
	}
	if len(snap.View) != 0 {
		t.Errorf("view without a selected client = %d nodes, want 0", len(snap.View))
	}
	if snap.Loading.Any {
		t.Error("Loading.Any = true after Start returned")
	}

	// A second start is served from the cache.
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if q.count("stages") != 1 || q.count("options") != 1 {
		t.Errorf("remote calls = stages %d options %d, want 1 each", q.count("stages"), q.count("options"))
	}
	hits, misses := s.CacheCounters()
	if hits != 2 || misses != 2 {
		t.Errorf("cache counters = %d hits %d misses, want 2/2", hits, misses)
	}
}

func TestSession_LoaderFailureIsIsolated(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	q.stagesErr = errors.New("connection refused")
	s := newTestSession(q)
	defer s.Close()

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Start() error = nil, want stage failure")
	}

	snap := s.Snapshot()
	if !strings.Contains(snap.Errors.Stages, "failed to load stages") {
		t.Errorf("Errors.Stages = %q", snap.Errors.Stages)
	}
	if snap.Errors.ClientOptions != "" {
		t.Errorf("roster error = %q, want none", snap.Errors.ClientOptions)
	}
	if len(snap.ClientOptions) != 2 {
		t.Error("roster must load even though stages failed")
	}
	if q.count("stages") != 3 {
		t.Errorf("stage attempts = %d, want 3", q.count("stages"))
	}
}

func TestSession_StaleDataSurvivesFailedRefresh(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	s := newTestSession(q)
	defer s.Close()

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	q.mu.Lock()
	q.stagesErr = errors.New("timeout")
	q.mu.Unlock()

	_ = s.Refresh(context.Background())

	snap := s.Snapshot()
	if len(snap.Stages) != 2 {
		t.Errorf("stages after failed refresh = %d, want previous 2", len(snap.Stages))
	}
	if snap.Errors.Stages == "" {
		t.Error("failed refresh should set the stage error")
	}
}

func TestSession_SelectClientNowAssemblesView(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	s := newTestSession(q)
	defer s.Close()

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.SelectClientNow(context.Background(), "c1"); err != nil {
		t.Fatalf("SelectClientNow() error = %v", err)
	}

	snap := s.Snapshot()
	if snap.ActiveClient != "c1" || snap.Client == nil || snap.Client.Name != "Acme" {
		t.Fatalf("active client = %q %+v", snap.ActiveClient, snap.Client)
	}
	if len(snap.Mappings) != 3 {
		t.Errorf("mappings = %d, want 3 (missing supplier kept for validation)", len(snap.Mappings))
	}
	if len(snap.View) != 2 {
		t.Fatalf("view = %d nodes, want 2", len(snap.View))
	}
	if got := snap.View[0].Suppliers; len(got) != 1 || got[0].CompanyID != "p1" {
		t.Errorf("s1 suppliers = %+v", got)
	}
	if got := snap.View[1].SubStages[0].Suppliers; len(got) != 1 {
		t.Errorf("kickoff suppliers = %+v", got)
	}
	if len(snap.View[1].Suppliers) != 0 {
		t.Error("mapping without supplier must not be rendered")
	}
	if snap.Metrics.CoveragePercentage != 100 || snap.Metrics.TotalPartners != 1 {
		t.Errorf("metrics = %+v", snap.Metrics)
	}
	if !snap.Validation.IsValid {
		t.Errorf("validation = %+v", snap.Validation)
	}
}

func TestSession_SelectClientsIsDebounced(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	s := newTestSession(q, func(c *Config) { c.Debounce = time.Hour })
	defer s.Close()

	s.SelectClients("c1")
	s.SelectClients("c2")
	s.SelectClients("c2", "c1", "c2", " ")

	if !s.SelectionPending() {
		t.Fatal("selection should be pending")
	}
	if q.count("client") != 0 {
		t.Fatal("no load may happen before the quiet period ends")
	}
	if !s.FlushSelection() {
		t.Fatal("FlushSelection() = false")
	}

	ids := q.clientIDs()
	if len(ids) != 2 {
		t.Fatalf("client loads = %v, want c2 and c1 once each", ids)
	}
	if got := s.Selected(); len(got) != 2 || got[0] != "c2" || got[1] != "c1" {
		t.Errorf("Selected() = %v, want [c2 c1]", got)
	}
	if s.Active() != "c2" {
		t.Errorf("Active() = %q, want c2", s.Active())
	}
}

func TestSession_DebouncedSelectionFiresOnItsOwn(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	s := newTestSession(q)
	defer s.Close()

	s.SelectClients("c1")
	deadline := time.Now().Add(2 * time.Second)
	for s.Clients().Client("c1") == nil {
		if time.Now().After(deadline) {
			t.Fatal("debounced selection never loaded c1")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSession_LoadMoreAppends(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	s := newTestSession(q, func(c *Config) { c.PageSize = 2 })
	defer s.Close()

	if err := s.LoadMore(context.Background(), 1); !errors.Is(err, ErrNoActiveClient) {
		t.Errorf("LoadMore without client = %v, want ErrNoActiveClient", err)
	}

	if err := s.SelectClientNow(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	if page, more := s.Clients().Page("c1"); page != 0 || !more {
		t.Errorf("after page 0: page=%d more=%v, want 0 true", page, more)
	}
	if got := len(s.Clients().Mappings("c1")); got != 2 {
		t.Errorf("mappings after page 0 = %d, want 2", got)
	}

	if err := s.LoadMore(context.Background(), 1); err != nil {
		t.Fatalf("LoadMore() error = %v", err)
	}
	if got := len(s.Clients().Mappings("c1")); got != 3 {
		t.Errorf("mappings after page 1 = %d, want 3", got)
	}
	if _, more := s.Clients().Page("c1"); more {
		t.Error("short page should end pagination")
	}
	if s.Clients().Client("c1") == nil {
		t.Error("client entity lost after appending a page")
	}

	if err := s.LoadMore(context.Background(), 0); err == nil {
		t.Error("LoadMore(0) should be rejected")
	}
}

func TestSession_RefreshBypassesCache(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	s := newTestSession(q)
	defer s.Close()

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.SelectClientNow(ctx, "c1"); err != nil {
		t.Fatal(err)
	}

	q.mu.Lock()
	q.mappings["c1"] = q.mappings["c1"][:1]
	q.mu.Unlock()

	// Reselecting hits the cache and keeps the old mappings.
	if err := s.SelectClientNow(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	if got := len(s.Clients().Mappings("c1")); got != 3 {
		t.Errorf("mappings from cache = %d, want 3", got)
	}

	if err := s.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got := len(s.Clients().Mappings("c1")); got != 1 {
		t.Errorf("mappings after refresh = %d, want 1", got)
	}
	if q.count("stages") != 2 || q.count("client") != 2 {
		t.Errorf("remote calls = stages %d client %d, want 2 each", q.count("stages"), q.count("client"))
	}
}

// Request A for c1 is slow, request B for c1 is fast. A resolves after B;
// state must reflect only B and A must stay silent.
func TestClientLoader_StaleResponseDiscarded(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	release := make(chan struct{})
	var mu sync.Mutex
	call := 0
	q.onClient = func(ctx context.Context, id string) (*models.ClientRow, error) {
		mu.Lock()
		call++
		n := call
		mu.Unlock()
		if n == 1 {
			<-release
			return &models.ClientRow{ID: id, Name: "Stale A", Active: true}, nil
		}
		return &models.ClientRow{ID: id, Name: "Fresh B", Active: true}, nil
	}

	s := newTestSession(q)
	defer s.Close()
	loader := s.Clients()

	aDone := make(chan error, 1)
	go func() { aDone <- loader.Load(context.Background(), "c1", 0) }()

	for q.count("client") < 1 {
		time.Sleep(time.Millisecond)
	}
	if err := loader.Load(context.Background(), "c1", 0); err != nil {
		t.Fatalf("B error = %v", err)
	}
	close(release)

	if err := <-aDone; err == nil {
		t.Error("A should report cancellation")
	}
	if got := loader.Client("c1"); got == nil || got.Name != "Fresh B" {
		t.Errorf("client = %+v, want Fresh B", got)
	}
	if loader.Err("c1") != "" {
		t.Errorf("cancelled load set error %q", loader.Err("c1"))
	}
}

func TestClientLoader_LoadingFlag(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	started := make(chan struct{})
	release := make(chan struct{})
	q.onMappings = func(ctx context.Context, clientID string, limit, offset int) ([]models.MappingRow, error) {
		close(started)
		<-release
		return []models.MappingRow{}, nil
	}

	s := newTestSession(q)
	defer s.Close()

	done := make(chan error, 1)
	go func() { done <- s.SelectClientNow(context.Background(), "c2") }()

	<-started
	snap := s.Snapshot()
	if !snap.Loading.Client || !snap.Loading.Any {
		t.Errorf("loading = %+v while mappings load", snap.Loading)
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if s.Snapshot().Loading.Any {
		t.Error("still loading after completion")
	}
}

func TestSession_CloseCancelsInFlight(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	started := make(chan struct{})
	q.onClient = func(ctx context.Context, id string) (*models.ClientRow, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	s := newTestSession(q)
	done := make(chan error, 1)
	go func() { done <- s.SelectClientNow(context.Background(), "c1") }()

	<-started
	s.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("cancelled selection returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not cancel the in-flight load")
	}
	if msg := s.Clients().Err("c1"); msg != "" {
		t.Errorf("cancellation surfaced as error %q", msg)
	}
}

func TestNormalizeMappings(t *testing.T) {
	t.Parallel()

	rows := []models.MappingRow{
		{ID: "", ClientID: "c1", StageID: "s1", Active: true},
		{ID: "inactive", ClientID: "c1", StageID: "s1", Active: false, SupplierName: strPtr("X")},
		{ID: "blank-sub", ClientID: "c1", StageID: "s1", SubStageID: strPtr(""), SupplierID: "p", Active: true, SupplierName: strPtr("P")},
		{ID: "no-join", ClientID: "c1", StageID: "s1", SupplierID: "q", Active: true},
	}

	got := normalizeMappings(rows)
	if len(got) != 2 {
		t.Fatalf("normalized = %d, want 2", len(got))
	}
	if !got[0].IsDirect() || got[0].Supplier == nil || got[0].Supplier.ID != "p" {
		t.Errorf("blank-sub = %+v", got[0])
	}
	if got[1].Supplier != nil {
		t.Error("failed join must keep a nil supplier")
	}
}

func TestNormalizeOptionsAndStages(t *testing.T) {
	t.Parallel()

	opts := normalizeOptions([]models.ClientOptionRow{
		{ID: "c1", Name: "Acme", OwnerID: strPtr("g1")},
		{ID: "c2", Name: "No owner"},
		{ID: " ", Name: "Blank"},
	})
	if len(opts) != 1 || opts[0].ID != "c1" {
		t.Errorf("options = %+v", opts)
	}

	stages := normalizeStages([]models.Stage{
		{ID: "s1", Name: "S", SubStages: nil},
		{ID: "", Name: "Missing"},
		{ID: "s2", Name: "T", SubStages: []models.SubStage{{ID: ""}, {ID: "k", StageID: "s2"}}},
	})
	if len(stages) != 2 {
		t.Fatalf("stages = %+v", stages)
	}
	if stages[0].SubStages == nil || len(stages[1].SubStages) != 1 {
		t.Errorf("sub-stages = %+v / %+v", stages[0].SubStages, stages[1].SubStages)
	}

	if normalizeClient(nil) != nil {
		t.Error("normalizeClient(nil) should be nil")
	}
}

func TestClientKey(t *testing.T) {
	t.Parallel()

	if got := ClientKey("abc", 2); got != "fishbone:client:abc:page:2" {
		t.Errorf("ClientKey = %q", got)
	}
	if got := ClientPrefix("abc"); got != "fishbone:client:abc" {
		t.Errorf("ClientPrefix = %q, want no trailing separator", got)
	}
}

func TestSession_ChangeHook(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0
	hook := func() {
		mu.Lock()
		calls++
		mu.Unlock()
	}
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return calls
	}

	cfg := DefaultConfig()
	exec := resilience.New(cfg.Retry, resilience.WithSleep(noSleep))
	s := NewSession(newFakeQuerier(), cfg, WithExecutor(exec), WithChangeHook(hook))
	defer s.Close()

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := count(); got != 1 {
		t.Errorf("calls after Start = %d, want 1", got)
	}

	// Once when the selection is applied and once when its load finishes.
	if err := s.SelectClientNow(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	if got := count(); got != 3 {
		t.Errorf("calls after selection = %d, want 3", got)
	}

	if err := s.LoadMore(context.Background(), 0); err == nil {
		t.Fatal("LoadMore(0) should be rejected")
	}
	if got := count(); got != 3 {
		t.Errorf("rejected LoadMore notified: calls = %d", got)
	}

	if err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := count(); got != 4 {
		t.Errorf("calls after Refresh = %d, want 4", got)
	}
}

func TestSession_LoadMoreNeverDuplicatesPages(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	s := newTestSession(q, func(c *Config) { c.PageSize = 2 })
	defer s.Close()

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.SelectClientNow(ctx, "c1"); err != nil {
		t.Fatal(err)
	}

	if err := s.LoadMore(ctx, 2); !errors.Is(err, ErrPageOutOfOrder) {
		t.Errorf("LoadMore(2) after page 0 = %v, want ErrPageOutOfOrder", err)
	}
	if page, _ := s.Clients().Page("c1"); page != 0 {
		t.Errorf("page after skipped request = %d, want 0", page)
	}

	if err := s.LoadMore(ctx, 1); err != nil {
		t.Fatal(err)
	}
	want := s.Snapshot()
	if len(want.Mappings) != 3 {
		t.Fatalf("mappings after page 1 = %d, want 3", len(want.Mappings))
	}

	for i := 0; i < 2; i++ {
		if err := s.LoadMore(ctx, 1); err != nil {
			t.Fatalf("repeat LoadMore(1) error = %v", err)
		}
	}
	got := s.Snapshot()
	if len(got.Mappings) != 3 {
		t.Errorf("mappings after repeats = %d, want 3", len(got.Mappings))
	}
	if got.Metrics.TotalSuppliers != want.Metrics.TotalSuppliers || got.Metrics.TotalPartners != want.Metrics.TotalPartners {
		t.Errorf("metrics drifted: %+v, want %+v", got.Metrics, want.Metrics)
	}

	// Page 1 is cached now; applying it straight to the loader twice still
	// adds it once.
	loader := s.Clients()
	if err := loader.Load(ctx, "c1", 0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := loader.Load(ctx, "c1", 1); err != nil {
			t.Fatal(err)
		}
	}
	if n := len(loader.Mappings("c1")); n != 3 {
		t.Errorf("mappings after cached page 1 twice = %d, want 3", n)
	}
	if q.count("mappings") != 2 {
		t.Errorf("remote mapping calls = %d, want 2", q.count("mappings"))
	}
}

func TestSession_UnknownClientFailsWithoutRetry(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	s := newTestSession(q)
	defer s.Close()

	err := s.SelectClientNow(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("SelectClientNow(missing) = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "attempt 1/3") {
		t.Errorf("error = %q, want it to stop at the first attempt", err)
	}
	if q.count("client") != 1 {
		t.Errorf("client lookups = %d, want 1", q.count("client"))
	}
	if msg := s.Snapshot().Errors.Client; !strings.Contains(msg, "not found") {
		t.Errorf("Errors.Client = %q", msg)
	}
}

// An append served from the cache must not cancel a page 0 load of the same
// client that is still in flight.
func TestClientLoader_AppendHitKeepsPageZeroLoad(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	s := newTestSession(q, func(c *Config) { c.PageSize = 2 })
	defer s.Close()
	loader := s.Clients()

	ctx := context.Background()
	if err := loader.Load(ctx, "c1", 0); err != nil {
		t.Fatal(err)
	}
	if err := loader.Load(ctx, "c1", 1); err != nil {
		t.Fatal(err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	q.mu.Lock()
	q.onClient = func(ctx context.Context, id string) (*models.ClientRow, error) {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return &models.ClientRow{ID: id, Name: "Acme Renamed", Active: true}, nil
	}
	q.mu.Unlock()

	s.Cache().Delete(ClientKey("c1", 0))
	done := make(chan error, 1)
	go func() { done <- loader.Load(ctx, "c1", 0) }()
	<-started

	if err := loader.Load(ctx, "c1", 1); err != nil {
		t.Fatalf("cached append error = %v", err)
	}
	close(release)

	if err := <-done; err != nil {
		t.Fatalf("page 0 load error = %v, want it to complete", err)
	}
	if got := loader.Client("c1"); got == nil || got.Name != "Acme Renamed" {
		t.Errorf("client = %+v, want the reloaded entity", got)
	}
	if page, _ := loader.Page("c1"); page != 0 {
		t.Errorf("page = %d, want 0 after the reload", page)
	}
}
