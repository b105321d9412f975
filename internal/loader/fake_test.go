// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package loader

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/fishbone/internal/models"
	"github.com/tomtom215/fishbone/internal/resilience"
	"github.com/tomtom215/fishbone/internal/store"
)

func strPtr(s string) *string { return &s }

// fakeQuerier serves fixed data and records calls. Hooks override a method
// when set.
type fakeQuerier struct {
	mu sync.Mutex

	stages   []models.Stage
	options  []models.ClientOptionRow
	clients  map[string]*models.ClientRow
	mappings map[string][]models.MappingRow

	stagesErr  error
	optionsErr error

	onClient   func(ctx context.Context, id string) (*models.ClientRow, error)
	onMappings func(ctx context.Context, clientID string, limit, offset int) ([]models.MappingRow, error)

	calls map[string]int
	ids   []string
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		stages: []models.Stage{
			{ID: "s1", Name: "Descoberta", Order: 1, Active: true, SubStages: []models.SubStage{}},
			{ID: "s2", Name: "Onboarding", Order: 2, Active: true, SubStages: []models.SubStage{
				{ID: "k", StageID: "s2", Name: "Kickoff", Order: 1, Active: true},
			}},
		},
		options: []models.ClientOptionRow{
			{ID: "c1", Name: "Acme", Category: "client", OwnerID: strPtr("g1"), OwnerName: strPtr("Grupo"), OwnerCategory: strPtr("internal_group")},
			{ID: "c2", Name: "Globex", Category: "client", OwnerID: strPtr("g1"), OwnerName: strPtr("Grupo"), OwnerCategory: strPtr("internal_group")},
		},
		clients: map[string]*models.ClientRow{
			"c1": {ID: "c1", Name: "Acme", Category: "client", Active: true},
			"c2": {ID: "c2", Name: "Globex", Category: "client", Active: true},
		},
		mappings: map[string][]models.MappingRow{
			"c1": {
				{ID: "m1", ClientID: "c1", StageID: "s1", SupplierID: "p1", Active: true, SupplierName: strPtr("Parceiro"), SupplierCategory: strPtr("partner")},
				{ID: "m2", ClientID: "c1", StageID: "s2", SubStageID: strPtr("k"), SupplierID: "p2", Active: true, SupplierName: strPtr("Fornecedor"), SupplierCategory: strPtr("supplier")},
				{ID: "m3", ClientID: "c1", StageID: "s2", SupplierID: "p3", Active: true},
			},
			"c2": {},
		},
		calls: make(map[string]int),
	}
}

func (f *fakeQuerier) record(method, id string) {
	f.mu.Lock()
	f.calls[method]++
	if id != "" {
		f.ids = append(f.ids, id)
	}
	f.mu.Unlock()
}

func (f *fakeQuerier) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeQuerier) clientIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids...)
}

func (f *fakeQuerier) QueryStages(ctx context.Context) ([]models.Stage, error) {
	f.record("stages", "")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stagesErr != nil {
		return nil, f.stagesErr
	}
	return append([]models.Stage(nil), f.stages...), nil
}

func (f *fakeQuerier) QueryClientOptions(ctx context.Context) ([]models.ClientOptionRow, error) {
	f.record("options", "")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.optionsErr != nil {
		return nil, f.optionsErr
	}
	return append([]models.ClientOptionRow(nil), f.options...), nil
}

func (f *fakeQuerier) QueryClient(ctx context.Context, id string) (*models.ClientRow, error) {
	f.record("client", id)
	if f.onClient != nil {
		return f.onClient(ctx, id)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.clients[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *row
	return &c, nil
}

func (f *fakeQuerier) QueryMappings(ctx context.Context, clientID string, limit, offset int) ([]models.MappingRow, error) {
	f.record("mappings", "")
	if f.onMappings != nil {
		return f.onMappings(ctx, clientID, limit, offset)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := f.mappings[clientID]
	if offset >= len(rows) {
		return []models.MappingRow{}, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return append([]models.MappingRow(nil), rows[offset:end]...), nil
}

func noSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

func newTestSession(q store.Querier, mutate ...func(*Config)) *Session {
	cfg := DefaultConfig()
	cfg.Debounce = 20 * time.Millisecond
	for _, m := range mutate {
		m(&cfg)
	}
	exec := resilience.New(cfg.Retry, resilience.WithSleep(noSleep))
	return NewSession(q, cfg, WithExecutor(exec))
}
