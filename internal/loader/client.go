// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package loader

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/tomtom215/fishbone/internal/cache"
	"github.com/tomtom215/fishbone/internal/models"
	"github.com/tomtom215/fishbone/internal/resilience"
	"github.com/tomtom215/fishbone/internal/store"
	"github.com/tomtom215/fishbone/internal/validation"
)

// DefaultPageSize is the number of mappings fetched per page.
const DefaultPageSize = 100

// ClientKey returns the cache key of one mapping page of a client.
//
//	fishbone:client:<id>:page:<n>
func ClientKey(clientID string, page int) string {
	return cache.Key(ClientPrefix(clientID), "page", strconv.Itoa(page))
}

// ClientPrefix is the key prefix shared by every cached page of a client. It
// has no trailing separator; append cache.KeySeparator before a prefix
// delete so "c1" never matches "c10".
func ClientPrefix(clientID string) string {
	return cache.Key("fishbone", "client", clientID)
}

// clientSlot runs page 0 loads of a client; appendSlot runs its later pages.
// A page 0 load supersedes both, an append only the previous append.
func clientSlot(clientID string) string {
	return "client:" + clientID
}

func appendSlot(clientID string) string {
	return "client:" + clientID + ":append"
}

// clientPage is the cached payload of one ClientLoader request.
type clientPage struct {
	Client   *models.Client
	Mappings []models.SupplierMapping
	HasMore  bool
}

// clientState is what ClientLoader keeps per client.
type clientState struct {
	status

	mu       sync.RWMutex
	client   *models.Client
	mappings []models.SupplierMapping
	page     int
	hasMore  bool
	loaded   bool // page 0 committed
}

// ClientLoader loads one client entity and its supplier mappings, one page
// at a time. Page 0 replaces what was loaded before; page n appends only
// when page n-1 is the last one committed, so a page is never applied twice.
type ClientLoader struct {
	telemetry

	env      *env
	q        store.Querier
	pageSize int

	mu      sync.Mutex
	clients map[string]*clientState
}

func newClientLoader(e *env, q store.Querier, pageSize int) *ClientLoader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ClientLoader{
		env:      e,
		q:        q,
		pageSize: pageSize,
		clients:  make(map[string]*clientState),
	}
}

func (l *ClientLoader) state(clientID string) *clientState {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.clients[clientID]
	if !ok {
		st = &clientState{}
		l.clients[clientID] = st
	}
	return st
}

func (l *ClientLoader) lookup(clientID string) (*clientState, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.clients[clientID]
	return st, ok
}

// Load fetches page of clientID's mappings (and, for page 0, the client
// entity).
func (l *ClientLoader) Load(ctx context.Context, clientID string, page int) error {
	if page < 0 {
		page = 0
	}
	st := l.state(clientID)

	slot, supersedes := clientSlot(clientID), []string{appendSlot(clientID)}
	if page > 0 {
		slot, supersedes = appendSlot(clientID), nil
	}

	return runLoad(ctx, l.env, &st.status, &l.telemetry, request[clientPage]{
		loader:     "client",
		slot:       slot,
		supersedes: supersedes,
		key:        ClientKey(clientID, page),
		errText:    "failed to load client",
		fetch: func(ctx context.Context) (clientPage, error) {
			return l.fetch(ctx, clientID, page)
		},
		commit: func(p clientPage) {
			if !st.apply(p, page) {
				l.env.logger.Debug().Str("client_id", clientID).Int("page", page).Msg("out of order page dropped")
			}
		},
	})
}

func (l *ClientLoader) fetch(ctx context.Context, clientID string, page int) (clientPage, error) {
	var out clientPage

	if page == 0 {
		row, err := l.q.QueryClient(ctx, clientID)
		if errors.Is(err, store.ErrNotFound) {
			return out, resilience.Permanent(err)
		}
		if err != nil {
			return out, err
		}
		out.Client = normalizeClient(row)
		res := validation.Client(out.Client)
		res.Log(l.env.logger, "client")
	}

	rows, err := l.q.QueryMappings(ctx, clientID, l.pageSize, page*l.pageSize)
	if err != nil {
		return out, err
	}
	out.HasMore = len(rows) == l.pageSize
	out.Mappings = normalizeMappings(rows)

	res := validation.Mappings(out.Mappings)
	res.Log(l.env.logger, "mappings")
	return out, nil
}

// apply commits p as page. An append that does not directly follow the last
// committed page is dropped and apply reports false.
func (st *clientState) apply(p clientPage, page int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if page == 0 {
		st.client = p.Client
		st.mappings = p.Mappings
		st.loaded = true
	} else {
		if !st.loaded || page != st.page+1 {
			return false
		}
		if p.Client != nil {
			st.client = p.Client
		}
		merged := make([]models.SupplierMapping, 0, len(st.mappings)+len(p.Mappings))
		merged = append(merged, st.mappings...)
		merged = append(merged, p.Mappings...)
		st.mappings = merged
	}
	st.page = page
	st.hasMore = p.HasMore
	return true
}

// Client returns the loaded client entity, or nil.
func (l *ClientLoader) Client(clientID string) *models.Client {
	st, ok := l.lookup(clientID)
	if !ok {
		return nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.client
}

// Mappings returns every loaded mapping page of clientID, in page order.
func (l *ClientLoader) Mappings(clientID string) []models.SupplierMapping {
	st, ok := l.lookup(clientID)
	if !ok {
		return nil
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.mappings
}

// Page returns the last loaded page number and whether another page may
// exist.
func (l *ClientLoader) Page(clientID string) (page int, hasMore bool) {
	st, ok := l.lookup(clientID)
	if !ok {
		return 0, false
	}
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.page, st.hasMore
}

// Loading reports whether a load for clientID is in flight.
func (l *ClientLoader) Loading(clientID string) bool {
	st, ok := l.lookup(clientID)
	return ok && st.Loading()
}

// AnyLoading reports whether a load for any client is in flight.
func (l *ClientLoader) AnyLoading() bool {
	l.mu.Lock()
	states := make([]*clientState, 0, len(l.clients))
	for _, st := range l.clients {
		states = append(states, st)
	}
	l.mu.Unlock()

	for _, st := range states {
		if st.Loading() {
			return true
		}
	}
	return false
}

// Err returns the last load error for clientID.
func (l *ClientLoader) Err(clientID string) string {
	st, ok := l.lookup(clientID)
	if !ok {
		return ""
	}
	return st.Err()
}

// Forget drops the in-memory state of clients not in keep.
func (l *ClientLoader) Forget(keep []string) {
	wanted := make(map[string]bool, len(keep))
	for _, id := range keep {
		wanted[id] = true
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for id := range l.clients {
		if !wanted[id] {
			delete(l.clients, id)
		}
	}
}
