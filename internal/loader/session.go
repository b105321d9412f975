// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/fishbone/internal/cache"
	"github.com/tomtom215/fishbone/internal/coalesce"
	"github.com/tomtom215/fishbone/internal/fishbone"
	"github.com/tomtom215/fishbone/internal/metrics"
	"github.com/tomtom215/fishbone/internal/models"
	"github.com/tomtom215/fishbone/internal/resilience"
	"github.com/tomtom215/fishbone/internal/store"
	"github.com/tomtom215/fishbone/internal/validation"
)

var (
	// ErrNoActiveClient is returned by LoadMore when no client is selected.
	ErrNoActiveClient = errors.New("no active client")

	// ErrPageOutOfOrder is returned by LoadMore for a page past the next one.
	ErrPageOutOfOrder = errors.New("page out of order")
)

// Config tunes a Session.
type Config struct {
	CacheCapacity int
	CacheTTL      time.Duration
	Retry         resilience.Config
	Debounce      time.Duration
	PageSize      int
}

// DefaultConfig returns the session defaults.
func DefaultConfig() Config {
	return Config{
		CacheCapacity: cache.DefaultCapacity,
		CacheTTL:      cache.DefaultTTL,
		Retry:         resilience.DefaultConfig(),
		Debounce:      coalesce.DefaultQuietPeriod,
		PageSize:      DefaultPageSize,
	}
}

// Option configures a Session.
type Option func(*sessionOptions)

type sessionOptions struct {
	logger   zerolog.Logger
	cache    *cache.Cache
	executor *resilience.Executor
	onChange func()
}

// WithLogger sets the session logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(o *sessionOptions) { o.logger = l }
}

// WithCache supplies the cache instead of building one from Config.
func WithCache(c *cache.Cache) Option {
	return func(o *sessionOptions) { o.cache = c }
}

// WithExecutor supplies the executor instead of building one from Config.
func WithExecutor(e *resilience.Executor) Option {
	return func(o *sessionOptions) { o.executor = e }
}

// WithChangeHook registers fn to run whenever the snapshot may have
// changed: after a selection change and after every load finishes. fn must
// not block.
func WithChangeHook(fn func()) Option {
	return func(o *sessionOptions) { o.onChange = fn }
}

// Session is the aggregation component: it owns the cache, the executor
// and the selection debouncer, and the three loaders that share them.
type Session struct {
	env      *env
	stages   *StageLoader
	options  *ClientOptionLoader
	clients  *ClientLoader
	debounce *coalesce.Debouncer[[]string]
	onChange func()

	// Debounced selections run on this context; Close cancels it.
	baseCtx context.Context
	cancel  context.CancelFunc

	mu       sync.RWMutex
	selected []string
}

// NewSession creates a session reading from q.
func NewSession(q store.Querier, cfg Config, opts ...Option) *Session {
	o := sessionOptions{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cache == nil {
		o.cache = cache.New(cfg.CacheCapacity, cfg.CacheTTL, cache.WithEvictionHook(func(string) {
			metrics.CacheEvictions.Inc()
		}))
	}
	if o.executor == nil {
		o.executor = resilience.New(cfg.Retry, resilience.WithLogger(o.logger))
	}

	e := &env{cache: o.cache, exec: o.executor, logger: o.logger}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Session{
		env:      e,
		stages:   newStageLoader(e, q),
		options:  newClientOptionLoader(e, q),
		clients:  newClientLoader(e, q, cfg.PageSize),
		baseCtx:  ctx,
		cancel:   cancel,
		onChange: o.onChange,
	}
	s.debounce = coalesce.New(cfg.Debounce, func(ids []string) {
		if err := s.selectNow(s.baseCtx, ids); err != nil && !resilience.IsCancelled(err) {
			s.env.logger.Warn().Err(err).Strs("client_ids", ids).Msg("debounced selection failed")
		}
	})
	return s
}

// Stages exposes the structure loader.
func (s *Session) Stages() *StageLoader { return s.stages }

// ClientOptions exposes the roster loader.
func (s *Session) ClientOptions() *ClientOptionLoader { return s.options }

// Clients exposes the per-client loader.
func (s *Session) Clients() *ClientLoader { return s.clients }

// Cache exposes the shared cache.
func (s *Session) Cache() *cache.Cache { return s.env.cache }

// Start loads structure and roster in parallel. A failure of one does not
// stop the other; the first error is returned.
func (s *Session) Start(ctx context.Context) error {
	defer s.changed()

	var g errgroup.Group
	g.Go(func() error { return ignoreCancel(s.stages.Load(ctx)) })
	g.Go(func() error { return ignoreCancel(s.options.Load(ctx)) })
	return g.Wait()
}

// SelectClients schedules a selection change. Bursts within the debounce
// period collapse into the last call. The first id becomes the active
// client; mappings of every id are loaded.
func (s *Session) SelectClients(ids ...string) {
	s.debounce.Trigger(dedupe(ids))
}

// FlushSelection applies a pending debounced selection immediately.
func (s *Session) FlushSelection() bool {
	return s.debounce.Flush()
}

// SelectionPending reports whether a debounced selection is scheduled.
func (s *Session) SelectionPending() bool {
	return s.debounce.Pending()
}

// SelectClientNow makes id the only selected client and loads it without
// debouncing.
func (s *Session) SelectClientNow(ctx context.Context, id string) error {
	return s.selectNow(ctx, dedupe([]string{id}))
}

func (s *Session) selectNow(ctx context.Context, ids []string) error {
	s.mu.Lock()
	previous := s.selected
	s.selected = ids
	s.mu.Unlock()

	// Loads for clients that are no longer selected are pointless now.
	for _, id := range previous {
		if !contains(ids, id) {
			s.env.exec.Cancel(clientSlot(id))
			s.env.exec.Cancel(appendSlot(id))
		}
	}
	s.clients.Forget(ids)

	if len(ids) > 0 {
		s.env.logger.Info().Strs("client_ids", ids).Msg("client selection changed")
	}
	s.changed()
	defer s.changed()
	return s.loadClients(ctx, ids, 0)
}

func (s *Session) loadClients(ctx context.Context, ids []string, page int) error {
	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			return ignoreCancel(s.clients.Load(ctx, id, page))
		})
	}
	return g.Wait()
}

// Refresh drops the cached structure, roster and every page of the selected
// clients, then reloads all of them. Callers use it after a mutation.
func (s *Session) Refresh(ctx context.Context) error {
	defer s.changed()
	ids := s.Selected()

	s.env.cache.Delete(StagesKey)
	s.env.cache.Delete(ClientOptionsKey)
	for _, id := range ids {
		s.env.cache.DeletePrefix(ClientPrefix(id) + cache.KeySeparator)
	}

	var g errgroup.Group
	g.Go(func() error { return ignoreCancel(s.stages.Load(ctx)) })
	g.Go(func() error { return ignoreCancel(s.options.Load(ctx)) })
	g.Go(func() error { return s.loadClients(ctx, ids, 0) })
	return g.Wait()
}

// LoadMore fetches mapping page for the active client and appends it. Only
// the page after the last loaded one is fetched; an already loaded page is a
// no-op.
func (s *Session) LoadMore(ctx context.Context, page int) error {
	active := s.Active()
	if active == "" {
		return ErrNoActiveClient
	}
	if page < 1 {
		return fmt.Errorf("page must be at least 1, got %d", page)
	}
	current, _ := s.clients.Page(active)
	if page <= current {
		return nil
	}
	if page > current+1 {
		return fmt.Errorf("%w: next page is %d, got %d", ErrPageOutOfOrder, current+1, page)
	}
	defer s.changed()
	return ignoreCancel(s.clients.Load(ctx, active, page))
}

// Selected returns the selected client ids.
func (s *Session) Selected() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.selected...)
}

// Active returns the active client id, or "".
func (s *Session) Active() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.selected) == 0 {
		return ""
	}
	return s.selected[0]
}

// CacheCounters returns the summed cache hits and misses of all loaders.
func (s *Session) CacheCounters() (hits, misses int64) {
	for _, c := range []interface{ Counters() (int64, int64) }{&s.stages.telemetry, &s.options.telemetry, &s.clients.telemetry} {
		h, m := c.Counters()
		hits += h
		misses += m
	}
	return hits, misses
}

// Loading is the per-loader loading state.
type Loading struct {
	Stages        bool `json:"stages"`
	ClientOptions bool `json:"client_options"`
	Client        bool `json:"client"`
	Any           bool `json:"any"`
}

// Errors holds the last error string of each loader.
type Errors struct {
	Stages        string `json:"stages,omitempty"`
	ClientOptions string `json:"client_options,omitempty"`
	Client        string `json:"client,omitempty"`
}

// Snapshot is a consistent-enough read of the session for consumers:
// previously loaded data stays present alongside the latest errors.
type Snapshot struct {
	SelectedClients []string                 `json:"selected_clients"`
	ActiveClient    string                   `json:"active_client"`
	Stages          []models.Stage           `json:"stages"`
	ClientOptions   []models.ClientOption    `json:"client_options"`
	Client          *models.Client           `json:"client"`
	Mappings        []models.SupplierMapping `json:"mappings"`
	Page            int                      `json:"page"`
	HasMore         bool                     `json:"has_more"`
	View            []models.StageNode       `json:"view"`
	Metrics         fishbone.Metrics         `json:"metrics"`
	Validation      validation.Result        `json:"validation"`
	Loading         Loading                  `json:"loading"`
	Errors          Errors                   `json:"errors"`
}

// Snapshot assembles the view from the current state. The view is derived
// on every call and never cached.
func (s *Session) Snapshot() Snapshot {
	selected := s.Selected()
	active := ""
	if len(selected) > 0 {
		active = selected[0]
	}

	stages := s.stages.Stages()
	client := s.clients.Client(active)
	mappings := s.clients.Mappings(active)
	page, hasMore := s.clients.Page(active)

	view := fishbone.Assemble(active, client, stages, mappings)
	hits, misses := s.CacheCounters()
	m := fishbone.Calculate(view, hits, misses)
	metrics.CoveragePercentage.Set(float64(m.CoveragePercentage))
	metrics.CacheSize.Set(float64(s.env.cache.Len()))

	result := validation.View(view)
	result.Merge(validation.Client(client))

	loading := Loading{
		Stages:        s.stages.Loading(),
		ClientOptions: s.options.Loading(),
		Client:        s.clients.AnyLoading(),
	}
	loading.Any = loading.Stages || loading.ClientOptions || loading.Client

	if selected == nil {
		selected = []string{}
	}

	return Snapshot{
		SelectedClients: selected,
		ActiveClient:    active,
		Stages:          stages,
		ClientOptions:   s.options.Options(),
		Client:          client,
		Mappings:        mappings,
		Page:            page,
		HasMore:         hasMore,
		View:            view,
		Metrics:         m,
		Validation:      result,
		Loading:         loading,
		Errors: Errors{
			Stages:        s.stages.Err(),
			ClientOptions: s.options.Err(),
			Client:        s.clients.Err(active),
		},
	}
}

func (s *Session) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

// Close stops the debouncer and cancels every in-flight load.
func (s *Session) Close() {
	s.debounce.Stop()
	s.env.exec.CancelAll()
	s.cancel()
}

func ignoreCancel(err error) error {
	if err != nil && resilience.IsCancelled(err) {
		return nil
	}
	return err
}

// dedupe trims ids, drops blanks and repeats, and keeps first-seen order.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
