// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package loader

import (
	"context"
	"sync"

	"github.com/tomtom215/fishbone/internal/cache"
	"github.com/tomtom215/fishbone/internal/models"
	"github.com/tomtom215/fishbone/internal/store"
	"github.com/tomtom215/fishbone/internal/validation"
)

// Cache keys and executor slots of the structure and roster loaders.
var (
	StagesKey        = cache.Key("fishbone", "stages")
	ClientOptionsKey = cache.Key("fishbone", "client-options")
)

const (
	stagesSlot        = "stages"
	clientOptionsSlot = "client-options"
)

// StageLoader loads the journey structure.
type StageLoader struct {
	status
	telemetry

	env *env
	q   store.Querier

	mu     sync.RWMutex
	stages []models.Stage
}

func newStageLoader(e *env, q store.Querier) *StageLoader {
	return &StageLoader{env: e, q: q}
}

// Load fetches stages, from the cache when fresh.
func (l *StageLoader) Load(ctx context.Context) error {
	return runLoad(ctx, l.env, &l.status, &l.telemetry, request[[]models.Stage]{
		loader:  "stages",
		slot:    stagesSlot,
		key:     StagesKey,
		errText: "failed to load stages",
		fetch: func(ctx context.Context) ([]models.Stage, error) {
			rows, err := l.q.QueryStages(ctx)
			if err != nil {
				return nil, err
			}
			stages := normalizeStages(rows)
			res := validation.Stages(stages)
			res.Log(l.env.logger, "stages")
			return stages, nil
		},
		commit: func(stages []models.Stage) {
			l.mu.Lock()
			l.stages = stages
			l.mu.Unlock()
		},
	})
}

// Stages returns the loaded structure, or nil before the first load.
func (l *StageLoader) Stages() []models.Stage {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stages
}

// ClientOptionLoader loads the client roster.
type ClientOptionLoader struct {
	status
	telemetry

	env *env
	q   store.Querier

	mu      sync.RWMutex
	options []models.ClientOption
}

func newClientOptionLoader(e *env, q store.Querier) *ClientOptionLoader {
	return &ClientOptionLoader{env: e, q: q}
}

// Load fetches the roster, from the cache when fresh.
func (l *ClientOptionLoader) Load(ctx context.Context) error {
	return runLoad(ctx, l.env, &l.status, &l.telemetry, request[[]models.ClientOption]{
		loader:  "client_options",
		slot:    clientOptionsSlot,
		key:     ClientOptionsKey,
		errText: "failed to load clients",
		fetch: func(ctx context.Context) ([]models.ClientOption, error) {
			rows, err := l.q.QueryClientOptions(ctx)
			if err != nil {
				return nil, err
			}
			options := normalizeOptions(rows)
			res := validation.ClientOptions(options)
			res.Log(l.env.logger, "client_options")
			return options, nil
		},
		commit: func(options []models.ClientOption) {
			l.mu.Lock()
			l.options = options
			l.mu.Unlock()
		},
	})
}

// Options returns the loaded roster, or nil before the first load.
func (l *ClientOptionLoader) Options() []models.ClientOption {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.options
}
