// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package store

import (
	"context"
	"errors"

	"github.com/tomtom215/fishbone/internal/models"
)

var (
	// ErrNotFound is returned by QueryClient when no client has the id.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedDriver is returned by Open for an unknown driver name.
	ErrUnsupportedDriver = errors.New("unsupported database driver")
)

// Querier is the relational read interface the loaders depend on.
//
// Every method honors ctx; an aborted call returns an error wrapping
// context.Canceled.
type Querier interface {
	// QueryStages returns active stages ordered by ordem, each with its
	// sub-stages (active or not) ordered by ordem.
	QueryStages(ctx context.Context) ([]models.Stage, error)

	// QueryClientOptions returns active clients owned by an internal group
	// company, joined to their owner.
	QueryClientOptions(ctx context.Context) ([]models.ClientOptionRow, error)

	// QueryClient looks up one client by id, active or not.
	QueryClient(ctx context.Context, id string) (*models.ClientRow, error)

	// QueryMappings returns one page of active supplier mappings for a
	// client, left-joined to the supplier company.
	QueryMappings(ctx context.Context, clientID string, limit, offset int) ([]models.MappingRow, error)
}
