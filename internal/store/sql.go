// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "duckdb" database/sql driver.
	_ "github.com/duckdb/duckdb-go/v2"
	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tomtom215/fishbone/internal/logging"
	"github.com/tomtom215/fishbone/internal/metrics"
	"github.com/tomtom215/fishbone/internal/models"
)

// Supported driver names.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// Config selects and tunes the backing database.
type Config struct {
	// Driver is "duckdb" (embedded, default) or "postgres".
	Driver string

	// Path is the DuckDB file. Empty or ":memory:" opens an in-memory database.
	Path string

	// DSN is the PostgreSQL connection string (pgx format).
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SQLStore implements Querier over database/sql.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg Config) (*SQLStore, error) {
	driverName, dsn, err := resolveDriver(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		closeQuietly(db)
		return nil, fmt.Errorf("failed to ping %s: %w", cfg.Driver, err)
	}

	logging.Info().Str("driver", cfg.Driver).Msg("Database connected")
	return NewWithDB(db, cfg.Driver), nil
}

// NewWithDB wraps an existing connection. Tests pass a sqlmock handle.
func NewWithDB(db *sql.DB, driver string) *SQLStore {
	if driver == "" {
		driver = DriverDuckDB
	}
	return &SQLStore{db: db, driver: driver}
}

func resolveDriver(cfg Config) (driverName, dsn string, err error) {
	switch cfg.Driver {
	case "", DriverDuckDB:
		path := cfg.Path
		if path == "" || path == ":memory:" {
			return "duckdb", "", nil
		}
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return "", "", fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
		return "duckdb", path + "?access_mode=read_write&autoinstall_known_extensions=false&autoload_known_extensions=false", nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return "", "", errors.New("postgres driver requires a DSN")
		}
		return "pgx", cfg.DSN, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

// DB returns the underlying connection.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Driver returns the configured driver name.
func (s *SQLStore) Driver() string {
	return s.driver
}

// Ping checks the connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const (
	stagesQuery = `SELECT id, nome, ordem, ativo
		FROM journey_stages
		WHERE ativo = true
		ORDER BY ordem, id`

	subStagesQuery = `SELECT id, stage_id, nome, ordem, ativo
		FROM journey_substages
		ORDER BY stage_id, ordem, id`

	clientOptionsQuery = `SELECT c.id, c.nome, c.categoria, o.id, o.nome, o.categoria
		FROM companies c
		LEFT JOIN companies o ON o.id = c.owner_id
		WHERE c.categoria = $1 AND c.ativo = true AND o.categoria = $2
		ORDER BY c.nome, c.id`

	clientQuery = `SELECT c.id, c.nome, c.categoria, c.ativo, o.id, o.nome, o.categoria
		FROM companies c
		LEFT JOIN companies o ON o.id = c.owner_id
		WHERE c.id = $1`

	mappingsQuery = `SELECT m.id, m.client_id, m.stage_id, m.subnivel_id, m.supplier_id, m.ativo, s.nome, s.categoria
		FROM supplier_mappings m
		LEFT JOIN companies s ON s.id = m.supplier_id
		WHERE m.client_id = $1 AND m.ativo = true
		ORDER BY m.stage_id, m.id
		LIMIT $2 OFFSET $3`
)

// QueryStages implements Querier.
func (s *SQLStore) QueryStages(ctx context.Context) (stages []models.Stage, err error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("stages", time.Since(start), err) }()

	rows, err := s.db.QueryContext(ctx, stagesQuery)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer closeQuietly(rows)

	index := make(map[string]int)
	stages = []models.Stage{}
	for rows.Next() {
		var st models.Stage
		if err := rows.Scan(&st.ID, &st.Name, &st.Order, &st.Active); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		st.SubStages = []models.SubStage{}
		index[st.ID] = len(stages)
		stages = append(stages, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}

	subRows, err := s.db.QueryContext(ctx, subStagesQuery)
	if err != nil {
		return nil, fmt.Errorf("query sub-stages: %w", err)
	}
	defer closeQuietly(subRows)

	for subRows.Next() {
		var sub models.SubStage
		if err := subRows.Scan(&sub.ID, &sub.StageID, &sub.Name, &sub.Order, &sub.Active); err != nil {
			return nil, fmt.Errorf("scan sub-stage: %w", err)
		}
		// Sub-stages of inactive stages were not selected above.
		if i, ok := index[sub.StageID]; ok {
			stages[i].SubStages = append(stages[i].SubStages, sub)
		}
	}
	if err := subRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sub-stages: %w", err)
	}

	return stages, nil
}

// QueryClientOptions implements Querier.
func (s *SQLStore) QueryClientOptions(ctx context.Context) (options []models.ClientOptionRow, err error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("client_options", time.Since(start), err) }()

	rows, err := s.db.QueryContext(ctx, clientOptionsQuery, models.CategoryClient, models.CategoryInternalGroup)
	if err != nil {
		return nil, fmt.Errorf("query client options: %w", err)
	}
	defer closeQuietly(rows)

	options = []models.ClientOptionRow{}
	for rows.Next() {
		var o models.ClientOptionRow
		if err := rows.Scan(&o.ID, &o.Name, &o.Category, &o.OwnerID, &o.OwnerName, &o.OwnerCategory); err != nil {
			return nil, fmt.Errorf("scan client option: %w", err)
		}
		options = append(options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate client options: %w", err)
	}
	return options, nil
}

// QueryClient implements Querier.
func (s *SQLStore) QueryClient(ctx context.Context, id string) (client *models.ClientRow, err error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("client", time.Since(start), err) }()

	var c models.ClientRow
	err = s.db.QueryRowContext(ctx, clientQuery, id).
		Scan(&c.ID, &c.Name, &c.Category, &c.Active, &c.OwnerID, &c.OwnerName, &c.OwnerCategory)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query client %s: %w", id, err)
	}
	return &c, nil
}

// QueryMappings implements Querier.
func (s *SQLStore) QueryMappings(ctx context.Context, clientID string, limit, offset int) (mappings []models.MappingRow, err error) {
	start := time.Now()
	defer func() { metrics.RecordStoreQuery("mappings", time.Since(start), err) }()

	rows, err := s.db.QueryContext(ctx, mappingsQuery, clientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query mappings for client %s: %w", clientID, err)
	}
	defer closeQuietly(rows)

	mappings = []models.MappingRow{}
	for rows.Next() {
		var m models.MappingRow
		if err := rows.Scan(&m.ID, &m.ClientID, &m.StageID, &m.SubStageID, &m.SupplierID, &m.Active, &m.SupplierName, &m.SupplierCategory); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mappings: %w", err)
	}
	return mappings, nil
}

type closer interface {
	Close() error
}

func closeQuietly(c closer) {
	if c != nil {
		_ = c.Close() // best-effort cleanup
	}
}
