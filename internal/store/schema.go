// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/fishbone/internal/logging"
	"github.com/tomtom215/fishbone/internal/models"
)

// schemaContext bounds schema and seed operations.
func schemaContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, 60*time.Second)
}

// The DDL sticks to types and clauses DuckDB and PostgreSQL both accept.
var tableCreationQueries = []string{
	`CREATE TABLE IF NOT EXISTS companies (
		id TEXT PRIMARY KEY,
		nome TEXT NOT NULL,
		categoria TEXT NOT NULL,
		owner_id TEXT,
		ativo BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS journey_stages (
		id TEXT PRIMARY KEY,
		nome TEXT NOT NULL,
		ordem INTEGER NOT NULL,
		ativo BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS journey_substages (
		id TEXT PRIMARY KEY,
		stage_id TEXT NOT NULL,
		nome TEXT NOT NULL,
		ordem INTEGER NOT NULL,
		ativo BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS supplier_mappings (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		stage_id TEXT NOT NULL,
		subnivel_id TEXT,
		supplier_id TEXT NOT NULL,
		ativo BOOLEAN NOT NULL DEFAULT true
	)`,
	`CREATE INDEX IF NOT EXISTS idx_companies_categoria ON companies(categoria)`,
	`CREATE INDEX IF NOT EXISTS idx_substages_stage ON journey_substages(stage_id)`,
	`CREATE INDEX IF NOT EXISTS idx_mappings_client ON supplier_mappings(client_id)`,
}

// Migrate creates the tables and indexes if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	ctx, cancel := schemaContext(ctx)
	defer cancel()

	for _, query := range tableCreationQueries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}
	return nil
}

// SeedData is a small demo dataset: two internal groups, three clients,
// a handful of suppliers and a four-stage journey.
type SeedData struct {
	Companies []SeedCompany
	Stages    []SeedStage
	SubStages []SeedSubStage
	Mappings  []SeedMapping
}

// SeedCompany is a companies row.
type SeedCompany struct {
	ID, Name, Category string
	OwnerID            *string
	Active             bool
}

// SeedStage is a journey_stages row.
type SeedStage struct {
	ID, Name string
	Order    int
	Active   bool
}

// SeedSubStage is a journey_substages row.
type SeedSubStage struct {
	ID, StageID, Name string
	Order             int
	Active            bool
}

// SeedMapping is a supplier_mappings row.
type SeedMapping struct {
	ID, ClientID, StageID string
	SubStageID            *string
	SupplierID            string
	Active                bool
}

// DemoData builds the demo dataset with fresh uuid identities.
func DemoData() SeedData {
	id := func() string { return uuid.New().String() }

	groupA, groupB := id(), id()
	acme, globex, initech := id(), id(), id()
	partnerX, partnerY, supplierZ, supplierW := id(), id(), id(), id()

	discovery, onboarding, delivery, renewal := id(), id(), id(), id()
	kickoff, training := id(), id()

	d := SeedData{
		Companies: []SeedCompany{
			{ID: groupA, Name: "Grupo Alfa", Category: models.CategoryInternalGroup, Active: true},
			{ID: groupB, Name: "Grupo Beta", Category: models.CategoryInternalGroup, Active: true},
			{ID: acme, Name: "Acme", Category: models.CategoryClient, OwnerID: &groupA, Active: true},
			{ID: globex, Name: "Globex", Category: models.CategoryClient, OwnerID: &groupB, Active: true},
			{ID: initech, Name: "Initech", Category: models.CategoryClient, OwnerID: &groupA, Active: false},
			{ID: partnerX, Name: "Parceiro X", Category: models.CategoryPartner, Active: true},
			{ID: partnerY, Name: "Parceiro Y", Category: models.CategoryPartner, Active: true},
			{ID: supplierZ, Name: "Fornecedor Z", Category: models.CategorySupplier, Active: true},
			{ID: supplierW, Name: "Fornecedor W", Category: models.CategorySupplier, Active: true},
		},
		Stages: []SeedStage{
			{ID: discovery, Name: "Descoberta", Order: 1, Active: true},
			{ID: onboarding, Name: "Onboarding", Order: 2, Active: true},
			{ID: delivery, Name: "Entrega", Order: 3, Active: true},
			{ID: renewal, Name: "Renovação", Order: 4, Active: true},
		},
		SubStages: []SeedSubStage{
			{ID: kickoff, StageID: onboarding, Name: "Kickoff", Order: 1, Active: true},
			{ID: training, StageID: onboarding, Name: "Treinamento", Order: 2, Active: true},
		},
	}

	d.Mappings = []SeedMapping{
		{ID: id(), ClientID: acme, StageID: discovery, SupplierID: partnerX, Active: true},
		{ID: id(), ClientID: acme, StageID: onboarding, SubStageID: &kickoff, SupplierID: supplierZ, Active: true},
		{ID: id(), ClientID: acme, StageID: delivery, SupplierID: partnerY, Active: true},
		{ID: id(), ClientID: acme, StageID: delivery, SupplierID: supplierW, Active: false},
		{ID: id(), ClientID: globex, StageID: discovery, SupplierID: supplierW, Active: true},
		{ID: id(), ClientID: globex, StageID: renewal, SupplierID: partnerX, Active: true},
	}
	return d
}

// Seed inserts data in one transaction. It does nothing when journey_stages
// already has rows.
func (s *SQLStore) Seed(ctx context.Context, data SeedData) (err error) {
	ctx, cancel := schemaContext(ctx)
	defer cancel()

	var existing int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journey_stages`).Scan(&existing); err != nil {
		return fmt.Errorf("count stages: %w", err)
	}
	if existing > 0 {
		logging.Debug().Int("stages", existing).Msg("Seed skipped, data present")
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, c := range data.Companies {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO companies (id, nome, categoria, owner_id, ativo) VALUES ($1, $2, $3, $4, $5)`,
			c.ID, c.Name, c.Category, c.OwnerID, c.Active); err != nil {
			return fmt.Errorf("seed company %s: %w", c.Name, err)
		}
	}
	for _, st := range data.Stages {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO journey_stages (id, nome, ordem, ativo) VALUES ($1, $2, $3, $4)`,
			st.ID, st.Name, st.Order, st.Active); err != nil {
			return fmt.Errorf("seed stage %s: %w", st.Name, err)
		}
	}
	for _, sub := range data.SubStages {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO journey_substages (id, stage_id, nome, ordem, ativo) VALUES ($1, $2, $3, $4, $5)`,
			sub.ID, sub.StageID, sub.Name, sub.Order, sub.Active); err != nil {
			return fmt.Errorf("seed sub-stage %s: %w", sub.Name, err)
		}
	}
	for _, m := range data.Mappings {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO supplier_mappings (id, client_id, stage_id, subnivel_id, supplier_id, ativo) VALUES ($1, $2, $3, $4, $5, $6)`,
			m.ID, m.ClientID, m.StageID, m.SubStageID, m.SupplierID, m.Active); err != nil {
			return fmt.Errorf("seed mapping %s: %w", m.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}

	logging.Info().
		Int("companies", len(data.Companies)).
		Int("stages", len(data.Stages)).
		Int("mappings", len(data.Mappings)).
		Msg("Seeded demo data")
	return nil
}
