// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package models

// SupplierMapping links a client, a stage (optionally a sub-stage) and the
// company supplying it. Supplier is nil when the company join failed.
type SupplierMapping struct {
	ID         string      `json:"id" validate:"required,notblank"`
	ClientID   string      `json:"client_id" validate:"required,notblank"`
	StageID    string      `json:"stage_id" validate:"required,notblank"`
	SubStageID *string     `json:"subnivel_id,omitempty"`
	SupplierID string      `json:"supplier_id"`
	Active     bool        `json:"ativo"`
	Supplier   *CompanyRef `json:"supplier,omitempty" validate:"-"`
}

// IsDirect reports whether the mapping is attached to the stage itself
// rather than to one of its sub-stages.
func (m *SupplierMapping) IsDirect() bool {
	return m.SubStageID == nil || *m.SubStageID == ""
}

// MappingRow is a raw supplier-mapping row joined to the supplier company.
type MappingRow struct {
	ID               string
	ClientID         string
	StageID          string
	SubStageID       *string
	SupplierID       string
	Active           bool
	SupplierName     *string
	SupplierCategory *string
}
