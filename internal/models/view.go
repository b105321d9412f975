// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package models

// SupplierEntry is a supplier rendered inside the assembled view.
type SupplierEntry struct {
	MappingID string `json:"mapping_id"`
	CompanyID string `json:"id" validate:"required,notblank"`
	Name      string `json:"nome" validate:"required,notblank"`
	Category  string `json:"categoria"`
}

// SubStageNode is a sub-stage of the assembled view with its suppliers.
type SubStageNode struct {
	ID        string          `json:"id" validate:"required,notblank"`
	Name      string          `json:"nome" validate:"required,notblank"`
	Order     int             `json:"ordem"`
	Suppliers []SupplierEntry `json:"fornecedores"`
}

// StageNode is a stage of the assembled view. Gaps is 1 when neither the
// stage nor any of its sub-stages has a supplier, otherwise 0.
type StageNode struct {
	ID        string          `json:"id" validate:"required,notblank"`
	Name      string          `json:"nome" validate:"required,notblank"`
	Order     int             `json:"ordem"`
	Suppliers []SupplierEntry `json:"fornecedores"`
	SubStages []SubStageNode  `json:"subniveis"`
	Gaps      int             `json:"gaps"`
}

// SupplierCount returns the number of suppliers in the stage and all of its
// sub-stages.
func (n *StageNode) SupplierCount() int {
	total := len(n.Suppliers)
	for i := range n.SubStages {
		total += len(n.SubStages[i].Suppliers)
	}
	return total
}
