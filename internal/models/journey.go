// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package models

// Stage is one step of a client's journey (funnel) as configured in the
// backend. Stages own their sub-stages.
type Stage struct {
	ID        string     `json:"id" validate:"required,notblank"`
	Name      string     `json:"nome" validate:"required,notblank"`
	Order     int        `json:"ordem"`
	Active    bool       `json:"ativo"`
	SubStages []SubStage `json:"subniveis"`
}

// SubStage is a finer-grained subdivision within a Stage.
type SubStage struct {
	ID      string `json:"id" validate:"required,notblank"`
	StageID string `json:"stage_id" validate:"required,notblank"`
	Name    string `json:"nome" validate:"required,notblank"`
	Order   int    `json:"ordem"`
	Active  bool   `json:"ativo"`
}

// ActiveSubStages returns the active sub-stages of s in their stored order.
func (s *Stage) ActiveSubStages() []SubStage {
	out := make([]SubStage, 0, len(s.SubStages))
	for _, sub := range s.SubStages {
		if sub.Active {
			out = append(out, sub)
		}
	}
	return out
}
