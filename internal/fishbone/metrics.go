// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package fishbone

import (
	"math"

	"github.com/tomtom215/fishbone/internal/models"
)

// Metrics summarizes an assembled view.
type Metrics struct {
	TotalStages        int            `json:"total_stages"`
	TotalSuppliers     int            `json:"total_suppliers"`
	TotalPartners      int            `json:"total_partners"`
	CoveragePercentage int            `json:"coverage_percentage"`
	PartnerRatio       float64        `json:"partner_ratio"`
	SupplierRatio      float64        `json:"supplier_ratio"`
	GapMap             map[string]int `json:"gap_map"`
	CriticalGaps       []string       `json:"critical_gaps"`
	CacheHitRate       float64        `json:"cache_hit_rate"`
}

// Calculate derives coverage metrics from view and the loaders' cache
// counters. It is a pure function of its inputs.
//
// GapMap counts empty levels per stage. A stage without active sub-stages has
// one level (its own); otherwise each sub-stage is a level and the stage's own
// supplier list is not counted as a gap.
func Calculate(view []models.StageNode, cacheHits, cacheMisses int64) Metrics {
	m := Metrics{
		TotalStages:  len(view),
		GapMap:       make(map[string]int, len(view)),
		CriticalGaps: []string{},
	}

	covered := 0
	for i := range view {
		node := &view[i]

		count := node.SupplierCount()
		m.TotalSuppliers += count
		m.TotalPartners += countPartners(node)

		if count > 0 {
			covered++
		} else {
			m.CriticalGaps = append(m.CriticalGaps, node.ID)
		}

		m.GapMap[node.ID] = emptyLevels(node)
	}

	if m.TotalStages > 0 {
		m.CoveragePercentage = int(math.Round(100 * float64(covered) / float64(m.TotalStages)))
	}

	denom := float64(max(m.TotalSuppliers, 1))
	m.PartnerRatio = float64(m.TotalPartners) / denom
	m.SupplierRatio = float64(m.TotalSuppliers-m.TotalPartners) / denom

	m.CacheHitRate = float64(cacheHits) / float64(max(cacheHits+cacheMisses, 1))

	return m
}

func countPartners(node *models.StageNode) int {
	n := 0
	for _, s := range node.Suppliers {
		if s.Category == models.CategoryPartner {
			n++
		}
	}
	for i := range node.SubStages {
		for _, s := range node.SubStages[i].Suppliers {
			if s.Category == models.CategoryPartner {
				n++
			}
		}
	}
	return n
}

func emptyLevels(node *models.StageNode) int {
	if len(node.SubStages) == 0 {
		if len(node.Suppliers) == 0 {
			return 1
		}
		return 0
	}

	empty := 0
	for i := range node.SubStages {
		if len(node.SubStages[i].Suppliers) == 0 {
			empty++
		}
	}
	return empty
}
