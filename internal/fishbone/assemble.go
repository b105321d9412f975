// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package fishbone

import (
	"sort"

	"github.com/tomtom215/fishbone/internal/models"
)

// Assemble builds the stage → sub-stage → supplier tree for one client.
//
// Only active stages and active sub-stages appear, each level in ordinal
// order (ties keep input order). Mappings are kept when they belong to
// clientID, are active and carry a joined supplier; the rest are skipped.
// A mapping pointing at a sub-stage that is inactive or unknown is dropped
// rather than promoted to the stage level.
//
// Gaps is 1 when the stage has no supplier at any level and 0 otherwise.
//
// The result is never nil. It is empty when no client is selected, the stage
// structure has not been loaded, or client is a stale entity for another id.
// A nil client (entity still loading) does not block assembly.
func Assemble(clientID string, client *models.Client, stages []models.Stage, mappings []models.SupplierMapping) []models.StageNode {
	if clientID == "" || len(stages) == 0 {
		return []models.StageNode{}
	}
	if client != nil && client.ID != clientID {
		return []models.StageNode{}
	}

	direct, bySub := partition(clientID, mappings)

	active := make([]models.Stage, 0, len(stages))
	for _, s := range stages {
		if s.Active {
			active = append(active, s)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Order < active[j].Order
	})

	view := make([]models.StageNode, 0, len(active))
	for i := range active {
		stage := &active[i]

		subs := stage.ActiveSubStages()
		sort.SliceStable(subs, func(i, j int) bool {
			return subs[i].Order < subs[j].Order
		})

		node := models.StageNode{
			ID:        stage.ID,
			Name:      stage.Name,
			Order:     stage.Order,
			Suppliers: entriesOrEmpty(direct[stage.ID]),
			SubStages: make([]models.SubStageNode, 0, len(subs)),
		}

		for _, sub := range subs {
			node.SubStages = append(node.SubStages, models.SubStageNode{
				ID:        sub.ID,
				Name:      sub.Name,
				Order:     sub.Order,
				Suppliers: entriesOrEmpty(bySub[subKey{stage.ID, sub.ID}]),
			})
		}

		if node.SupplierCount() == 0 {
			node.Gaps = 1
		}
		view = append(view, node)
	}

	return view
}

type subKey struct {
	stageID    string
	subStageID string
}

// partition splits usable mappings into stage-level and sub-stage-level
// buckets, preserving input order within each bucket.
func partition(clientID string, mappings []models.SupplierMapping) (map[string][]models.SupplierEntry, map[subKey][]models.SupplierEntry) {
	direct := make(map[string][]models.SupplierEntry)
	bySub := make(map[subKey][]models.SupplierEntry)

	for i := range mappings {
		m := &mappings[i]
		if !m.Active || m.Supplier == nil || m.ClientID != clientID {
			continue
		}

		entry := models.SupplierEntry{
			MappingID: m.ID,
			CompanyID: m.Supplier.ID,
			Name:      m.Supplier.Name,
			Category:  m.Supplier.Category,
		}

		if m.IsDirect() {
			direct[m.StageID] = append(direct[m.StageID], entry)
			continue
		}
		k := subKey{m.StageID, *m.SubStageID}
		bySub[k] = append(bySub[k], entry)
	}

	return direct, bySub
}

func entriesOrEmpty(entries []models.SupplierEntry) []models.SupplierEntry {
	if entries == nil {
		return []models.SupplierEntry{}
	}
	return entries
}
