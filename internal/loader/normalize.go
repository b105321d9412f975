// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package loader

import (
	"strings"

	"github.com/tomtom215/fishbone/internal/metrics"
	"github.com/tomtom215/fishbone/internal/models"
)

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func dropped(entity, reason string) {
	metrics.StoreRowsDropped.WithLabelValues(entity, reason).Inc()
}

// normalizeStages drops stages and sub-stages without an identity and makes
// every sub-stage list non-nil.
func normalizeStages(in []models.Stage) []models.Stage {
	out := make([]models.Stage, 0, len(in))
	for _, s := range in {
		if blank(s.ID) {
			dropped("stage", "missing_id")
			continue
		}
		subs := make([]models.SubStage, 0, len(s.SubStages))
		for _, sub := range s.SubStages {
			if blank(sub.ID) {
				dropped("substage", "missing_id")
				continue
			}
			subs = append(subs, sub)
		}
		s.SubStages = subs
		out = append(out, s)
	}
	return out
}

// normalizeOptions turns roster rows into client options. Rows without an
// identity or whose owner join failed are dropped.
func normalizeOptions(rows []models.ClientOptionRow) []models.ClientOption {
	out := make([]models.ClientOption, 0, len(rows))
	for _, r := range rows {
		if blank(r.ID) {
			dropped("client_option", "missing_id")
			continue
		}
		if r.OwnerID == nil {
			dropped("client_option", "missing_owner")
			continue
		}
		out = append(out, models.ClientOption{
			ID:       r.ID,
			Name:     r.Name,
			Category: r.Category,
			Owner: models.CompanyRef{
				ID:       *r.OwnerID,
				Name:     deref(r.OwnerName),
				Category: deref(r.OwnerCategory),
			},
		})
	}
	return out
}

// normalizeClient converts a single-client row. The owner is optional.
func normalizeClient(r *models.ClientRow) *models.Client {
	if r == nil || blank(r.ID) {
		return nil
	}
	c := &models.Client{
		ID:       r.ID,
		Name:     r.Name,
		Category: r.Category,
		Active:   r.Active,
	}
	if r.OwnerID != nil {
		c.Owner = models.CompanyRef{ID: *r.OwnerID, Name: deref(r.OwnerName), Category: deref(r.OwnerCategory)}
	}
	return c
}

// normalizeMappings converts mapping rows. Rows without an identity and
// inactive rows are dropped. A row whose supplier join failed is kept with a
// nil Supplier so shape validation can flag it; the assembler skips it.
func normalizeMappings(rows []models.MappingRow) []models.SupplierMapping {
	out := make([]models.SupplierMapping, 0, len(rows))
	for _, r := range rows {
		if blank(r.ID) {
			dropped("mapping", "missing_id")
			continue
		}
		if !r.Active {
			dropped("mapping", "inactive")
			continue
		}

		m := models.SupplierMapping{
			ID:         r.ID,
			ClientID:   r.ClientID,
			StageID:    r.StageID,
			SupplierID: r.SupplierID,
			Active:     r.Active,
		}
		if r.SubStageID != nil && !blank(*r.SubStageID) {
			sub := *r.SubStageID
			m.SubStageID = &sub
		}
		if r.SupplierName != nil {
			m.Supplier = &models.CompanyRef{
				ID:       r.SupplierID,
				Name:     *r.SupplierName,
				Category: deref(r.SupplierCategory),
			}
		} else {
			dropped("mapping", "missing_supplier")
		}
		out = append(out, m)
	}
	return out
}
