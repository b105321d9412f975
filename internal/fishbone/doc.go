// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

// Package fishbone derives the supplier-coverage view of a client's journey.
//
// Assemble joins stages, sub-stages and supplier mappings into an ordered
// tree; Calculate summarizes that tree. Both are pure functions: the same
// inputs always give the same output and nothing is cached here.
//
// Two gap signals coexist and are intentionally not unified. StageNode.Gaps
// is 0 or 1 (does the stage have any supplier at all). Metrics.GapMap counts
// the empty levels inside each stage.
package fishbone
