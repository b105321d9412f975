// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

/*
Package models defines the data structures shared by the Fishbone layers.

Three groups of types live here:

  - Entities: Stage, SubStage, ClientOption, Client and SupplierMapping, the
    typed form of what the loaders keep in session state.
  - Rows: ClientOptionRow, ClientRow and MappingRow, the raw store results
    before normalization. Joined references are pointers so that a failed
    join is visible to the loaders.
  - View nodes: StageNode, SubStageNode and SupplierEntry, the derived
    stage -> sub-stage -> supplier tree. View nodes are never persisted.

JSON tags follow the backend's column names (nome, ordem, ativo, subniveis)
so API consumers see the same field names as the original data source.

Validation tags are consumed by internal/validation; "notblank" is a custom
rule registered there that rejects whitespace-only strings.
*/
package models
