// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

/*
Package loader fetches the entities behind the fishbone view and keeps them
in session state.

# Loaders

StageLoader (journey structure), ClientOptionLoader (client roster) and
ClientLoader (one client plus pages of its supplier mappings) share one
algorithm:

 1. look the request up in the session cache; a hit commits immediately
 2. on a miss, run the query through the resilience executor (retries,
    supersession per slot)
 3. normalize rows, run advisory shape validation, commit, write through
 4. on failure keep the previous state and record an error string;
    cancellations are silent

Every loader has its own loading flag and error string, so one failing
loader never blanks another's data.

# Session

Session owns the cache, the executor and the selection debouncer:

	s := loader.NewSession(querier, cfg, loader.WithLogger(logger))
	defer s.Close()

	if err := s.Start(ctx); err != nil { // stages and roster in parallel
	    logger.Warn().Err(err).Msg("initial load incomplete")
	}
	s.SelectClients("c1", "c2")           // debounced, c1 becomes active
	snap := s.Snapshot()                  // view, metrics, validation, flags

Refresh drops the cached entries of the structure, the roster and every page
of the selected clients, then reloads them. Mapping pages are only ever
invalidated this way; a mutation elsewhere must be followed by Refresh.
*/
package loader
