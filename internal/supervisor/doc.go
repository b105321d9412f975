// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

/*
Package supervisor runs the Fishbone services under a suture v4 tree.

The data layer warms the session (structure and roster) and optionally
refreshes it on an interval; the API layer serves HTTP. Each layer restarts
its own services with exponential backoff, so a failing store at startup
does not take the HTTP server down with it.

	logger := logging.NewSlog()
	tree, _ := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())
	tree.AddDataService(services.NewSessionService(session, 0))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	err := tree.Serve(ctx)

Adapters for concrete services live in the services subpackage.
*/
package supervisor
