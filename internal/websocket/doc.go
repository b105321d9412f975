// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

/*
Package websocket pushes fishbone snapshots to browsers.

The Hub is created with a Source (the session snapshot) and is told about
changes through Notify, which the loader session calls via its change hook.
Notifications are coalesced: however many arrive while a broadcast is being
built, at most one more broadcast follows.

	┌──────────┐  Notify   ┌─────┐  snapshot frames  ┌──────────┐
	│ Session  │ ────────▶ │ Hub │ ────────────────▶ │ Client N │
	└──────────┘           └─────┘                   └──────────┘

Each client has a read pump (pings, disconnect detection) and a write pump
(frames, keep-alive pings). A client whose send buffer is full is dropped
rather than slowing the others.

Frames are JSON:

	{"type": "snapshot", "data": { ...loader.Snapshot... }}
	{"type": "pong", "data": null}

Clients may send {"type": "ping"} to check the connection. The hub runs
under the supervisor tree; cancelling its context closes every client.
*/
package websocket
