// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

/*
Package resilience runs remote calls with bounded retries and per-slot
supersession.

# Retry

Execute makes up to MaxAttempts calls. After a failed attempt it waits
BaseDelay × attempt (Linear) or BaseDelay × 2^(attempt-1) (Exponential),
capped at MaxDelay, and logs a warning carrying the attempt index. When every
attempt fails the last error is returned wrapped as "attempt N/N failed".

# Supersession

Every invocation names a slot. Starting a new invocation for a busy slot
cancels the older one's context. The older invocation stops retrying and
returns ErrCancelled; if its call already returned a result, that result is
discarded instead of committed:

	err := resilience.Execute(ctx, exec, "client:"+id, fetchClient, func(c Client) {
	    state.client = c // runs only if no newer request for this client started
	})
	if resilience.IsCancelled(err) {
	    return nil // superseded, stay silent
	}

The commit function runs under the executor lock, so the ownership check and
the state write cannot interleave with a newer claim.
*/
package resilience
