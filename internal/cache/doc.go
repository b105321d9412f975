// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

/*
Package cache provides the bounded, lazily-expiring cache shared by the
Fishbone entity loaders.

# Overview

A Cache holds at most Capacity entries. Every entry records:

  - the payload (any type)
  - its insertion time
  - an access counter, 1 on Set and incremented on every hit

Entries older than the TTL are never returned. The check happens on Get and
the stale entry is deleted at that moment; there is no sweep goroutine.

# Eviction

When the cache is full and Set receives a new key, the entry with the lowest
access counter is evicted. This approximates least-frequently-used, not
least-recently-used: an entry read ten times an hour ago outlives an entry
read once a second ago. Ties go to the entry that reached the counter first.

Counts are kept in per-count linked lists (same layout as a classic O(1) LFU),
so Get, Set and eviction do not scan the map.

# Usage

	c := cache.New(100, 5*time.Minute)

	key := cache.Key("fishbone", "client", id, "page", "0")
	if v, ok := c.Get(key); ok {
	    return v.(ClientPage), nil
	}

	page, err := load(ctx, id)
	if err != nil {
	    return ClientPage{}, err
	}
	c.Set(key, page)

Refresh after a mutation drops every page of a client at once:

	c.DeletePrefix(cache.Key("fishbone", "client", id) + cache.KeySeparator)

# Typed access

Typed[V] wraps a shared Cache for one payload type, so several loaders can
share one capacity budget while each keeps compile-time types:

	stages := cache.NewTyped[[]models.Stage](c)

# Thread Safety

All methods take a single mutex. Loaders writing the same key concurrently
resolve last-writer-wins; a lost write only costs a later miss.

# Testing

WithClock injects the time source so TTL expiry is tested without sleeping:

	now := time.Now()
	c := cache.New(10, time.Minute, cache.WithClock(func() time.Time { return now }))
	c.Set("k", 1)
	now = now.Add(2 * time.Minute)
	_, ok := c.Get("k") // false, entry removed
*/
package cache
