// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package cache

import (
	"strings"
	"sync"
	"time"
)

const (
	// DefaultCapacity is used when a non-positive capacity is requested.
	DefaultCapacity = 100

	// DefaultTTL is used when a non-positive TTL is requested.
	DefaultTTL = 5 * time.Minute
)

// entry is a cached payload with its insertion time and access counter.
type entry struct {
	key        string
	value      interface{}
	insertedAt time.Time
	count      int
	prev       *entry
	next       *entry
}

// countList is a doubly-linked list of entries sharing the same access count.
// New members are pushed to the front, so the back holds the entry that
// reached this count first.
type countList struct {
	head *entry
	tail *entry
	size int
}

func newCountList() *countList {
	l := &countList{head: &entry{}, tail: &entry{}}
	l.head.next = l.tail
	l.tail.prev = l.head
	return l
}

func (l *countList) pushFront(e *entry) {
	e.prev = l.head
	e.next = l.head.next
	l.head.next.prev = e
	l.head.next = e
	l.size++
}

func (l *countList) remove(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
	l.size--
}

func (l *countList) back() *entry {
	if l.size == 0 {
		return nil
	}
	return l.tail.prev
}

// Stats is a point-in-time copy of the cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
	Size        int
	Capacity    int
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the time source. Tests use it to move past the TTL
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithEvictionHook registers a callback invoked (with the lock held) for
// every entry removed to make room for a new key.
func WithEvictionHook(fn func(key string)) Option {
	return func(c *Cache) {
		c.onEvict = fn
	}
}

// Cache is a capacity-bounded key/value store with a fixed time-to-live.
//
// Eviction is frequency based: when the cache is full and a new key is
// stored, the entry with the lowest access counter is removed. Among entries
// with the same counter, the one that reached that counter first goes, which
// for never-read entries means the oldest insertion.
//
// Expiration is lazy. Get checks the entry age against the TTL and deletes
// stale entries on the spot; there is no background sweep, so an entry that
// is never read again stays until capacity pressure evicts it.
type Cache struct {
	mu sync.Mutex

	capacity int
	ttl      time.Duration
	now      func() time.Time
	onEvict  func(key string)

	entries  map[string]*entry
	byCount  map[int]*countList
	minCount int

	hits        int64
	misses      int64
	evictions   int64
	expirations int64
}

// New creates a cache holding at most capacity entries, each valid for ttl.
func New(capacity int, ttl time.Duration, opts ...Option) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &Cache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]*entry, capacity),
		byCount:  make(map[int]*countList),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the payload stored under key if it exists and is not older
// than the TTL. A hit increments the entry's access counter. An expired
// entry is deleted and reported as a miss.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	if c.now().Sub(e.insertedAt) > c.ttl {
		c.unlink(e)
		c.expirations++
		c.misses++
		return nil, false
	}

	c.touch(e)
	c.hits++
	return e.value, true
}

// Set stores value under key as a fresh entry: insertion time is now and the
// access counter is 1, even when the key already existed.
func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok {
		c.unlink(old)
	} else if len(c.entries) >= c.capacity {
		c.evict()
	}

	e := &entry{
		key:        key,
		value:      value,
		insertedAt: c.now(),
		count:      1,
	}
	c.listFor(1).pushFront(e)
	c.entries[key] = e
	c.minCount = 1
}

// Delete removes key. It reports whether the key was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.unlink(e)
	return true
}

// DeletePrefix removes every key starting with prefix and returns how many
// entries were dropped.
func (c *Cache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, e := range c.entries {
		if strings.HasPrefix(key, prefix) {
			c.unlink(e)
			removed++
		}
	}
	return removed
}

// Clear empties the cache unconditionally. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry, c.capacity)
	c.byCount = make(map[int]*countList)
	c.minCount = 0
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// AccessCount returns the access counter of key without touching it, or 0
// when the key is absent.
func (c *Cache) AccessCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		return e.count
	}
	return 0
}

// TTL returns the fixed time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Stats returns a copy of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		Size:        len(c.entries),
		Capacity:    c.capacity,
	}
}

// HitRate returns hits / (hits + misses), or 0 before the first lookup.
func (c *Cache) HitRate() float64 {
	s := c.Stats()
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Internal methods (must be called with lock held)

func (c *Cache) listFor(count int) *countList {
	l, ok := c.byCount[count]
	if !ok {
		l = newCountList()
		c.byCount[count] = l
	}
	return l
}

// touch moves e to the next access count.
func (c *Cache) touch(e *entry) {
	if l, ok := c.byCount[e.count]; ok {
		l.remove(e)
		if l.size == 0 {
			delete(c.byCount, e.count)
			if c.minCount == e.count {
				c.minCount++
			}
		}
	}
	e.count++
	c.listFor(e.count).pushFront(e)
}

// unlink removes e from its count list and from the key map.
func (c *Cache) unlink(e *entry) {
	if l, ok := c.byCount[e.count]; ok {
		l.remove(e)
		if l.size == 0 {
			delete(c.byCount, e.count)
		}
	}
	delete(c.entries, e.key)
}

// evict removes the entry with the lowest access count.
func (c *Cache) evict() {
	l, ok := c.byCount[c.minCount]
	if !ok || l.size == 0 {
		// minCount goes stale after deletes and expirations; recompute it.
		c.minCount = 0
		for count, candidate := range c.byCount {
			if candidate.size > 0 && (c.minCount == 0 || count < c.minCount) {
				c.minCount = count
			}
		}
		l, ok = c.byCount[c.minCount]
		if !ok {
			return
		}
	}

	victim := l.back()
	if victim == nil {
		return
	}
	c.unlink(victim)
	c.evictions++
	if c.onEvict != nil {
		c.onEvict(victim.key)
	}
}

// Typed is a type-safe facade over Cache for a single payload type.
type Typed[V any] struct {
	cache *Cache
}

// NewTyped wraps c. Several Typed views may share one Cache.
func NewTyped[V any](c *Cache) *Typed[V] {
	return &Typed[V]{cache: c}
}

// Get returns the payload for key if present, fresh and of type V.
func (t *Typed[V]) Get(key string) (V, bool) {
	var zero V
	value, found := t.cache.Get(key)
	if !found {
		return zero, false
	}
	typed, ok := value.(V)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Set stores value under key.
func (t *Typed[V]) Set(key string, value V) {
	t.cache.Set(key, value)
}

// Delete removes key.
func (t *Typed[V]) Delete(key string) bool {
	return t.cache.Delete(key)
}
