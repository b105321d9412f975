// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

// Package coalesce collapses bursts of requests into one trailing action.
package coalesce

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is used when a non-positive period is requested.
const DefaultQuietPeriod = 300 * time.Millisecond

// Debouncer delays an action until no new trigger has arrived for the quiet
// period. Only the value of the last trigger in a burst reaches the action.
//
//	d := coalesce.New(300*time.Millisecond, func(ids []string) {
//	    session.selectNow(ids)
//	})
//	d.Trigger([]string{"a"})
//	d.Trigger([]string{"b"}) // within 300ms: only "b" is selected
type Debouncer[T any] struct {
	quiet  time.Duration
	action func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	value   T
	gen     uint64
	stopped bool
}

// New creates a debouncer that runs action after quiet has elapsed since the
// most recent Trigger.
func New[T any](quiet time.Duration, action func(T)) *Debouncer[T] {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Debouncer[T]{quiet: quiet, action: action}
}

// Trigger replaces any scheduled action with one carrying v.
// Triggers after Stop are ignored.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.value = v
	d.pending = true
	d.timer = time.AfterFunc(d.quiet, func() {
		d.fire(gen)
	})
}

// Flush runs a scheduled action immediately on the calling goroutine and
// reports whether there was one.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	v := d.take()
	d.mu.Unlock()

	d.action(v)
	return true
}

// Stop drops any scheduled action and disables future triggers.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.take()
}

// Pending reports whether an action is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// QuietPeriod returns the configured delay.
func (d *Debouncer[T]) QuietPeriod() time.Duration {
	return d.quiet
}

// fire runs the action for generation gen unless a later Trigger, a Flush or
// Stop got there first.
func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()

	d.action(v)
}

// take clears the pending value. Caller holds mu.
func (d *Debouncer[T]) take() T {
	v := d.value
	var zero T
	d.value = zero
	d.pending = false
	d.timer = nil
	d.gen++
	return v
}
