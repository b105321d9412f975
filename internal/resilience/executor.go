// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package resilience

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/fishbone/internal/metrics"
)

// ErrCancelled is returned when an invocation was superseded by a newer one
// for the same slot, cancelled explicitly, or its context was cancelled.
var ErrCancelled = errors.New("operation cancelled")

// Strategy selects the delay growth between attempts.
type Strategy string

const (
	// Linear waits BaseDelay × attempt.
	Linear Strategy = "linear"

	// Exponential waits BaseDelay × 2^(attempt-1).
	Exponential Strategy = "exponential"
)

// Config holds retry settings.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Strategy    Strategy
}

// DefaultConfig returns three linear attempts starting at one second.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    10 * time.Second,
		Strategy:    Linear,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
func (c Config) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var d time.Duration
	switch c.Strategy {
	case Exponential:
		shift := attempt - 1
		if shift > 30 {
			shift = 30
		}
		d = c.BaseDelay * time.Duration(1<<shift)
	default:
		d = c.BaseDelay * time.Duration(attempt)
	}

	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for retry warnings.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithSleep replaces the backoff wait. Tests use it to skip real delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Executor) {
		if fn != nil {
			e.sleep = fn
		}
	}
}

// flight is one in-progress invocation owning a slot.
type flight struct {
	cancel context.CancelFunc
}

// Executor runs remote calls with retry and per-slot supersession.
//
// Each invocation claims a slot (for example "stages" or "client:<id>").
// Claiming a slot cancels whatever invocation held it before, so only the
// newest request for a slot can ever commit its result.
type Executor struct {
	cfg    Config
	logger zerolog.Logger
	sleep  func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	slots map[string]*flight
}

// New creates an executor. A non-positive MaxAttempts falls back to 3.
func New(cfg Config, opts ...Option) *Executor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.Strategy == "" {
		cfg.Strategy = Linear
	}

	e := &Executor{
		cfg:    cfg,
		logger: zerolog.Nop(),
		sleep:  sleepContext,
		slots:  make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the retry settings in use.
func (e *Executor) Config() Config {
	return e.cfg
}

// Execute runs call under slot with retries, then hands the result to apply.
//
// apply runs with the executor lock held and only if this invocation still
// owns the slot; otherwise the result is discarded and ErrCancelled returned.
// apply may be nil. An error wrapped with Permanent ends the retries early.
func Execute[T any](ctx context.Context, e *Executor, slot string, call func(context.Context) (T, error), apply func(T)) error {
	ctx, f := e.claim(ctx, slot)
	defer e.release(slot, f)

	result, err := run(ctx, e, slot, call)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.slots[slot] != f || ctx.Err() != nil {
		metrics.ExecutorCancellations.WithLabelValues(slotLabel(slot)).Inc()
		return ErrCancelled
	}
	if apply != nil {
		apply(result)
	}
	return nil
}

func run[T any](ctx context.Context, e *Executor, slot string, call func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			metrics.ExecutorCancellations.WithLabelValues(slotLabel(slot)).Inc()
			return zero, ErrCancelled
		}

		result, err := call(ctx)
		if err == nil {
			return result, nil
		}
		if IsCancelled(err) || ctx.Err() != nil {
			metrics.ExecutorCancellations.WithLabelValues(slotLabel(slot)).Inc()
			return zero, ErrCancelled
		}
		lastErr = err

		if IsPermanent(err) {
			e.logger.Debug().Err(err).Str("slot", slot).Int("attempt", attempt).Msg("permanent failure, not retrying")
			return zero, fmt.Errorf("attempt %d/%d failed: %w", attempt, e.cfg.MaxAttempts, err)
		}
		if attempt == e.cfg.MaxAttempts {
			break
		}

		delay := e.cfg.Delay(attempt)
		e.logger.Warn().
			Err(err).
			Str("slot", slot).
			Int("attempt", attempt).
			Int("max_attempts", e.cfg.MaxAttempts).
			Dur("retry_in", delay).
			Msg("attempt failed, retrying")
		metrics.ExecutorRetries.WithLabelValues(slotLabel(slot)).Inc()

		if err := e.sleep(ctx, delay); err != nil {
			metrics.ExecutorCancellations.WithLabelValues(slotLabel(slot)).Inc()
			return zero, ErrCancelled
		}
	}

	metrics.ExecutorExhausted.WithLabelValues(slotLabel(slot)).Inc()
	return zero, fmt.Errorf("attempt %d/%d failed: %w", e.cfg.MaxAttempts, e.cfg.MaxAttempts, lastErr)
}

// Cancel aborts the invocation holding slot, if any.
func (e *Executor) Cancel(slot string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if f, ok := e.slots[slot]; ok {
		f.cancel()
		delete(e.slots, slot)
	}
}

// CancelAll aborts every in-flight invocation.
func (e *Executor) CancelAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for slot, f := range e.slots {
		f.cancel()
		delete(e.slots, slot)
	}
}

// InFlight reports whether slot has a running invocation.
func (e *Executor) InFlight(slot string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.slots[slot]
	return ok
}

// claim registers a new invocation for slot, cancelling the previous owner.
func (e *Executor) claim(parent context.Context, slot string) (context.Context, *flight) {
	ctx, cancel := context.WithCancel(parent)
	f := &flight{cancel: cancel}

	e.mu.Lock()
	if prev, ok := e.slots[slot]; ok {
		prev.cancel()
	}
	e.slots[slot] = f
	e.mu.Unlock()

	return ctx, f
}

// release frees slot if f still owns it.
func (e *Executor) release(slot string, f *flight) {
	e.mu.Lock()
	if e.slots[slot] == f {
		delete(e.slots, slot)
	}
	e.mu.Unlock()
	f.cancel()
}

// IsCancelled reports whether err is a cancellation rather than a failure.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// slotLabel keeps metric cardinality bounded: "client:<id>" becomes "client".
func slotLabel(slot string) string {
	if i := strings.IndexByte(slot, ':'); i >= 0 {
		return slot[:i]
	}
	return slot
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
