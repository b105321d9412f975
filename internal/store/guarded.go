// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/fishbone/internal/logging"
	"github.com/tomtom215/fishbone/internal/metrics"
	"github.com/tomtom215/fishbone/internal/models"
)

// GuardConfig tunes the rate limiter and circuit breaker of Guarded.
type GuardConfig struct {
	// RateLimit is the sustained query rate per second. Zero disables limiting.
	RateLimit float64
	RateBurst int

	// Breaker opens once MinRequests have been seen in Interval and the
	// failure ratio reaches FailureRatio. It half-opens after Timeout.
	MinRequests  uint32
	FailureRatio float64
	Interval     time.Duration
	Timeout      time.Duration
	HalfOpenMax  uint32
}

// DefaultGuardConfig returns the production guard settings.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		RateLimit:    50,
		RateBurst:    10,
		MinRequests:  10,
		FailureRatio: 0.6,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		HalfOpenMax:  3,
	}
}

// Guarded protects a Querier with a token-bucket limiter and a circuit
// breaker. Cancellations and ErrNotFound do not count as breaker failures.
type Guarded struct {
	next    Querier
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[any]
	name    string
}

// NewGuarded wraps next.
func NewGuarded(next Querier, cfg GuardConfig) *Guarded {
	const cbName = "store"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: cfg.HalfOpenMax,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.FailureRatio {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("Opening store circuit")
				return true
			}
			return false
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", stateToString(from)).
				Str("to", stateToString(to)).
				Msg("Circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
		},

		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, ErrNotFound)
		},
	})

	return &Guarded{next: next, limiter: limiter, cb: cb, name: cbName}
}

// State returns the breaker state as "closed", "half-open" or "open".
func (g *Guarded) State() string {
	return stateToString(g.cb.State())
}

func guard[T any](ctx context.Context, g *Guarded, fn func() (T, error)) (T, error) {
	var zero T

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return zero, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	result, err := g.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(g.name, "rejected").Inc()
			return zero, fmt.Errorf("circuit breaker: %w", err)
		}
		metrics.CircuitBreakerRequests.WithLabelValues(g.name, "failure").Inc()
		return zero, err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(g.name, "success").Inc()

	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// QueryStages implements Querier.
func (g *Guarded) QueryStages(ctx context.Context) ([]models.Stage, error) {
	return guard(ctx, g, func() ([]models.Stage, error) {
		return g.next.QueryStages(ctx)
	})
}

// QueryClientOptions implements Querier.
func (g *Guarded) QueryClientOptions(ctx context.Context) ([]models.ClientOptionRow, error) {
	return guard(ctx, g, func() ([]models.ClientOptionRow, error) {
		return g.next.QueryClientOptions(ctx)
	})
}

// QueryClient implements Querier.
func (g *Guarded) QueryClient(ctx context.Context, id string) (*models.ClientRow, error) {
	return guard(ctx, g, func() (*models.ClientRow, error) {
		return g.next.QueryClient(ctx, id)
	})
}

// QueryMappings implements Querier.
func (g *Guarded) QueryMappings(ctx context.Context, clientID string, limit, offset int) ([]models.MappingRow, error) {
	return guard(ctx, g, func() ([]models.MappingRow, error) {
		return g.next.QueryMappings(ctx, clientID, limit, offset)
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
