// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/fishbone/internal/logging"
)

// Session is the part of loader.Session this service drives.
type Session interface {
	Start(ctx context.Context) error
	Refresh(ctx context.Context) error
}

// SessionService loads the journey structure and client roster, then
// optionally refreshes everything on an interval.
//
// A failed warm-up returns an error so the supervisor restarts the service
// with backoff. A failed periodic refresh is only logged: the session keeps
// serving previously loaded data.
type SessionService struct {
	session  Session
	interval time.Duration
	logger   zerolog.Logger
}

// NewSessionService creates the service. interval <= 0 disables periodic
// refresh.
func NewSessionService(session Session, interval time.Duration) *SessionService {
	return &SessionService{
		session:  session,
		interval: interval,
		logger:   logging.WithComponent("session-service"),
	}
}

// Serve implements suture.Service.
func (s *SessionService) Serve(ctx context.Context) error {
	if err := s.session.Start(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("session warm-up failed: %w", err)
	}
	s.logger.Info().Msg("session warmed up")

	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			ctx := logging.ContextWithCorrelationID(ctx, logging.NewCorrelationID())
			if err := s.session.Refresh(ctx); err != nil && ctx.Err() == nil {
				logging.Ctx(ctx).Warn().Err(err).Msg("periodic refresh failed")
			}
		}
	}
}

// String names the service in supervisor logs.
func (s *SessionService) String() string {
	return "session"
}
