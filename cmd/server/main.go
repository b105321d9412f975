// Fishbone - Supplier Coverage Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fishbone

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/fishbone/internal/api"
	"github.com/tomtom215/fishbone/internal/config"
	"github.com/tomtom215/fishbone/internal/loader"
	"github.com/tomtom215/fishbone/internal/logging"
	"github.com/tomtom215/fishbone/internal/store"
	"github.com/tomtom215/fishbone/internal/supervisor"
	"github.com/tomtom215/fishbone/internal/supervisor/services"
	"github.com/tomtom215/fishbone/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(cfg.LogConfig())

	logging.Info().
		Str("version", version).
		Str("driver", cfg.Database.Driver).
		Dur("cache_ttl", cfg.Cache.TTL).
		Int("cache_capacity", cfg.Cache.Capacity).
		Msg("Starting Fishbone")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Fishbone stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	guarded := store.NewGuarded(db, cfg.GuardConfig())

	// The hub reads snapshots from the session, which notifies the hub.
	var session *loader.Session
	hub := websocket.NewHub(func() interface{} { return session.Snapshot() },
		websocket.WithAllowedOrigins(cfg.Server.CORSOrigins))
	session = loader.NewSession(guarded, cfg.SessionConfig(),
		loader.WithLogger(logging.WithComponent("loader")),
		loader.WithChangeHook(hub.Notify))
	defer session.Close()

	handler := api.NewHandler(session,
		api.WithPinger(db),
		api.WithBreaker(guarded),
		api.WithStream(hub),
		api.WithVersion(version),
		api.WithTimeout(cfg.Server.Timeout),
	)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, api.NewChiMiddleware(cfg.MiddlewareConfig())).SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlog(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	tree.AddDataService(services.NewSessionService(session, cfg.Loader.RefreshInterval))
	tree.AddAPIService(hub)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return nil
}

// openStore connects, migrates and optionally seeds the database.
func openStore(ctx context.Context, cfg *config.Config) (*store.SQLStore, error) {
	db, err := store.Open(ctx, cfg.StoreOpenConfig())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	if cfg.Database.Seed {
		if err := db.Seed(ctx, store.DemoData()); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed store: %w", err)
		}
		logging.Info().Msg("Demo data seeded")
	}

	logging.Info().Str("driver", db.Driver()).Msg("Store ready")
	return db, nil
}
