// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

// Command server runs the ListenKeep HTTP server: listen imports,
// statistics queries, exports and the live update feed, supervised as
// a suture service tree.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/listenkeep/listenkeep/internal/api"
	"github.com/listenkeep/listenkeep/internal/config"
	"github.com/listenkeep/listenkeep/internal/database"
	"github.com/listenkeep/listenkeep/internal/enrich"
	"github.com/listenkeep/listenkeep/internal/importer"
	"github.com/listenkeep/listenkeep/internal/logging"
	"github.com/listenkeep/listenkeep/internal/stats"
	"github.com/listenkeep/listenkeep/internal/websocket"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Msg("starting listenkeep")

	db, err := database.New(cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("closing database")
		}
	}()

	hub := websocket.NewHub()

	var enricher importer.Enricher
	if cfg.Enrichment.Enabled {
		enricher = enrich.New(enrich.Config{
			BaseURL:                 cfg.Enrichment.BaseURL,
			Timeout:                 cfg.Enrichment.Timeout,
			RequestsPerSecond:       cfg.Enrichment.RequestsPerSecond,
			BreakerFailureThreshold: cfg.Enrichment.BreakerFailureThreshold,
		})
	}

	orch := importer.NewOrchestrator(db, enricher,
		cfg.Import.DedupeToleranceSeconds, cfg.Import.ErrorListCap)
	orch.OnImported(hub.BroadcastNewScrobble)

	refresher := stats.NewRefresher(cfg.Stats.RefreshDebounce, func(ctx context.Context) {
		listens, err := db.ListListens(ctx, 0, 0)
		if err != nil {
			logging.Error().Err(err).Msg("stats recompute failed")
			return
		}
		now := time.Now().UTC()
		result := stats.ComputePeriodStats(listens, stats.NewWindow(stats.RangeAllTime, now), now)
		hub.BroadcastStatsUpdate(result)
	})

	handler := api.NewHandler(cfg, db, orch, hub, refresher, version)
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler),
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	slogLogger := slog.New(logging.NewSlogHandler())
	hook := (&sutureslog.Handler{Logger: slogLogger}).MustHook()

	root := suture.New("listenkeep", suture.Spec{
		EventHook:        hook,
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		Timeout:          10 * time.Second,
	})
	root.Add(hub)
	root.Add(refresher)
	root.Add(&httpService{srv: srv})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := root.ServeBackground(ctx)
	logging.Info().Str("addr", cfg.Server.Addr()).Msg("server listening")

	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor exited with error")
		os.Exit(1)
	}
	logging.Info().Msg("shutdown complete")
}

// httpService adapts http.Server to suture.Service with graceful
// shutdown on context cancellation.
type httpService struct {
	srv *http.Server
}

func (s *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("http server shutdown")
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return suture.ErrDoNotRestart
		}
		return err
	}
}

func (s *httpService) String() string {
	return "http-server"
}
