// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"github.com/listenkeep/listenkeep/internal/config"
	"github.com/listenkeep/listenkeep/internal/importer"
	"github.com/listenkeep/listenkeep/internal/logging"
	"github.com/listenkeep/listenkeep/internal/models"
	"github.com/listenkeep/listenkeep/internal/stats"
	ws "github.com/listenkeep/listenkeep/internal/websocket"
)

// ListenStore is the storage surface the HTTP layer needs. It is the
// import pipeline's store plus the read paths.
type ListenStore interface {
	InsertListen(ctx context.Context, l *models.Listen) error
	FindMatching(ctx context.Context, trackName, artistName string, listenedAt, toleranceSeconds int64) (*models.Listen, error)
	MergeAdditionalInfo(ctx context.Context, id uuid.UUID, info map[string]interface{}) error
	DeleteAllListens(ctx context.Context) error
	RecentListens(ctx context.Context, limit int) ([]models.Listen, error)
	ListListens(ctx context.Context, from, until int64) ([]models.Listen, error)
	CountListens(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

// Handler holds the dependencies for all HTTP endpoints.
type Handler struct {
	cfg       *config.Config
	store     ListenStore
	orch      *importer.Orchestrator
	hub       *ws.Hub
	refresher *stats.Refresher
	upgrader  gorillaws.Upgrader
	startTime time.Time
	version   string
}

// NewHandler creates the endpoint handler. hub and refresher may be nil
// in tests; the import paths check before using them.
func NewHandler(cfg *config.Config, store ListenStore, orch *importer.Orchestrator, hub *ws.Hub, refresher *stats.Refresher, version string) *Handler {
	return &Handler{
		cfg:       cfg,
		store:     store,
		orch:      orch,
		hub:       hub,
		refresher: refresher,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg),
		},
		startTime: time.Now(),
		version:   version,
	}
}

// originChecker allows configured CORS origins plus same-origin requests.
func originChecker(cfg *config.Config) func(r *http.Request) bool {
	allowed := make(map[string]bool)
	allowAll := false
	for _, origin := range cfg.Security.CORSOrigins {
		if origin == "*" {
			allowAll = true
		}
		allowed[origin] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		return allowed[origin]
	}
}

// Health reports service liveness, database connectivity and the
// current listen count.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	status := models.HealthStatus{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Seconds(),
	}

	if err := h.store.Ping(r.Context()); err != nil {
		status.Status = "degraded"
		logging.Warn().Err(err).Msg("health check database ping failed")
	} else {
		status.DatabaseConnected = true
		if count, err := h.store.CountListens(r.Context()); err == nil {
			status.ListenCount = count
		}
	}

	httpStatus := http.StatusOK
	if !status.DatabaseConnected {
		httpStatus = http.StatusServiceUnavailable
	}
	respondSuccess(w, httpStatus, status, started)
}

// HealthLive reports process liveness only, for restart probes.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady reports readiness: the database must answer.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if err := h.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "STORAGE_ERROR",
			"database is not reachable", err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ready"}, started)
}

// RecentListens returns the newest listens, newest first.
func (h *Handler) RecentListens(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	limit := getIntParam(r, "limit", 50)
	if limit < 1 || limit > 500 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"limit must be between 1 and 500", nil)
		return
	}

	listens, err := h.store.RecentListens(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR",
			"failed to load recent listens", err)
		return
	}
	if listens == nil {
		listens = []models.Listen{}
	}

	respondSuccess(w, http.StatusOK, listens, started)
}

// WebSocket upgrades the connection and attaches it to the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "INTERNAL_ERROR",
			"live updates are not available", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn)
	h.hub.Register <- client
	client.Start()
}
