// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package api

import (
	"net/http"
	"time"

	"github.com/listenkeep/listenkeep/internal/models"
	"github.com/listenkeep/listenkeep/internal/stats"
)

// statsRequest validates the shared range query parameter.
type statsRequest struct {
	Range string `validate:"required,oneof=week month year all_time"`
}

// parseRange extracts and validates ?range=, defaulting to all_time.
func parseRange(w http.ResponseWriter, r *http.Request) (stats.Range, bool) {
	req := statsRequest{Range: r.URL.Query().Get("range")}
	if req.Range == "" {
		req.Range = string(stats.RangeAllTime)
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return "", false
	}
	return stats.Range(req.Range), true
}

// Stats handles GET /api/v1/stats: the rollup for one window.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	rng, ok := parseRange(w, r)
	if !ok {
		return
	}

	// The streak needs the full history regardless of the window, so
	// the query is unbounded and filtering happens in the engine.
	listens, err := h.store.ListListens(r.Context(), 0, 0)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR",
			"failed to load listens", err)
		return
	}

	now := time.Now().UTC()
	result := stats.ComputePeriodStats(listens, stats.NewWindow(rng, now), now)
	respondSuccess(w, http.StatusOK, result, started)
}

// Activity handles GET /api/v1/stats/activity: the histogram series.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	rng, ok := parseRange(w, r)
	if !ok {
		return
	}

	window := stats.NewWindow(rng, time.Now().UTC())
	from := int64(0)
	if !window.Start.IsZero() {
		from = window.Start.Unix()
	}

	listens, err := h.store.ListListens(r.Context(), from, 0)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR",
			"failed to load listens", err)
		return
	}

	response := &models.ActivityResponse{
		ListeningActivity: stats.ActivitySeries(listens, window),
		Range:             string(rng),
		Grouping:          string(stats.GranularityFor(rng)),
	}
	respondSuccess(w, http.StatusOK, response, started)
}
