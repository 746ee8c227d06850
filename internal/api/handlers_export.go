// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/listenkeep/listenkeep/internal/logging"
	"github.com/listenkeep/listenkeep/internal/models"
	"github.com/listenkeep/listenkeep/internal/stats"
)

// exportRequest validates the export query parameters.
type exportRequest struct {
	Range  string `validate:"required,oneof=week month year all_time"`
	Format string `validate:"required,oneof=json csv"`
}

// Export handles GET /api/v1/listens/export, streaming the selected
// window as a download. JSON exports are a bare listen array in the
// normalized shape, so an export round-trips through the import path.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	req := exportRequest{
		Range:  defaultString(r.URL.Query().Get("range"), string(stats.RangeAllTime)),
		Format: defaultString(r.URL.Query().Get("format"), "json"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	window := stats.NewWindow(stats.Range(req.Range), time.Now().UTC())
	from := int64(0)
	if !window.Start.IsZero() {
		from = window.Start.Unix()
	}

	listens, err := h.store.ListListens(r.Context(), from, window.End.Unix())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "STORAGE_ERROR",
			"failed to load listens for export", err)
		return
	}
	if listens == nil {
		listens = []models.Listen{}
	}

	filename := fmt.Sprintf("listens-%s-%s.%s", req.Range,
		time.Now().UTC().Format("2006-01-02"), req.Format)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	switch req.Format {
	case "csv":
		writeCSVExport(w, listens)
	default:
		writeJSONExport(w, listens)
	}
}

func writeJSONExport(w http.ResponseWriter, listens []models.Listen) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(listens)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"failed to encode export", err)
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON export")
	}
}

// csvExportHeader matches the columns the CSV import path requires, so
// an exported file re-imports cleanly.
var csvExportHeader = []string{
	"track_name", "artist_name", "listened_at",
	"release_name", "duration_ms", "music_service", "origin_url",
}

func writeCSVExport(w http.ResponseWriter, listens []models.Listen) {
	w.Header().Set("Content-Type", "text/csv")

	writer := csv.NewWriter(w)
	if err := writer.Write(csvExportHeader); err != nil {
		logging.Error().Err(err).Msg("failed to write CSV export header")
		return
	}

	for i := range listens {
		l := &listens[i]
		row := []string{
			l.TrackName,
			l.ArtistName,
			strconv.FormatInt(l.ListenedAt, 10),
			l.ReleaseName,
			infoNumberString(l, models.InfoDurationMs),
			l.InfoString(models.InfoMusicService),
			l.InfoString(models.InfoOriginURL),
		}
		if err := writer.Write(row); err != nil {
			logging.Error().Err(err).Msg("failed to write CSV export row")
			return
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		logging.Error().Err(err).Msg("failed to flush CSV export")
	}
}

// infoNumberString formats a numeric metadata value for CSV output.
// Stored values may be int64 (fresh imports) or float64/json.Number
// (round-tripped through JSON).
func infoNumberString(l *models.Listen, key string) string {
	if l.AdditionalInfo == nil {
		return ""
	}
	switch v := l.AdditionalInfo[key].(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	case string:
		return v
	default:
		return ""
	}
}
