// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/listenkeep/listenkeep/internal/config"
	"github.com/listenkeep/listenkeep/internal/importer"
	"github.com/listenkeep/listenkeep/internal/models"
)

// memStore is an in-memory ListenStore for handler tests.
type memStore struct {
	listens []models.Listen
	pingErr error
}

func (s *memStore) InsertListen(_ context.Context, l *models.Listen) error {
	for _, existing := range s.listens {
		if existing.ID == l.ID {
			return nil
		}
	}
	s.listens = append(s.listens, *l)
	return nil
}

func (s *memStore) FindMatching(_ context.Context, track, artist string, ts, tolerance int64) (*models.Listen, error) {
	probe := &models.Listen{TrackName: track, ArtistName: artist, ListenedAt: ts}
	for i := range s.listens {
		if importer.IsDuplicatePair(&s.listens[i], probe, tolerance) {
			return &s.listens[i], nil
		}
	}
	return nil, nil
}

func (s *memStore) MergeAdditionalInfo(_ context.Context, id uuid.UUID, info map[string]interface{}) error {
	for i := range s.listens {
		if s.listens[i].ID == id {
			for k, v := range info {
				s.listens[i].SetInfo(k, v)
			}
			return nil
		}
	}
	return nil
}

func (s *memStore) DeleteAllListens(context.Context) error {
	s.listens = nil
	return nil
}

func (s *memStore) RecentListens(_ context.Context, limit int) ([]models.Listen, error) {
	sorted := append([]models.Listen(nil), s.listens...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ListenedAt > sorted[j].ListenedAt })
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (s *memStore) ListListens(_ context.Context, from, until int64) ([]models.Listen, error) {
	var out []models.Listen
	for _, l := range s.listens {
		if from > 0 && l.ListenedAt < from {
			continue
		}
		if until > 0 && l.ListenedAt >= until {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ListenedAt < out[j].ListenedAt })
	return out, nil
}

func (s *memStore) CountListens(context.Context) (int64, error) {
	return int64(len(s.listens)), nil
}

func (s *memStore) Ping(context.Context) error {
	return s.pingErr
}

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 4533, Timeout: 30 * time.Second},
		Database: config.DatabaseConfig{Path: ":memory:", MaxMemory: "256MB"},
		Import: config.ImportConfig{
			MaxFileSizeBytes:       1 << 20,
			ErrorListCap:           50,
			DedupeToleranceSeconds: 5,
		},
		Security: config.SecurityConfig{
			RateLimitDisabled: true,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *memStore) {
	t.Helper()
	store := &memStore{}
	cfg := testConfig()
	orch := importer.NewOrchestrator(store, nil,
		cfg.Import.DedupeToleranceSeconds, cfg.Import.ErrorListCap)
	handler := NewHandler(cfg, store, orch, nil, nil, "test")
	server := httptest.NewServer(NewRouter(handler))
	t.Cleanup(server.Close)
	return server, store
}

func decodeEnvelope(t *testing.T, resp *http.Response) *models.APIResponse {
	t.Helper()
	defer resp.Body.Close()
	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return &envelope
}

func TestImportFileListenBrainz(t *testing.T) {
	server, store := newTestServer(t)

	body := `[
		{"listened_at": 1700000000, "track_metadata": {"track_name": "One", "artist_name": "Band"}},
		{"listened_at": 1700000100, "track_metadata": {"track_name": "Two", "artist_name": "Band"}}
	]`

	resp, err := http.Post(server.URL+"/api/v1/listens/import?filename=export.json",
		"application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	envelope := decodeEnvelope(t, resp)
	if envelope.Status != "success" {
		t.Fatalf("envelope status = %q (error: %+v)", envelope.Status, envelope.Error)
	}

	data, _ := json.Marshal(envelope.Data)
	var result models.ImportResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.Imported != 2 || result.Total != 2 {
		t.Errorf("result = %+v, want 2 of 2 imported", result)
	}
	if len(store.listens) != 2 {
		t.Errorf("stored = %d, want 2", len(store.listens))
	}
}

func TestImportFileUnsupportedFormat(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/v1/listens/import?filename=export.json",
		"application/json", strings.NewReader(`{"tracks": [], "user": "x"}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	envelope := decodeEnvelope(t, resp)
	if envelope.Error == nil {
		t.Fatal("envelope has no error")
	}
	if !strings.Contains(envelope.Error.Message, "unsupported") {
		t.Errorf("error message = %q, want format diagnosis", envelope.Error.Message)
	}
}

func TestImportFileEmpty(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/v1/listens/import?filename=export.json",
		"application/json", strings.NewReader(`{"listens": []}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	envelope := decodeEnvelope(t, resp)
	if envelope.Error == nil || envelope.Error.Code != "VALIDATION_FAILED" {
		t.Errorf("error = %+v, want VALIDATION_FAILED", envelope.Error)
	}
}

func TestImportFileInvalidMode(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/v1/listens/import?filename=export.json&import_mode=upsert",
		"application/json", strings.NewReader(`{"listens": [{"listened_at": 1, "track_metadata": {"track_name": "x", "artist_name": "y"}}]}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown import_mode", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestImportFileCSV(t *testing.T) {
	server, store := newTestServer(t)

	body := "track_name,artist_name,listened_at\nSong,Band,1700000000\n"
	resp, err := http.Post(server.URL+"/api/v1/listens/import?filename=history.csv",
		"text/csv", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	_ = resp.Body.Close()

	if len(store.listens) != 1 || store.listens[0].TrackName != "Song" {
		t.Errorf("stored = %+v, want CSV row imported", store.listens)
	}
}

func TestSubmitListens(t *testing.T) {
	server, store := newTestServer(t)

	body := `{"listen_type": "import", "payload": [
		{"listened_at": 1700000000, "track_metadata": {"track_name": "Live", "artist_name": "Band"}}
	]}`
	resp, err := http.Post(server.URL+"/api/v1/submit-listens",
		"application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	_ = resp.Body.Close()

	if len(store.listens) != 1 {
		t.Errorf("stored = %d, want 1", len(store.listens))
	}
}

func TestSubmitListensHonorsImportOptions(t *testing.T) {
	server, store := newTestServer(t)

	existing := models.Listen{TrackName: "Live", ArtistName: "Band", ListenedAt: 1700000000}
	existing.ID = models.DeterministicID(existing.TrackName, existing.ArtistName, existing.ListenedAt)
	store.listens = append(store.listens, existing)

	// A near-duplicate with merge mode must fold metadata into the
	// stored row instead of being skipped.
	body := `{"listen_type": "import", "import_mode": "merge", "payload": [
		{"listened_at": 1700000002, "track_metadata": {"track_name": "Live", "artist_name": "Band",
			"additional_info": {"music_service": "spotify"}}}
	]}`
	resp, err := http.Post(server.URL+"/api/v1/submit-listens",
		"application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	envelope := decodeEnvelope(t, resp)
	data, _ := json.Marshal(envelope.Data)
	var result models.ImportResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.Imported != 1 || result.DuplicatesSkipped != 0 {
		t.Errorf("result = %+v, want merge counted as imported", result)
	}
	if len(store.listens) != 1 {
		t.Fatalf("stored = %d, want merge to not add a row", len(store.listens))
	}
	if got := store.listens[0].InfoString(models.InfoMusicService); got != "spotify" {
		t.Errorf("merged music_service = %q, want spotify", got)
	}
}

func TestSubmitListensDeduplicateOff(t *testing.T) {
	server, store := newTestServer(t)

	body := `{"listen_type": "import", "deduplicate": false, "payload": [
		{"listened_at": 1700000000, "track_metadata": {"track_name": "Live", "artist_name": "Band"}},
		{"listened_at": 1700000003, "track_metadata": {"track_name": "Live", "artist_name": "Band"}}
	]}`
	resp, err := http.Post(server.URL+"/api/v1/submit-listens",
		"application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	_ = resp.Body.Close()

	if len(store.listens) != 2 {
		t.Errorf("stored = %d, want duplicate check disabled", len(store.listens))
	}
}

func TestSubmitListensRejectsUnknownImportMode(t *testing.T) {
	server, _ := newTestServer(t)

	body := `{"listen_type": "import", "import_mode": "append", "payload": [
		{"listened_at": 1700000000, "track_metadata": {"track_name": "Live", "artist_name": "Band"}}
	]}`
	resp, err := http.Post(server.URL+"/api/v1/submit-listens",
		"application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for unknown import_mode", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestSubmitListensEmptyPayload(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/v1/submit-listens",
		"application/json", strings.NewReader(`{"payload": []}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for empty payload", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestStatsEndpoint(t *testing.T) {
	server, store := newTestServer(t)

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		ts := now.Add(-time.Duration(i+1) * time.Hour).Unix()
		l := models.Listen{TrackName: "Song", ArtistName: "Band", ListenedAt: ts}
		l.ID = models.DeterministicID(l.TrackName, l.ArtistName, ts)
		store.listens = append(store.listens, l)
	}

	resp, err := http.Get(server.URL + "/api/v1/stats?range=week")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	envelope := decodeEnvelope(t, resp)
	data, _ := json.Marshal(envelope.Data)
	var stats models.PeriodStats
	if err := json.Unmarshal(data, &stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats.TotalListens != 3 {
		t.Errorf("TotalListens = %d, want 3", stats.TotalListens)
	}
	if stats.UniqueArtists != 1 {
		t.Errorf("UniqueArtists = %d, want 1", stats.UniqueArtists)
	}
}

func TestStatsRejectsUnknownRange(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/stats?range=decade")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestActivityEndpoint(t *testing.T) {
	server, store := newTestServer(t)

	now := time.Now().UTC()
	ts := now.Add(-24 * time.Hour).Unix()
	l := models.Listen{TrackName: "Song", ArtistName: "Band", ListenedAt: ts}
	l.ID = models.DeterministicID(l.TrackName, l.ArtistName, ts)
	store.listens = append(store.listens, l)

	resp, err := http.Get(server.URL + "/api/v1/stats/activity?range=week")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	envelope := decodeEnvelope(t, resp)

	data, _ := json.Marshal(envelope.Data)
	var activity models.ActivityResponse
	if err := json.Unmarshal(data, &activity); err != nil {
		t.Fatalf("decoding activity: %v", err)
	}
	if activity.Grouping != "daily" {
		t.Errorf("Grouping = %q, want daily for week range", activity.Grouping)
	}
	if len(activity.ListeningActivity) != 1 {
		t.Errorf("buckets = %d, want 1", len(activity.ListeningActivity))
	}
}

func TestExportCSV(t *testing.T) {
	server, store := newTestServer(t)

	l := models.Listen{TrackName: "Song", ArtistName: "Band", ListenedAt: time.Now().UTC().Add(-time.Hour).Unix()}
	l.ID = models.DeterministicID(l.TrackName, l.ArtistName, l.ListenedAt)
	l.SetInfo(models.InfoMusicService, "spotify")
	store.listens = append(store.listens, l)

	resp, err := http.Get(server.URL + "/api/v1/listens/export?range=week&format=csv")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", got)
	}
	if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, "attachment") {
		t.Errorf("Content-Disposition = %q, want attachment", got)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("reading body: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want header plus one row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "track_name,artist_name,listened_at") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "spotify") {
		t.Errorf("row = %q, want metadata column", lines[1])
	}
}

func TestExportJSONRoundTrip(t *testing.T) {
	server, store := newTestServer(t)

	l := models.Listen{TrackName: "Song", ArtistName: "Band", ListenedAt: 1700000000}
	l.ID = models.DeterministicID(l.TrackName, l.ArtistName, l.ListenedAt)
	store.listens = append(store.listens, l)

	resp, err := http.Get(server.URL + "/api/v1/listens/export?range=all_time&format=json")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()

	var exported []models.Listen
	if err := json.NewDecoder(resp.Body).Decode(&exported); err != nil {
		t.Fatalf("decoding export: %v", err)
	}
	if len(exported) != 1 || exported[0].TrackName != "Song" {
		t.Errorf("exported = %+v, want bare listen array", exported)
	}
}

func TestRecentListensLimitValidation(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/listens/recent?limit=9999")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for oversized limit", resp.StatusCode)
	}
	_ = resp.Body.Close()
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	envelope := decodeEnvelope(t, resp)
	data, _ := json.Marshal(envelope.Data)
	var health models.HealthStatus
	if err := json.Unmarshal(data, &health); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	if !health.DatabaseConnected {
		t.Error("DatabaseConnected = false, want true")
	}
}

func TestNotFoundEnvelope(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/v1/nope")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	envelope := decodeEnvelope(t, resp)
	if envelope.Error == nil || envelope.Error.Code != "NOT_FOUND" {
		t.Errorf("error = %+v, want NOT_FOUND envelope", envelope.Error)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
