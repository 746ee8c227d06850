// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

// Package enrich looks up additional track metadata from external
// collaborators (a Navidrome server or MusicBrainz) during imports.
//
// The client wraps every lookup in a rate limiter and a circuit
// breaker: collaborators are third-party services that must not be
// hammered by large imports, and a dead collaborator must not stall a
// batch with thousands of timing-out requests.
package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/listenkeep/listenkeep/internal/logging"
	"github.com/listenkeep/listenkeep/internal/metrics"
	"github.com/listenkeep/listenkeep/internal/models"
)

// Metadata is the collaborator's answer for one track.
type Metadata struct {
	Genres        []string `json:"genres,omitempty"`
	ReleaseYear   int      `json:"release_year,omitempty"`
	ReleaseName   string   `json:"release_name,omitempty"`
	NavidromeID   string   `json:"navidrome_id,omitempty"`
	RecordingMBID string   `json:"recording_mbid,omitempty"`
}

// Config controls the enrichment client.
type Config struct {
	BaseURL                 string
	Timeout                 time.Duration
	RequestsPerSecond       float64
	BreakerFailureThreshold uint32
}

// Client performs metadata lookups with rate limiting and a circuit
// breaker. It implements importer.Enricher.
type Client struct {
	baseURL string
	httpc   *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*Metadata]
}

// New creates an enrichment client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}
	threshold := cfg.BreakerFailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	breaker := gobreaker.NewCircuitBreaker[*Metadata](gobreaker.Settings{
		Name:    "enrichment",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("enrichment circuit breaker state change")
		},
	})

	return &Client{
		baseURL: cfg.BaseURL,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: breaker,
	}
}

// Enrich looks up metadata for a listen and folds any new fields into
// its additional info. It reports whether the listen gained at least
// one field. The "original" source is a no-op.
func (c *Client) Enrich(ctx context.Context, l *models.Listen, source models.MetadataSource) (bool, error) {
	if source == "" || source == models.MetadataSourceOriginal {
		return false, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return false, err
	}

	md, err := c.breaker.Execute(func() (*Metadata, error) {
		return c.lookup(ctx, l, source)
	})
	if err != nil {
		metrics.RecordEnrichmentRequest(string(source), "error")
		return false, err
	}
	metrics.RecordEnrichmentRequest(string(source), "ok")

	if md == nil {
		return false, nil
	}
	return applyMetadata(l, md, source), nil
}

// lookup performs one collaborator round trip. A 404 means the
// collaborator has nothing for this track and is not a failure.
func (c *Client) lookup(ctx context.Context, l *models.Listen, source models.MetadataSource) (*Metadata, error) {
	query := url.Values{}
	query.Set("track", l.TrackName)
	query.Set("artist", l.ArtistName)
	query.Set("source", string(source))

	endpoint := fmt.Sprintf("%s/api/metadata?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building enrichment request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("enrichment request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("enrichment collaborator returned %d", resp.StatusCode)
	}

	var md Metadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, fmt.Errorf("decoding enrichment response: %w", err)
	}
	return &md, nil
}

// applyMetadata folds collaborator fields into the listen without
// overwriting what the source file already provided.
func applyMetadata(l *models.Listen, md *Metadata, source models.MetadataSource) bool {
	changed := false

	if len(md.Genres) > 0 && l.AdditionalInfo[models.InfoGenres] == nil {
		l.SetInfo(models.InfoGenres, md.Genres)
		changed = true
	}
	if md.ReleaseYear > 0 && l.AdditionalInfo[models.InfoReleaseYear] == nil {
		l.SetInfo(models.InfoReleaseYear, md.ReleaseYear)
		changed = true
	}
	if md.ReleaseName != "" && l.ReleaseName == "" {
		l.ReleaseName = md.ReleaseName
		changed = true
	}
	if md.NavidromeID != "" && l.InfoString(models.InfoNavidromeID) == "" {
		l.SetInfo(models.InfoNavidromeID, md.NavidromeID)
		changed = true
	}
	if md.RecordingMBID != "" && l.InfoString(models.InfoRecordingMBID) == "" {
		l.SetInfo(models.InfoRecordingMBID, md.RecordingMBID)
		changed = true
	}

	if changed {
		l.SetInfo(models.InfoEnrichmentSource, string(source))
	}
	return changed
}
