// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

// Package models defines the core domain types shared across the
// import pipeline, storage, statistics and the HTTP layer.
package models

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Default values applied when a source record lacks required name fields.
// UnknownName covers track names everywhere and artist names in the
// Maloja and Last.fm paths; the ListenBrainz-shaped converters use the
// more specific UnknownArtist for artists.
const (
	UnknownName   = "Unknown"
	UnknownArtist = "Unknown Artist"
)

// Well-known keys inside Listen.AdditionalInfo. Unknown keys from source
// records are preserved as-is; these constants only name the ones ListenKeep
// reads or writes itself.
const (
	InfoDurationMs        = "duration_ms"
	InfoOriginURL         = "origin_url"
	InfoMusicService      = "music_service"
	InfoGenres            = "genres"
	InfoReleaseYear       = "release_year"
	InfoNavidromeID       = "navidrome_id"
	InfoOriginalBitRate   = "original_bit_rate"
	InfoOriginalFormat    = "original_format"
	InfoMediaPlayer       = "media_player"
	InfoRecordingMBID     = "recording_mbid"
	InfoEnrichmentSource  = "enrichment_source"
	InfoSubmissionClient  = "submission_client"
)

// Listen is the canonical record of one track played at a specific time.
// Every supported source format is normalized into this shape on import,
// and it is immutable once created except for enrichment, which replaces
// AdditionalInfo sub-fields.
type Listen struct {
	// ID is a deterministic identifier derived from the identity fields,
	// so re-importing the same listen produces the same ID.
	ID uuid.UUID `json:"id"`

	// ListenedAt is seconds since epoch (UTC), the primary temporal key.
	ListenedAt int64 `json:"listened_at"`

	// TrackName and ArtistName are non-empty after normalization.
	TrackName  string `json:"track_name"`
	ArtistName string `json:"artist_name"`

	// ReleaseName is the album title, empty if the source had none.
	ReleaseName string `json:"release_name,omitempty"`

	// AdditionalInfo is an open map of optional metadata. Unknown keys
	// from source records are preserved, not rejected.
	AdditionalInfo map[string]interface{} `json:"additional_info,omitempty"`

	// CreatedAt is when this row was first written to the store.
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// DeterministicID derives the listen ID from track, artist and timestamp.
// The same identity always yields the same UUID, which keeps re-imports
// idempotent at the store level.
func DeterministicID(trackName, artistName string, listenedAt int64) uuid.UUID {
	input := fmt.Sprintf("listen:%s:%s:%d", trackName, artistName, listenedAt)
	hash := sha256.Sum256([]byte(input))

	id, err := uuid.FromBytes(hash[:16])
	if err != nil {
		// Cannot happen with 16 bytes of input; fall back to random.
		return uuid.New()
	}

	id[6] = (id[6] & 0x0f) | 0x50 // Version 5
	id[8] = (id[8] & 0x3f) | 0x80 // Variant 10

	return id
}

// ListenedAtTime returns ListenedAt as a UTC time.Time.
func (l *Listen) ListenedAtTime() time.Time {
	return time.Unix(l.ListenedAt, 0).UTC()
}

// SetInfo stores a non-nil value under key in AdditionalInfo, allocating the
// map on first use. Nil and empty-string values are dropped so the stored
// map only carries fields the source actually provided.
func (l *Listen) SetInfo(key string, value interface{}) {
	if value == nil {
		return
	}
	if s, ok := value.(string); ok && s == "" {
		return
	}
	if l.AdditionalInfo == nil {
		l.AdditionalInfo = make(map[string]interface{})
	}
	l.AdditionalInfo[key] = value
}

// InfoString returns the string value stored under key, or "" if absent
// or not a string.
func (l *Listen) InfoString(key string) string {
	if l.AdditionalInfo == nil {
		return ""
	}
	s, _ := l.AdditionalInfo[key].(string)
	return s
}
