// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package importer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/listenkeep/listenkeep/internal/models"
)

// knownServices lists the music services recognized by substring match,
// checked in order. First match wins.
var knownServices = []string{
	"navidrome",
	"spotify",
	"youtube",
	"soundcloud",
	"lastfm",
	"maloja",
}

// NormalizeRecord converts one source-specific record into a canonical
// listen. Conversion is total for any record that is a JSON object:
// missing or malformed leaves degrade to defaults (models.UnknownName,
// models.UnknownArtist, the supplied current time) instead of failing.
// Only a record that is not an object at all is rejected.
func NormalizeRecord(rec interface{}, format Format, now time.Time) (*models.Listen, error) {
	obj, ok := rec.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("record is not an object (got %T)", rec)
	}

	var listen *models.Listen
	switch format {
	case FormatMaloja:
		listen = normalizeMaloja(obj, now)
	case FormatLastFM:
		listen = normalizeLastFM(obj, now)
	default:
		listen = normalizeGeneric(obj, now)
	}

	listen.ID = models.DeterministicID(listen.TrackName, listen.ArtistName, listen.ListenedAt)
	return listen, nil
}

// normalizeMaloja converts a Maloja scrobble: timestamp from "time",
// track fields nested under "track", artists joined with ", ",
// duration preferring track length over scrobble duration, and the
// music service derived from the origin string.
func normalizeMaloja(obj map[string]interface{}, now time.Time) *models.Listen {
	// Maloja defaults both names to the plain placeholder.
	listen := &models.Listen{
		TrackName:  models.UnknownName,
		ArtistName: models.UnknownName,
		ListenedAt: now.Unix(),
	}

	if ts, ok := asInt64(obj["time"]); ok {
		listen.ListenedAt = ts
	}

	track, _ := obj["track"].(map[string]interface{})

	if title := asString(track["title"]); title != "" {
		listen.TrackName = title
	}
	if joined := joinArtists(track["artists"]); joined != "" {
		listen.ArtistName = joined
	}
	listen.ReleaseName = albumTitle(track["album"])

	// Track length is authoritative when present; the per-scrobble
	// duration only covers how long this play lasted.
	if length, ok := asInt64(track["length"]); ok && length > 0 {
		listen.SetInfo(models.InfoDurationMs, length*1000)
	} else if duration, ok := asInt64(obj["duration"]); ok && duration > 0 {
		listen.SetInfo(models.InfoDurationMs, duration*1000)
	}

	origin := asString(obj["origin"])
	listen.SetInfo(models.InfoOriginURL, asString(obj["origin_url"]))
	listen.SetInfo(models.InfoMusicService, matchService(origin))

	return listen
}

// normalizeGeneric converts ListenBrainz-shaped and generic records.
// The canonical ListenBrainz shape nests track fields under
// "track_metadata"; flat records fall back to field name aliases.
func normalizeGeneric(obj map[string]interface{}, now time.Time) *models.Listen {
	listen := &models.Listen{
		TrackName:  models.UnknownName,
		ArtistName: models.UnknownArtist,
		ListenedAt: now.Unix(),
	}

	if ts, ok := firstInt64(obj, "listened_at", "timestamp", "time"); ok {
		listen.ListenedAt = ts
	}

	if tm, ok := obj["track_metadata"].(map[string]interface{}); ok {
		if v := asString(tm["track_name"]); v != "" {
			listen.TrackName = v
		}
		if v := asString(tm["artist_name"]); v != "" {
			listen.ArtistName = v
		}
		listen.ReleaseName = asString(tm["release_name"])

		// Unknown additional_info keys survive the round trip.
		if info, ok := tm["additional_info"].(map[string]interface{}); ok {
			for k, v := range info {
				listen.SetInfo(k, v)
			}
		}
		return listen
	}

	if v := firstString(obj, "track_name", "track", "title", "name"); v != "" {
		listen.TrackName = v
	}
	if v := firstString(obj, "artist_name", "artist"); v != "" {
		listen.ArtistName = v
	}
	listen.ReleaseName = firstString(obj, "release_name", "album", "release")

	if duration, ok := asInt64(obj["duration_ms"]); ok && duration > 0 {
		listen.SetInfo(models.InfoDurationMs, duration)
	}
	listen.SetInfo(models.InfoMusicService, asString(obj["music_service"]))
	listen.SetInfo(models.InfoOriginURL, asString(obj["origin_url"]))
	// No bare "id" alias here: re-imported exports carry the canonical
	// listen UUID under "id", which is not a Navidrome identifier.
	listen.SetInfo(models.InfoNavidromeID, asString(obj["navidrome_id"]))
	listen.SetInfo(models.InfoMediaPlayer, firstString(obj, "media_player", "player"))

	return listen
}

// normalizeLastFM converts a Last.fm recenttracks entry. Artist and
// album are either plain strings or {"#text": ...} objects; the
// timestamp lives in date.uts as a decimal string.
func normalizeLastFM(obj map[string]interface{}, now time.Time) *models.Listen {
	listen := &models.Listen{
		TrackName:  models.UnknownName,
		ArtistName: models.UnknownName,
		ListenedAt: now.Unix(),
	}

	if date, ok := obj["date"].(map[string]interface{}); ok {
		if ts, ok := asInt64(date["uts"]); ok {
			listen.ListenedAt = ts
		}
	}

	if v := asString(obj["name"]); v != "" {
		listen.TrackName = v
	}
	if v := textField(obj["artist"]); v != "" {
		listen.ArtistName = v
	}
	listen.ReleaseName = textField(obj["album"])

	listen.SetInfo(models.InfoRecordingMBID, asString(obj["mbid"]))
	listen.SetInfo(models.InfoOriginURL, asString(obj["url"]))
	listen.SetInfo(models.InfoMusicService, "lastfm")

	return listen
}

// matchService maps an origin string to a known service name by
// case-insensitive substring match, in knownServices order.
func matchService(origin string) string {
	lower := strings.ToLower(origin)
	for _, svc := range knownServices {
		if strings.Contains(lower, svc) {
			return svc
		}
	}
	return ""
}

// joinArtists joins an artists array into a single ", "-separated name.
// Non-string elements are skipped.
func joinArtists(v interface{}) string {
	arr, ok := v.([]interface{})
	if !ok {
		return asString(v)
	}
	names := make([]string, 0, len(arr))
	for _, elem := range arr {
		if name := asString(elem); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// albumTitle extracts an album name from a plain string or a Maloja
// album object with "albumtitle" or "title".
func albumTitle(v interface{}) string {
	if obj, ok := v.(map[string]interface{}); ok {
		if title := asString(obj["albumtitle"]); title != "" {
			return title
		}
		return asString(obj["title"])
	}
	return asString(v)
}

// textField extracts a name from either a plain string or a Last.fm
// {"#text": ...} object.
func textField(v interface{}) string {
	if obj, ok := v.(map[string]interface{}); ok {
		if text := asString(obj["#text"]); text != "" {
			return text
		}
		return asString(obj["name"])
	}
	return asString(v)
}

// asString returns v as a string, or "" for any other type.
func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

// asInt64 coerces JSON number representations (float64, json.Number,
// numeric strings) to int64.
func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	case string:
		if n == "" {
			return 0, false
		}
		if i, err := strconv.ParseInt(n, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return int64(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// firstString returns the first non-empty string value among keys.
func firstString(obj map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := asString(obj[k]); s != "" {
			return s
		}
	}
	return ""
}

// firstInt64 returns the first coercible numeric value among keys.
func firstInt64(obj map[string]interface{}, keys ...string) (int64, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if n, ok := asInt64(v); ok {
				return n, true
			}
		}
	}
	return 0, false
}
