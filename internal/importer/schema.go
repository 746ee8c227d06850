// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package importer

import (
	"fmt"
	"sort"
	"strings"
)

// Format identifies which known source schema an import document matched.
type Format string

const (
	// FormatMaloja is a Maloja export: an object with a "scrobbles" array
	// of nested {track: {...}, time} records, usually with a "maloja"
	// marker object at the top level.
	FormatMaloja Format = "maloja"

	// FormatListenBrainzArray is a bare JSON array of
	// {listened_at, track_metadata} records.
	FormatListenBrainzArray Format = "listenbrainz_array"

	// FormatListenBrainzListens is an object wrapping the same records in
	// a "listens" array.
	FormatListenBrainzListens Format = "listenbrainz_listens"

	// FormatListenBrainzPayload is an object wrapping the records in a
	// "payload" array, as produced by the ListenBrainz submission API.
	FormatListenBrainzPayload Format = "listenbrainz_payload"

	// FormatGenericScrobbles is an object with a "scrobbles" array that
	// lacks the Maloja nested-track shape; records are converted with the
	// generic field mapping.
	FormatGenericScrobbles Format = "scrobbles"

	// FormatNavidrome is a Navidrome export: an object with a "data"
	// array of loosely-typed records.
	FormatNavidrome Format = "navidrome"

	// FormatLastFM is a Last.fm API dump: an object with
	// "recenttracks.track", which may be a single object or an array.
	FormatLastFM Format = "lastfm"

	// FormatCSV marks records parsed from a CSV file; they follow the
	// generic field mapping.
	FormatCSV Format = "csv"
)

// UnsupportedFormatError reports that no known schema matched a document.
// TopLevelKeys carries the document's top-level key names for diagnostics.
type UnsupportedFormatError struct {
	TopLevelKeys []string
}

func (e *UnsupportedFormatError) Error() string {
	if len(e.TopLevelKeys) == 0 {
		return "unsupported import format: document is not a JSON object or array"
	}
	return fmt.Sprintf("unsupported import format: unrecognized top-level keys [%s]",
		strings.Join(e.TopLevelKeys, ", "))
}

// DetectSchema identifies which known source format a parsed JSON document
// represents. The document is the entire import file, not a single record.
//
// Detection is a fixed-priority chain; the first structural match wins:
// Maloja, bare array, wrapped "listens", wrapped "payload", generic
// scrobbles, Navidrome, Last.fm.
func DetectSchema(doc interface{}) (Format, error) {
	if isMalojaDocument(doc) {
		return FormatMaloja, nil
	}
	if _, ok := doc.([]interface{}); ok {
		return FormatListenBrainzArray, nil
	}

	obj, ok := doc.(map[string]interface{})
	if !ok {
		return "", &UnsupportedFormatError{}
	}

	if _, ok := obj["listens"].([]interface{}); ok {
		return FormatListenBrainzListens, nil
	}
	if _, ok := obj["payload"].([]interface{}); ok {
		return FormatListenBrainzPayload, nil
	}
	if _, ok := obj["scrobbles"].([]interface{}); ok {
		return FormatGenericScrobbles, nil
	}
	if _, ok := obj["data"].([]interface{}); ok {
		return FormatNavidrome, nil
	}
	if rt, ok := obj["recenttracks"].(map[string]interface{}); ok {
		if _, ok := rt["track"]; ok {
			return FormatLastFM, nil
		}
	}

	return "", &UnsupportedFormatError{TopLevelKeys: topLevelKeys(obj)}
}

// isMalojaDocument checks for the Maloja export shape: a "scrobbles" array
// whose elements nest a "track" object, or the explicit "maloja" marker.
// The marker selects a sub-variant but does not change the conversion
// contract, so both cases map to FormatMaloja.
func isMalojaDocument(doc interface{}) bool {
	obj, ok := doc.(map[string]interface{})
	if !ok {
		return false
	}

	scrobbles, ok := obj["scrobbles"].([]interface{})
	if !ok {
		return false
	}

	if _, ok := obj["maloja"]; ok {
		return true
	}

	if len(scrobbles) > 0 {
		if first, ok := scrobbles[0].(map[string]interface{}); ok {
			if _, ok := first["track"].(map[string]interface{}); ok {
				return true
			}
		}
	}

	return false
}

// Records extracts the record sequence from a detected document,
// preserving file order. For Last.fm a single track object is wrapped
// into a one-element slice.
func Records(doc interface{}, format Format) []interface{} {
	switch format {
	case FormatListenBrainzArray:
		records, _ := doc.([]interface{})
		return records
	case FormatMaloja, FormatGenericScrobbles:
		return arrayField(doc, "scrobbles")
	case FormatListenBrainzListens:
		return arrayField(doc, "listens")
	case FormatListenBrainzPayload:
		return arrayField(doc, "payload")
	case FormatNavidrome:
		return arrayField(doc, "data")
	case FormatLastFM:
		obj, ok := doc.(map[string]interface{})
		if !ok {
			return nil
		}
		rt, ok := obj["recenttracks"].(map[string]interface{})
		if !ok {
			return nil
		}
		switch track := rt["track"].(type) {
		case []interface{}:
			return track
		case map[string]interface{}:
			return []interface{}{track}
		}
		return nil
	default:
		return nil
	}
}

// arrayField returns obj[key] as a slice, or nil.
func arrayField(doc interface{}, key string) []interface{} {
	obj, ok := doc.(map[string]interface{})
	if !ok {
		return nil
	}
	records, _ := obj[key].([]interface{})
	return records
}

// topLevelKeys returns the sorted key names of an object for diagnostics.
func topLevelKeys(obj map[string]interface{}) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
