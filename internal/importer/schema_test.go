// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package importer

import (
	"errors"
	"strings"
	"testing"
)

func TestDetectSchema(t *testing.T) {
	tests := []struct {
		name string
		doc  interface{}
		want Format
	}{
		{
			name: "maloja with marker",
			doc: map[string]interface{}{
				"maloja":    map[string]interface{}{"export_time": float64(1700000000)},
				"scrobbles": []interface{}{},
			},
			want: FormatMaloja,
		},
		{
			name: "maloja by nested track shape",
			doc: map[string]interface{}{
				"scrobbles": []interface{}{
					map[string]interface{}{
						"time":  float64(1700000000),
						"track": map[string]interface{}{"title": "Song"},
					},
				},
			},
			want: FormatMaloja,
		},
		{
			name: "bare array",
			doc: []interface{}{
				map[string]interface{}{"listened_at": float64(1700000000)},
			},
			want: FormatListenBrainzArray,
		},
		{
			name: "wrapped listens",
			doc: map[string]interface{}{
				"listens": []interface{}{map[string]interface{}{}},
			},
			want: FormatListenBrainzListens,
		},
		{
			name: "wrapped payload",
			doc: map[string]interface{}{
				"payload": []interface{}{map[string]interface{}{}},
			},
			want: FormatListenBrainzPayload,
		},
		{
			name: "generic scrobbles without track shape",
			doc: map[string]interface{}{
				"scrobbles": []interface{}{
					map[string]interface{}{"track": "Song", "artist": "Band"},
				},
			},
			want: FormatGenericScrobbles,
		},
		{
			name: "navidrome data array",
			doc: map[string]interface{}{
				"data": []interface{}{map[string]interface{}{}},
			},
			want: FormatNavidrome,
		},
		{
			name: "lastfm recenttracks",
			doc: map[string]interface{}{
				"recenttracks": map[string]interface{}{
					"track": []interface{}{map[string]interface{}{}},
				},
			},
			want: FormatLastFM,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectSchema(tt.doc)
			if err != nil {
				t.Fatalf("DetectSchema() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectSchema() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSchemaPriorityListensOverPayload(t *testing.T) {
	doc := map[string]interface{}{
		"listens": []interface{}{map[string]interface{}{}},
		"payload": []interface{}{map[string]interface{}{}},
	}
	got, err := DetectSchema(doc)
	if err != nil {
		t.Fatalf("DetectSchema() error = %v", err)
	}
	if got != FormatListenBrainzListens {
		t.Errorf("DetectSchema() = %q, want %q", got, FormatListenBrainzListens)
	}
}

func TestDetectSchemaUnsupported(t *testing.T) {
	doc := map[string]interface{}{
		"tracks": []interface{}{},
		"user":   "someone",
	}
	_, err := DetectSchema(doc)
	if err == nil {
		t.Fatal("DetectSchema() error = nil, want UnsupportedFormatError")
	}

	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("error type = %T, want *UnsupportedFormatError", err)
	}
	if len(ufe.TopLevelKeys) != 2 {
		t.Errorf("TopLevelKeys = %v, want 2 keys", ufe.TopLevelKeys)
	}
	if !strings.Contains(err.Error(), "tracks") || !strings.Contains(err.Error(), "user") {
		t.Errorf("Error() = %q, want top-level keys in message", err.Error())
	}
}

func TestRecordsLastFMSingleObject(t *testing.T) {
	doc := map[string]interface{}{
		"recenttracks": map[string]interface{}{
			"track": map[string]interface{}{"name": "Only Song"},
		},
	}

	format, err := DetectSchema(doc)
	if err != nil {
		t.Fatalf("DetectSchema() error = %v", err)
	}

	records := Records(doc, format)
	if len(records) != 1 {
		t.Fatalf("len(Records()) = %d, want 1", len(records))
	}
}

func TestRecordsPreservesOrder(t *testing.T) {
	doc := []interface{}{
		map[string]interface{}{"track_name": "first"},
		map[string]interface{}{"track_name": "second"},
		map[string]interface{}{"track_name": "third"},
	}

	records := Records(doc, FormatListenBrainzArray)
	if len(records) != 3 {
		t.Fatalf("len(Records()) = %d, want 3", len(records))
	}
	first, _ := records[0].(map[string]interface{})
	if first["track_name"] != "first" {
		t.Errorf("records[0] = %v, want first", first["track_name"])
	}
}
