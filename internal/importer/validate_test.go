// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package importer

import (
	"strings"
	"testing"
)

func TestValidateFileJSON(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		data        string
		wantValid   bool
		wantMessage string
		wantCount   int
	}{
		{
			name:      "valid listenbrainz array",
			filename:  "export.json",
			data:      `[{"listened_at": 1700000000, "track_metadata": {"track_name": "Song", "artist_name": "Band"}}]`,
			wantValid: true,
			wantCount: 1,
		},
		{
			name:        "empty listens array",
			filename:    "export.json",
			data:        `{"listens": []}`,
			wantValid:   false,
			wantMessage: "contains no listens",
		},
		{
			name:        "invalid json",
			filename:    "export.json",
			data:        `{"listens": [`,
			wantValid:   false,
			wantMessage: "not valid JSON",
		},
		{
			name:        "unsupported shape",
			filename:    "export.json",
			data:        `{"tracks": [], "user": "x"}`,
			wantValid:   false,
			wantMessage: "unsupported import format",
		},
		{
			name:        "first record missing fields",
			filename:    "export.json",
			data:        `{"listens": [{"note": "nothing useful"}]}`,
			wantValid:   false,
			wantMessage: "missing required fields",
		},
		{
			name:        "unsupported extension",
			filename:    "export.xml",
			data:        `<listens/>`,
			wantValid:   false,
			wantMessage: "unsupported file type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateFile(tt.filename, []byte(tt.data))
			if result.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (message: %s)", result.Valid, tt.wantValid, result.Message)
			}
			if tt.wantMessage != "" && !strings.Contains(result.Message, tt.wantMessage) {
				t.Errorf("Message = %q, want substring %q", result.Message, tt.wantMessage)
			}
			if tt.wantCount > 0 && result.RecordCount != tt.wantCount {
				t.Errorf("RecordCount = %d, want %d", result.RecordCount, tt.wantCount)
			}
		})
	}
}

func TestValidateFileCSV(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		wantValid   bool
		wantMessage string
	}{
		{
			name:      "valid csv",
			data:      "track_name,artist_name,listened_at\nSong,Band,1700000000\n",
			wantValid: true,
		},
		{
			name:        "missing required column",
			data:        "track_name,listened_at\nSong,1700000000\n",
			wantValid:   false,
			wantMessage: "artist_name",
		},
		{
			name:        "header only",
			data:        "track_name,artist_name,listened_at\n",
			wantValid:   false,
			wantMessage: "contains no listens",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateFile("history.csv", []byte(tt.data))
			if result.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (message: %s)", result.Valid, tt.wantValid, result.Message)
			}
			if tt.wantMessage != "" && !strings.Contains(result.Message, tt.wantMessage) {
				t.Errorf("Message = %q, want substring %q", result.Message, tt.wantMessage)
			}
		})
	}
}

func TestParseCSVRecords(t *testing.T) {
	data := "track_name,artist_name,listened_at,release_name\nSong,Band,1700000000,Album\nOther,Band,1700000100,\n"

	records, err := ParseCSVRecords([]byte(data))
	if err != nil {
		t.Fatalf("ParseCSVRecords() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	listen, err := NormalizeRecord(records[0], FormatCSV, testNow)
	if err != nil {
		t.Fatalf("NormalizeRecord() error = %v", err)
	}
	if listen.TrackName != "Song" || listen.ArtistName != "Band" {
		t.Errorf("names = %q/%q", listen.TrackName, listen.ArtistName)
	}
	if listen.ListenedAt != 1700000000 {
		t.Errorf("ListenedAt = %d, want numeric string parsed", listen.ListenedAt)
	}
	if listen.ReleaseName != "Album" {
		t.Errorf("ReleaseName = %q, want Album", listen.ReleaseName)
	}

	second, err := NormalizeRecord(records[1], FormatCSV, testNow)
	if err != nil {
		t.Fatalf("NormalizeRecord() error = %v", err)
	}
	if second.ReleaseName != "" {
		t.Errorf("ReleaseName = %q, want empty cell dropped", second.ReleaseName)
	}
}

func TestParseCSVRecordsMissingColumns(t *testing.T) {
	if _, err := ParseCSVRecords([]byte("artist,when\nBand,now\n")); err == nil {
		t.Error("ParseCSVRecords() = nil error for missing required columns")
	}
}
