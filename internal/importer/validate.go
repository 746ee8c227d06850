// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/listenkeep/listenkeep/internal/models"
)

// ValidateFile runs the pre-import checks on a raw upload: supported
// file kind by extension, parseable content, a recognized schema, at
// least one record, and the minimum required fields on the first
// record. It never returns an error; failures are reported through the
// result so the API can surface them verbatim.
func ValidateFile(filename string, data []byte) models.ValidationResult {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return validateJSON(data)
	case ".csv":
		return validateCSV(data)
	default:
		return models.ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("unsupported file type %q: expected .json or .csv", filepath.Ext(filename)),
		}
	}
}

// ParseJSONDocument parses an import file preserving number precision.
func ParseJSONDocument(data []byte) (interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var doc interface{}
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	return doc, nil
}

func validateJSON(data []byte) models.ValidationResult {
	doc, err := ParseJSONDocument(data)
	if err != nil {
		return models.ValidationResult{Valid: false, Message: "file is not valid JSON"}
	}

	format, err := DetectSchema(doc)
	if err != nil {
		return models.ValidationResult{Valid: false, Message: err.Error()}
	}

	records := Records(doc, format)
	if len(records) == 0 {
		return models.ValidationResult{Valid: false, Message: "file contains no listens"}
	}

	if missing := missingFirstRecordFields(records[0], format); len(missing) > 0 {
		return models.ValidationResult{
			Valid:       false,
			Message:     fmt.Sprintf("first record is missing required fields: %s", strings.Join(missing, ", ")),
			RecordCount: len(records),
		}
	}

	return models.ValidationResult{
		Valid:       true,
		Message:     fmt.Sprintf("detected %s file with %d records", format, len(records)),
		RecordCount: len(records),
	}
}

// missingFirstRecordFields spot-checks the first record for the fields a
// converter cannot sensibly default away in a well-formed file. Last.fm
// dumps are exempt: their shape was already proven by detection.
func missingFirstRecordFields(rec interface{}, format Format) []string {
	obj, ok := rec.(map[string]interface{})
	if !ok {
		return []string{"track_name", "artist_name", "listened_at"}
	}

	var missing []string
	switch format {
	case FormatMaloja:
		track, _ := obj["track"].(map[string]interface{})
		if asString(track["title"]) == "" {
			missing = append(missing, "track.title")
		}
		if joinArtists(track["artists"]) == "" {
			missing = append(missing, "track.artists")
		}
		if _, ok := asInt64(obj["time"]); !ok {
			missing = append(missing, "time")
		}
	case FormatLastFM:
		return nil
	default:
		if !hasTrackField(obj) {
			missing = append(missing, "track_name")
		}
		if firstString(obj, "artist_name", "artist") == "" {
			missing = append(missing, "artist_name")
		}
		if _, ok := firstInt64(obj, "listened_at", "timestamp", "time"); !ok {
			missing = append(missing, "listened_at")
		}
	}
	return missing
}

// hasTrackField reports whether a flat or ListenBrainz-nested record
// carries a track name.
func hasTrackField(obj map[string]interface{}) bool {
	if tm, ok := obj["track_metadata"].(map[string]interface{}); ok {
		return asString(tm["track_name"]) != ""
	}
	return firstString(obj, "track_name", "track", "title", "name") != ""
}

func validateCSV(data []byte) models.ValidationResult {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return models.ValidationResult{Valid: false, Message: "file is not valid CSV"}
	}

	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(col))
	}
	if missing := missingCSVColumns(columns); len(missing) > 0 {
		return models.ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("CSV header is missing required columns: %s", strings.Join(missing, ", ")),
		}
	}

	rows := 0
	for {
		if _, err := reader.Read(); err != nil {
			if err == io.EOF {
				break
			}
			return models.ValidationResult{Valid: false, Message: "file is not valid CSV"}
		}
		rows++
	}
	if rows == 0 {
		return models.ValidationResult{Valid: false, Message: "file contains no listens"}
	}

	return models.ValidationResult{
		Valid:       true,
		Message:     fmt.Sprintf("detected CSV file with %d records", rows),
		RecordCount: rows,
	}
}
