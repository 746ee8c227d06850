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
	"strings"
)

// csvRequiredColumns are the header columns a CSV import must carry.
var csvRequiredColumns = []string{"track_name", "artist_name", "listened_at"}

// ParseCSVRecords reads a CSV export and converts each data row into a
// generic record keyed by the header column names. The records flow
// through the same normalization path as flat JSON records.
func ParseCSVRecords(data []byte) ([]interface{}, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(col))
	}
	if missing := missingCSVColumns(columns); len(missing) > 0 {
		return nil, fmt.Errorf("CSV header is missing required columns: %s",
			strings.Join(missing, ", "))
	}

	var records []interface{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", len(records)+2, err)
		}

		rec := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if i < len(row) && row[i] != "" {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}

	return records, nil
}

// missingCSVColumns returns the required columns absent from a header.
func missingCSVColumns(columns []string) []string {
	present := make(map[string]bool, len(columns))
	for _, col := range columns {
		present[col] = true
	}
	var missing []string
	for _, col := range csvRequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
