// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package models

// ImportMode is the policy for handling duplicates and existing data
// during a bulk import.
type ImportMode string

const (
	// ImportModeSkip drops duplicate records, counting them in
	// DuplicatesSkipped.
	ImportModeSkip ImportMode = "skip"

	// ImportModeMerge persists duplicates as metadata updates to the
	// matched existing listen instead of new rows.
	ImportModeMerge ImportMode = "merge"

	// ImportModeReplace discards all pre-existing listens before the batch
	// begins, then treats every record as non-duplicate.
	ImportModeReplace ImportMode = "replace"
)

// Valid reports whether the mode is one of the supported policies.
func (m ImportMode) Valid() bool {
	switch m {
	case ImportModeSkip, ImportModeMerge, ImportModeReplace:
		return true
	}
	return false
}

// MetadataSource names the enrichment collaborator consulted for imported
// records. "original" keeps whatever metadata the source file carried.
type MetadataSource string

const (
	MetadataSourceOriginal    MetadataSource = "original"
	MetadataSourceNavidrome   MetadataSource = "navidrome"
	MetadataSourceMusicBrainz MetadataSource = "musicbrainz"
)

// Valid reports whether the source is one of the supported collaborators.
func (s MetadataSource) Valid() bool {
	switch s {
	case MetadataSourceOriginal, MetadataSourceNavidrome, MetadataSourceMusicBrainz:
		return true
	}
	return false
}

// ImportBatch is the transient unit of work for one import operation.
// RawRecords preserves file order; the orchestrator processes them in
// arrival order and the result's error list matches that order.
type ImportBatch struct {
	RawRecords     []interface{}
	ImportMode     ImportMode
	MetadataSource MetadataSource
	Deduplicate    bool
}

// ImportResult tallies the outcome of one import batch.
// Invariant: Imported+DuplicatesSkipped+Failed <= Total, all counts >= 0.
type ImportResult struct {
	Imported          int      `json:"imported"`
	Enriched          int      `json:"enriched"`
	DuplicatesSkipped int      `json:"duplicates_skipped"`
	Failed            int      `json:"failed"`
	Total             int      `json:"total"`
	Errors            []string `json:"errors,omitempty"`
}

// ValidationResult is the structured outcome of the pre-import file check.
// It is returned for every input, valid or not; validation never errors.
type ValidationResult struct {
	Valid       bool   `json:"valid"`
	Message     string `json:"message"`
	RecordCount int    `json:"record_count"`
}
