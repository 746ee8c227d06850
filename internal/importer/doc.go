// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

/*
Package importer implements the multi-format listen import pipeline.

The pipeline turns raw import files from heterogeneous scrobble sources
into canonical listens in four stages:

 1. Schema detection: DetectSchema inspects a parsed JSON document and
    identifies which known source format it represents (Maloja exports,
    ListenBrainz arrays and wrapped payloads, Navidrome exports, Last.fm
    API dumps, generic scrobble files). Detection is a fixed-priority
    chain of structural presence checks; the first match wins, so a
    document satisfying two shapes is resolved deterministically.

 2. Normalization: NormalizeRecord converts one source-specific record
    into a canonical models.Listen. Converters are total for any record
    that is at least a JSON object; malformed leaves degrade to default
    values ("Unknown" names, current time) rather than aborting a batch.

 3. Validation: ValidateFile is a user-facing pre-check run once per file
    before any per-record work: supported file kind, non-empty record
    array, minimum required fields on the first record. It never mutates
    input and never fails with an error, returning a structured result.

 4. Orchestration: Orchestrator.Run drives a batch through normalization,
    deduplication and the import policy (skip, merge, replace), producing
    an ImportResult tally. Per-record problems are absorbed into the
    tally; only file-level problems (unsupported format, storage failure)
    propagate as errors.

CSV files are supported as a second input kind: ParseCSVRecords converts
rows into generic records that flow through the same normalization path.
*/
package importer
