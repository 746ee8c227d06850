// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/listenkeep/listenkeep/internal/logging"
	"github.com/listenkeep/listenkeep/internal/models"
)

// ListenStore is the storage surface the import pipeline needs.
type ListenStore interface {
	InsertListen(ctx context.Context, l *models.Listen) error
	FindMatching(ctx context.Context, trackName, artistName string, listenedAt, toleranceSeconds int64) (*models.Listen, error)
	MergeAdditionalInfo(ctx context.Context, id uuid.UUID, info map[string]interface{}) error
	DeleteAllListens(ctx context.Context) error
}

// Enricher augments a listen with metadata from an external source.
// It returns true when the listen gained at least one new field.
type Enricher interface {
	Enrich(ctx context.Context, l *models.Listen, source models.MetadataSource) (bool, error)
}

// Orchestrator drives import batches through normalization,
// deduplication, the import policy and optional enrichment.
type Orchestrator struct {
	store      ListenStore
	enricher   Enricher
	tolerance  int64
	errorCap   int
	onImported func(*models.Listen)
}

// NewOrchestrator creates an orchestrator. enricher may be nil to
// disable enrichment regardless of the requested metadata source.
func NewOrchestrator(store ListenStore, enricher Enricher, toleranceSeconds int64, errorCap int) *Orchestrator {
	if toleranceSeconds < 0 {
		toleranceSeconds = 0
	}
	if errorCap <= 0 {
		errorCap = 50
	}
	return &Orchestrator{
		store:     store,
		enricher:  enricher,
		tolerance: toleranceSeconds,
		errorCap:  errorCap,
	}
}

// OnImported registers a hook invoked after every newly stored listen,
// used to push live updates. Must be set before the first Run.
func (o *Orchestrator) OnImported(fn func(*models.Listen)) {
	o.onImported = fn
}

// Run imports one batch of raw records already extracted from a detected
// document. Per-record failures are absorbed into the result tally, with
// messages retained up to the error cap while counters stay exact.
// Storage failures abort the batch and return both the partial result
// and the error.
//
// Policy: replace wipes all stored listens first and disables duplicate
// checks for the batch; skip drops duplicates; merge folds a duplicate's
// additional metadata into the stored listen and counts it as imported.
func (o *Orchestrator) Run(ctx context.Context, format Format, batch *models.ImportBatch) (*models.ImportResult, error) {
	result := &models.ImportResult{Total: len(batch.RawRecords)}

	mode := batch.ImportMode
	if !mode.Valid() {
		mode = models.ImportModeSkip
	}

	if mode == models.ImportModeReplace {
		if err := o.store.DeleteAllListens(ctx); err != nil {
			return result, fmt.Errorf("clearing existing listens: %w", err)
		}
		logging.Info().Str("format", string(format)).Msg("replace mode cleared existing listens")
	}

	dedup := NewDeduplicator(o.tolerance)
	now := nowUTC()

	for i, raw := range batch.RawRecords {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		listen, err := NormalizeRecord(raw, format, now)
		if err != nil {
			result.Failed++
			o.recordError(result, i, err)
			continue
		}

		checkDuplicates := batch.Deduplicate && mode != models.ImportModeReplace
		if checkDuplicates {
			handled, err := o.applyDuplicatePolicy(ctx, batch, mode, dedup, listen, result)
			if err != nil {
				return result, err
			}
			if handled {
				continue
			}
		}

		if err := o.store.InsertListen(ctx, listen); err != nil {
			return result, fmt.Errorf("storing listen: %w", err)
		}
		dedup.Remember(listen)
		result.Imported++
		if o.onImported != nil {
			o.onImported(listen)
		}

		o.enrich(ctx, batch, listen, result)
	}

	return result, nil
}

// applyDuplicatePolicy resolves one candidate against both in-batch and
// stored listens. It returns handled=true when the record needs no
// insert. A storage lookup failure aborts the batch.
func (o *Orchestrator) applyDuplicatePolicy(ctx context.Context, batch *models.ImportBatch, mode models.ImportMode, dedup *Deduplicator, listen *models.Listen, result *models.ImportResult) (bool, error) {
	duplicate := dedup.IsDuplicate(listen)

	var existing *models.Listen
	if !duplicate || mode == models.ImportModeMerge {
		found, err := o.store.FindMatching(ctx, listen.TrackName, listen.ArtistName, listen.ListenedAt, o.tolerance)
		if err != nil {
			return false, fmt.Errorf("checking for duplicates: %w", err)
		}
		existing = found
		duplicate = duplicate || existing != nil
	}

	if !duplicate {
		return false, nil
	}

	if mode == models.ImportModeMerge && existing != nil {
		if err := o.store.MergeAdditionalInfo(ctx, existing.ID, listen.AdditionalInfo); err != nil {
			return false, fmt.Errorf("merging listen metadata: %w", err)
		}
		result.Imported++

		merged := *existing
		merged.AdditionalInfo = listen.AdditionalInfo
		o.enrich(ctx, batch, &merged, result)
		return true, nil
	}

	result.DuplicatesSkipped++
	return true, nil
}

// enrich runs the optional metadata enrichment for one imported listen
// and folds the gained fields back into the stored row. Enrichment and
// write-back failures never fail the import; they are logged and the
// stored listen keeps its original metadata.
func (o *Orchestrator) enrich(ctx context.Context, batch *models.ImportBatch, listen *models.Listen, result *models.ImportResult) {
	if o.enricher == nil || batch.MetadataSource == "" || batch.MetadataSource == models.MetadataSourceOriginal {
		return
	}

	enriched, err := o.enricher.Enrich(ctx, listen, batch.MetadataSource)
	if err != nil {
		logging.Debug().
			Err(err).
			Str("track", listen.TrackName).
			Str("source", string(batch.MetadataSource)).
			Msg("enrichment failed for listen")
		return
	}
	if !enriched {
		return
	}

	// The row was stored before enrichment ran; persist the gained
	// fields so they outlive this batch.
	if err := o.store.MergeAdditionalInfo(ctx, listen.ID, listen.AdditionalInfo); err != nil {
		logging.Warn().
			Err(err).
			Str("track", listen.TrackName).
			Msg("persisting enriched metadata failed")
		return
	}
	result.Enriched++
}

// nowUTC pins the default timestamp for a whole batch so every
// defaulted record in one run gets the same value.
func nowUTC() time.Time {
	return time.Now().UTC()
}

// recordError appends a per-record error message, capped so a fully
// broken file cannot balloon the response. Counters stay exact.
func (o *Orchestrator) recordError(result *models.ImportResult, index int, err error) {
	if len(result.Errors) >= o.errorCap {
		return
	}
	result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", index+1, err))
}
