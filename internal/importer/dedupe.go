// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package importer

import "github.com/listenkeep/listenkeep/internal/models"

// Deduplicator tracks accepted listens within one import batch and
// answers whether a candidate duplicates any of them. Two listens are
// duplicates when track and artist names match exactly (case-sensitive)
// and their timestamps differ by at most the tolerance. First-seen
// wins: the earlier record in file order is the one that is kept.
type Deduplicator struct {
	tolerance int64
	seen      map[string][]int64
}

// NewDeduplicator creates a deduplicator with the given timestamp
// tolerance in seconds.
func NewDeduplicator(toleranceSeconds int64) *Deduplicator {
	return &Deduplicator{
		tolerance: toleranceSeconds,
		seen:      make(map[string][]int64),
	}
}

// IsDuplicate reports whether the listen duplicates an already-remembered
// one.
func (d *Deduplicator) IsDuplicate(l *models.Listen) bool {
	for _, ts := range d.seen[dedupeKey(l)] {
		if withinTolerance(l.ListenedAt, ts, d.tolerance) {
			return true
		}
	}
	return false
}

// Remember records an accepted listen for subsequent duplicate checks.
func (d *Deduplicator) Remember(l *models.Listen) {
	key := dedupeKey(l)
	d.seen[key] = append(d.seen[key], l.ListenedAt)
}

// IsDuplicatePair reports whether two listens duplicate each other under
// the given tolerance.
func IsDuplicatePair(a, b *models.Listen, toleranceSeconds int64) bool {
	return a.TrackName == b.TrackName &&
		a.ArtistName == b.ArtistName &&
		withinTolerance(a.ListenedAt, b.ListenedAt, toleranceSeconds)
}

func withinTolerance(a, b, tolerance int64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// dedupeKey builds the identity key. The NUL separator keeps
// ("ab", "c") and ("a", "bc") distinct.
func dedupeKey(l *models.Listen) string {
	return l.TrackName + "\x00" + l.ArtistName
}
