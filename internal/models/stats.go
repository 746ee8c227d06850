// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package models

// PeriodStats holds the rollup statistics for one aggregation window.
// It is derived on demand from the listen collection and never persisted
// as a source of truth.
type PeriodStats struct {
	TotalListens  int `json:"total_listens"`
	UniqueArtists int `json:"unique_artists"`
	UniqueTracks  int `json:"unique_tracks"`
	UniqueAlbums  int `json:"unique_albums"`

	// MostActiveDay is the weekday name with the highest listen count
	// across the window; ties go to the weekday first encountered in
	// listen iteration order.
	MostActiveDay         string `json:"most_active_day"`
	TracksOnMostActiveDay int    `json:"tracks_on_most_active_day"`

	// AvgPerDay is total listens divided by the number of distinct
	// calendar dates with at least one listen, rounded to nearest.
	AvgPerDay int `json:"avg_per_day"`

	// PeakDay is the single calendar date (ISO format) with the highest
	// count; ties go to the earliest date.
	PeakDay   string `json:"peak_day"`
	PeakCount int    `json:"peak_count"`

	// CurrentStreak counts consecutive calendar days up to and including
	// today (UTC) with at least one listen. Not filtered by the window.
	CurrentStreak int `json:"current_streak"`
}

// ActivityBucket is one point of the listening activity time series.
// TimeRange is the bucket's calendar key: ISO date for daily buckets,
// YYYY-Www for weekly, YYYY-MM for monthly, YYYY for yearly.
type ActivityBucket struct {
	TimeRange   string `json:"time_range"`
	ListenCount int    `json:"listen_count"`
}

// ActivityResponse is the payload of the activity endpoint: the bucket
// series plus the window and granularity it was computed with.
type ActivityResponse struct {
	ListeningActivity []ActivityBucket `json:"listening_activity"`
	Range             string           `json:"range"`
	Grouping          string           `json:"grouping"`
}
