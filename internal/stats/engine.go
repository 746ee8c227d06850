// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package stats

import (
	"math"
	"sort"
	"time"

	"github.com/listenkeep/listenkeep/internal/models"
)

// ComputePeriodStats derives the rollup statistics for one window.
// All fields except CurrentStreak consider only in-window listens;
// the streak is a property of the whole history and of today, so it
// ignores the window entirely.
func ComputePeriodStats(listens []models.Listen, w Window, now time.Time) *models.PeriodStats {
	stats := &models.PeriodStats{
		CurrentStreak: CurrentStreak(listens, now),
	}

	artists := make(map[string]struct{})
	tracks := make(map[string]struct{})
	albums := make(map[string]struct{})
	dateCounts := make(map[string]int)
	weekdayCounts := make(map[string]int)
	var weekdayOrder []string

	for i := range listens {
		l := &listens[i]
		if !w.Contains(l.ListenedAt) {
			continue
		}
		stats.TotalListens++

		artists[l.ArtistName] = struct{}{}
		tracks[l.TrackName+"\x00"+l.ArtistName] = struct{}{}
		if l.ReleaseName != "" {
			albums[l.ReleaseName+"\x00"+l.ArtistName] = struct{}{}
		}

		day := l.ListenedAtTime()
		dateCounts[day.Format("2006-01-02")]++

		weekday := day.Weekday().String()
		if _, seen := weekdayCounts[weekday]; !seen {
			weekdayOrder = append(weekdayOrder, weekday)
		}
		weekdayCounts[weekday]++
	}

	stats.UniqueArtists = len(artists)
	stats.UniqueTracks = len(tracks)
	stats.UniqueAlbums = len(albums)

	for _, weekday := range weekdayOrder {
		if weekdayCounts[weekday] > stats.TracksOnMostActiveDay {
			stats.MostActiveDay = weekday
			stats.TracksOnMostActiveDay = weekdayCounts[weekday]
		}
	}

	stats.PeakDay, stats.PeakCount = peakDate(dateCounts)

	if len(dateCounts) > 0 {
		stats.AvgPerDay = int(math.Round(float64(stats.TotalListens) / float64(len(dateCounts))))
	}

	return stats
}

// peakDate finds the calendar date with the highest count. Dates are
// walked in ascending order with a strictly-greater comparison, so ties
// resolve to the earliest date.
func peakDate(dateCounts map[string]int) (string, int) {
	dates := make([]string, 0, len(dateCounts))
	for date := range dateCounts {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var peakDay string
	var peakCount int
	for _, date := range dates {
		if dateCounts[date] > peakCount {
			peakDay = date
			peakCount = dateCounts[date]
		}
	}
	return peakDay, peakCount
}

// CurrentStreak counts consecutive UTC calendar days with at least one
// listen, ending today. A silent today means a streak of zero even if
// yesterday closed a long run.
func CurrentStreak(listens []models.Listen, now time.Time) int {
	activeDates := make(map[string]struct{}, len(listens))
	for i := range listens {
		activeDates[listens[i].ListenedAtTime().Format("2006-01-02")] = struct{}{}
	}

	streak := 0
	day := now.UTC()
	for {
		if _, ok := activeDates[day.Format("2006-01-02")]; !ok {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// ActivitySeries builds the listening activity histogram for a window.
// Buckets with no listens are omitted and the series is sorted
// ascending by bucket key.
func ActivitySeries(listens []models.Listen, w Window) []models.ActivityBucket {
	granularity := GranularityFor(w.Range)

	counts := make(map[string]int)
	for i := range listens {
		l := &listens[i]
		if !w.Contains(l.ListenedAt) {
			continue
		}
		counts[BucketLabel(l.ListenedAtTime(), granularity)]++
	}

	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	buckets := make([]models.ActivityBucket, 0, len(keys))
	for _, key := range keys {
		buckets = append(buckets, models.ActivityBucket{
			TimeRange:   key,
			ListenCount: counts[key],
		})
	}
	return buckets
}
