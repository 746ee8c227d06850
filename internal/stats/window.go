// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package stats

import (
	"fmt"
	"time"
)

// Range selects a rolling time window for statistics queries.
type Range string

const (
	RangeWeek    Range = "week"
	RangeMonth   Range = "month"
	RangeYear    Range = "year"
	RangeAllTime Range = "all_time"
)

// Valid reports whether the range is one of the supported windows.
func (r Range) Valid() bool {
	switch r {
	case RangeWeek, RangeMonth, RangeYear, RangeAllTime:
		return true
	}
	return false
}

// windowDays maps bounded ranges to their rolling day spans.
var windowDays = map[Range]int{
	RangeWeek:  7,
	RangeMonth: 30,
	RangeYear:  365,
}

// Window is a half-open interval [Start, End). A zero Start means
// unbounded below (all_time).
type Window struct {
	Range Range
	Start time.Time
	End   time.Time
}

// NewWindow builds the window for a range anchored at now.
func NewWindow(r Range, now time.Time) Window {
	w := Window{Range: r, End: now}
	if days, ok := windowDays[r]; ok {
		w.Start = now.AddDate(0, 0, -days)
	}
	return w
}

// Contains reports whether an epoch-second timestamp falls in the window.
func (w Window) Contains(listenedAt int64) bool {
	t := time.Unix(listenedAt, 0).UTC()
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	return t.Before(w.End)
}

// Granularity is the bucket size of an activity histogram.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
	GranularityYearly  Granularity = "yearly"
)

// GranularityFor maps a range to its histogram bucket size: short
// windows get daily buckets, a year gets monthly, all_time yearly.
func GranularityFor(r Range) Granularity {
	switch r {
	case RangeWeek, RangeMonth:
		return GranularityDaily
	case RangeYear:
		return GranularityMonthly
	default:
		return GranularityYearly
	}
}

// BucketLabel formats a UTC timestamp as its histogram bucket label:
// ISO date for daily, YYYY-Www for weekly, YYYY-MM for monthly, YYYY
// for yearly. Labels of one granularity sort lexically in time order.
func BucketLabel(t time.Time, g Granularity) string {
	t = t.UTC()
	switch g {
	case GranularityDaily:
		return t.Format("2006-01-02")
	case GranularityWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case GranularityMonthly:
		return t.Format("2006-01")
	default:
		return t.Format("2006")
	}
}
