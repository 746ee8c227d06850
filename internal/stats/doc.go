// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

/*
Package stats computes listening statistics over time windows.

Windows are rolling and half-open: week is the last 7 days, month the
last 30, year the last 365, each covering [now-d, now); all_time is
unbounded. Aggregations include totals and distinct counts, peak days,
most active weekdays, daily averages, listening streaks and activity
histograms at a window-dependent granularity.

All calendar bucketing (daily activity, streaks, peak days) uses UTC
dates. Listens are stored as epoch seconds, so a fixed zone keeps
bucket boundaries stable regardless of where the server runs.

The Refresher coalesces recompute requests behind a debounce so bursts
of imports trigger one recomputation, not one per record.
*/
package stats
