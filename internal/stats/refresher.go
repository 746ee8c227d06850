// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package stats

import (
	"context"
	"time"

	"github.com/bep/debounce"
)

// Refresher coalesces statistics recompute requests. Imports call
// Notify after every accepted batch; the debounce window collapses
// bursts into a single recompute call once activity settles.
//
// Refresher implements suture.Service and runs until its context ends.
type Refresher struct {
	notify    chan struct{}
	debounced func(func())
	recompute func(context.Context)
}

// NewRefresher creates a refresher with the given settle window.
func NewRefresher(wait time.Duration, recompute func(context.Context)) *Refresher {
	if wait <= 0 {
		wait = 500 * time.Millisecond
	}
	return &Refresher{
		notify:    make(chan struct{}, 1),
		debounced: debounce.New(wait),
		recompute: recompute,
	}
}

// Notify requests a recompute. Never blocks; a pending request absorbs
// further notifications until the debounce fires.
func (r *Refresher) Notify() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Serve runs the refresher loop until the context is canceled.
func (r *Refresher) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.notify:
			r.debounced(func() {
				if ctx.Err() != nil {
					return
				}
				r.recompute(ctx)
			})
		}
	}
}

// String names the service in supervisor logs.
func (r *Refresher) String() string {
	return "stats-refresher"
}
