// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package stats

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRefresherCoalescesBursts(t *testing.T) {
	var recomputes atomic.Int64
	r := NewRefresher(30*time.Millisecond, func(context.Context) {
		recomputes.Add(1)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		_ = r.Serve(ctx)
		close(done)
	}()

	for i := 0; i < 10; i++ {
		r.Notify()
		time.Sleep(2 * time.Millisecond)
	}

	deadline := time.After(2 * time.Second)
	for recomputes.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("recompute never fired")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Settle, then verify the burst collapsed into few recomputes.
	time.Sleep(100 * time.Millisecond)
	if n := recomputes.Load(); n > 2 {
		t.Errorf("recomputes = %d, want burst coalesced to at most 2", n)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve did not stop on context cancel")
	}
}

func TestRefresherNotifyNeverBlocks(t *testing.T) {
	r := NewRefresher(time.Minute, func(context.Context) {})

	// No Serve loop is draining; repeated notifications must not block.
	doneCh := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			r.Notify()
		}
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked without a running Serve loop")
	}
}
