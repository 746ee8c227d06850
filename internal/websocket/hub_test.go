// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/listenkeep/listenkeep/internal/models"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("hub did not stop on cancel")
		}
	})
	return hub, cancel
}

func newHubClient(hub *Hub) *Client {
	return &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		send: make(chan Message, 4),
	}
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.After(time.Second)
	for hub.GetClientCount() != want {
		select {
		case <-deadline:
			t.Fatalf("client count = %d, want %d", hub.GetClientCount(), want)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub, _ := startHub(t)

	client := newHubClient(hub)
	hub.Register <- client
	waitForClients(t, hub, 1)

	hub.Unregister <- client
	waitForClients(t, hub, 0)

	if _, open := <-client.send; open {
		t.Error("send channel still open after unregister")
	}
}

func TestHubBroadcastNewScrobble(t *testing.T) {
	hub, _ := startHub(t)

	client := newHubClient(hub)
	hub.Register <- client
	waitForClients(t, hub, 1)

	listen := &models.Listen{TrackName: "Song", ArtistName: "Band", ListenedAt: 1700000000}
	hub.BroadcastNewScrobble(listen)

	select {
	case msg := <-client.send:
		if msg.Type != MessageTypeNewScrobble {
			t.Errorf("message type = %q, want %q", msg.Type, MessageTypeNewScrobble)
		}
	case <-time.After(time.Second):
		t.Fatal("broadcast never reached client")
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub, _ := startHub(t)

	slow := &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message)}
	hub.Register <- slow
	waitForClients(t, hub, 1)

	// Nobody reads slow.send, so the first broadcast cannot be
	// buffered and the client must be evicted.
	hub.BroadcastStatsUpdate(&models.PeriodStats{TotalListens: 1})
	waitForClients(t, hub, 0)
}

func TestHubShutdownClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Serve(ctx)
		close(done)
	}()

	client := newHubClient(hub)
	hub.Register <- client
	waitForClients(t, hub, 1)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return on cancel")
	}

	if _, open := <-client.send; open {
		t.Error("send channel still open after hub shutdown")
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("client count = %d, want 0 after shutdown", hub.GetClientCount())
	}
}
