// ListenKeep - Personal Music Listening History and Statistics
// Copyright 2026 ListenKeep Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/listenkeep/listenkeep

// Package websocket pushes live updates to connected clients: new
// scrobbles as they are imported or submitted, and a signal when the
// statistics have been recomputed.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/listenkeep/listenkeep/internal/logging"
	"github.com/listenkeep/listenkeep/internal/metrics"
	"github.com/listenkeep/listenkeep/internal/models"
)

// Message types pushed over the socket.
const (
	MessageTypeNewScrobble = "new_scrobble"
	MessageTypeStatsUpdate = "stats_update"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
)

// Message is one WebSocket frame payload.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and fans broadcasts out to
// them. It implements suture.Service.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// Serve runs the hub loop until the context ends, then closes every
// connected client and returns the context error.
//
// Selection is priority ordered so behavior stays deterministic when
// several channels are ready: shutdown first, then client lifecycle,
// then broadcasts. Go's select picks randomly among ready cases, which
// would otherwise let a broadcast race a registration.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// String names the service in supervisor logs.
func (h *Hub) String() string {
	return "websocket-hub"
}

// BroadcastNewScrobble pushes a freshly stored listen to all clients.
func (h *Hub) BroadcastNewScrobble(l *models.Listen) {
	h.enqueue(Message{Type: MessageTypeNewScrobble, Data: l})
}

// BroadcastStatsUpdate signals that statistics were recomputed.
func (h *Hub) BroadcastStatsUpdate(stats *models.PeriodStats) {
	h.enqueue(Message{Type: MessageTypeStatsUpdate, Data: stats})
}

// enqueue hands a message to the hub loop, dropping it if the buffer is
// full. Updates are advisory; clients re-fetch on reconnect.
func (h *Hub) enqueue(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		logging.Warn().Str("type", msg.Type).Msg("broadcast buffer full, dropping message")
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnected()
	logging.Info().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		metrics.WebSocketDisconnected()
	}
	total := len(h.clients)
	h.mu.Unlock()

	logging.Info().Int("total_clients", total).Msg("websocket client disconnected")
}

// broadcastToClients fans one message out in client-ID order. Clients
// whose send buffer is full are dropped; a reader that slow is better
// off reconnecting than stalling everyone else.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WebSocketDisconnected()
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	closed := len(h.clients)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
		metrics.WebSocketDisconnected()
	}
	h.mu.Unlock()

	logging.Info().
		Str("component", "websocket-hub").
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
}
