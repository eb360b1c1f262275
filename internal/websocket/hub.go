// Package websocket implements a Hub for broadcasting real-time leaderboard updates.
// Every score, bet or press entered for a round triggers a full recompute, and the
// new leaderboard is pushed to everyone watching that round. Players following a live
// round see money move the moment a score is entered, without polling the API.
//
// The Hub does not care how bytes reach the client. The leaderboard stream handler
// drains a Client's Send channel into a server-sent events response.
package websocket

import (
	"context"
	"sync" // sync provides synchronization primitives like mutexes for safe concurrent access

	"github.com/trentd187/golf-wagers/internal/metrics"
)

// sendBuffer is how many updates a client may fall behind before it is dropped.
const sendBuffer = 16

// Client represents a single connected client.
// Each player watching a live round has one Client instance on the server.
type Client struct {
	RoundID string      // Which round this client is watching: used to route messages to the right audience
	Send    chan []byte // Buffered channel of outgoing messages; closed when the Hub drops the client
}

// NewClient creates a client for one round with a buffered Send channel.
func NewClient(roundID string) *Client {
	return &Client{RoundID: roundID, Send: make(chan []byte, sendBuffer)}
}

// Message is a unit of data to broadcast to all clients watching a specific round.
// By attaching the RoundID, the Hub knows which group of clients should receive it.
type Message struct {
	RoundID string // The round this message belongs to
	Data    []byte // The raw bytes to send (a JSON-encoded leaderboard)
}

// Hub manages all active connections, grouped by round ID.
// It runs in its own goroutine and processes registration, unregistration, and
// broadcast events through channels. This keeps all writes to the map on a single
// goroutine, which avoids data races (concurrent map reads/writes cause panics in Go).
type Hub struct {
	// clients is a nested map: roundID -> set of Client pointers -> bool (true = connected).
	// Using a map[*Client]bool as a "set" is a common Go idiom because Go has no built-in set type.
	clients map[string]map[*Client]bool

	broadcast  chan *Message // Incoming messages to be sent to all clients watching a given round
	register   chan *Client  // Signals that a new client has connected and should be tracked
	unregister chan *Client  // Signals that a client has disconnected and should be removed
	done       chan struct{} // Closed when Run returns, so senders never block on a stopped Hub

	// mu (mutex) protects the clients map when Subscribers reads it from another
	// goroutine while the main loop modifies it.
	mu sync.RWMutex
}

// NewHub creates and initializes a Hub with empty channels and maps.
// The broadcast channel has a buffer of 256 so writers don't block immediately
// if the Hub goroutine is briefly busy. register and unregister are unbuffered
// because those operations need to complete synchronously.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run is the Hub's main event loop. It must be called in a goroutine ("go hub.Run(ctx)").
// It processes one event at a time until ctx is cancelled, then closes every client's
// Send channel so the streams attached to them finish.
// select is like a switch but for channels: it waits until one of the cases has data ready.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {

		// The server is shutting down: drop everyone so their streams end cleanly
		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.clients {
				for client := range clients {
					metrics.StreamSubscribers.Dec()
					close(client.Send)
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return

		// A new client has connected: add it to the clients map under its RoundID
		case client := <-h.register:
			h.mu.Lock()
			// If this is the first client for this round, initialize the inner map
			if h.clients[client.RoundID] == nil {
				h.clients[client.RoundID] = make(map[*Client]bool)
			}
			h.clients[client.RoundID][client] = true
			h.mu.Unlock()
			metrics.StreamSubscribers.Inc()

		// A client has disconnected: remove it from the map and close its Send channel
		case client := <-h.unregister:
			h.remove(client)

		// A message arrived to broadcast to all clients watching a specific round
		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients[msg.RoundID]))
			for client := range h.clients[msg.RoundID] {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			for _, client := range clients {
				select {
				// Try to send the message to the client's outgoing channel
				case client.Send <- msg.Data:
				// If the channel buffer is full, the client is too slow: drop it.
				// Removing it right here keeps the loop from sending to its own
				// unregister channel, which nothing else would ever read.
				default:
					h.remove(client)
				}
			}
		}
	}
}

// remove drops a client and closes its Send channel. It is only called from Run.
func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[client.RoundID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client) // Remove this client from the round's set
	metrics.StreamSubscribers.Dec()
	close(client.Send) // Closing the channel tells the stream writer to stop
	// Clean up the round's map entry if no clients are left, to avoid leaking memory
	if len(clients) == 0 {
		delete(h.clients, client.RoundID)
	}
}

// BroadcastToRound sends data to all clients currently watching the given round.
// Handlers call this after every recompute.
func (h *Hub) BroadcastToRound(roundID string, data []byte) {
	select {
	case h.broadcast <- &Message{RoundID: roundID, Data: data}:
	case <-h.done:
	}
}

// Register adds a client to the Hub so it starts receiving broadcasts for its round.
// It reports false when the Hub has already stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client from the Hub when its connection closes.
// Unregistering a client the Hub already dropped is a no-op.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Subscribers returns how many clients are watching a round.
func (h *Hub) Subscribers(roundID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[roundID])
}
