package main

import (
	"fmt"
	"net/http"
	"sync"
	"time"
)

const (
	sseChannelBuffer = 16
	sseHeartbeat     = 30 * time.Second
)

// client represents a single SSE connection.
type client struct {
	ch      chan string
	session string
}

// Broadcaster fans generation progress out to the SSE clients of a browser session.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[*client]struct{}),
	}
}

// Register adds a client for a session and returns it.
func (b *Broadcaster) Register(session string) *client {
	c := &client{
		ch:      make(chan string, sseChannelBuffer),
		session: session,
	}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()
	return c
}

// Unregister removes a client and closes its channel.
func (b *Broadcaster) Unregister(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.ch)
	}
	b.mu.Unlock()
}

// Broadcast sends a message to all clients of a session.
func (b *Broadcaster) Broadcast(session, data string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for c := range b.clients {
		if c.session == session {
			select {
			case c.ch <- data:
			default:
				// Channel full, skip slow client.
			}
		}
	}
}

// ClientCount returns the number of connected clients for a session.
func (b *Broadcaster) ClientCount(session string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for c := range b.clients {
		if c.session == session {
			n++
		}
	}
	return n
}

// ServeSSE streams a session's events until the request is cancelled.
func (b *Broadcaster) ServeSSE(w http.ResponseWriter, r *http.Request, session string, onConnect func(c *client)) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := b.Register(session)
	defer b.Unregister(c)

	if onConnect != nil {
		onConnect(c)
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-c.ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
