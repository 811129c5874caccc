// Package ws streams series summaries to websocket clients and accepts
// samples pushed over the same connection.
package ws

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/HerbHall/runstats/internal/series"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// Client represents a connected WebSocket client.
type Client struct {
	conn    *websocket.Conn
	subject string
	send    chan Message
	logger  *zap.Logger

	mu     sync.RWMutex
	filter map[string]struct{} // empty means all series
}

// wants reports whether the client subscribed to name.
func (c *Client) wants(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.filter) == 0 {
		return true
	}
	_, ok := c.filter[name]
	return ok
}

// setFilter replaces the client's series filter.
func (c *Client) setFilter(names []string) {
	f := make(map[string]struct{}, len(names))
	for _, n := range names {
		f[n] = struct{}{}
	}
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
}

// Hub manages active WebSocket connections and broadcasts messages.
// Series updates are coalesced: only the latest summary per series is
// sent on each flush. Summaries and deletions carry the manager's event
// sequence number; anything older than what the hub already saw for a
// series is discarded.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *zap.Logger

	// sendMu serializes flushes with deletion notices so an update taken
	// before a delete is never delivered after it.
	sendMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]series.Summary
	marks     map[string]mark
	gen       uint64 // flush generation
}

// mark is the newest event sequence seen for a series.
type mark struct {
	seq     uint64
	deleted bool
	gen     uint64 // flush generation the deletion was recorded in
}

// tombstoneGens is how many flushes a deletion mark is kept for.
const tombstoneGens = 2

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		pending: make(map[string]series.Summary),
		marks:   make(map[string]mark),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", zap.String("subject", c.subject))
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	h.logger.Debug("websocket client disconnected", zap.String("subject", c.subject))
}

// Broadcast sends a message to every client subscribed to msg.Series.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if msg.Series != "" && !c.wants(msg.Series) {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("client send buffer full, dropping message",
				zap.String("subject", c.subject))
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Queue records sum for the next flush unless a newer summary or a later
// deletion of the same series was already seen. It reports whether sum
// was queued.
func (h *Hub) Queue(sum series.Summary) bool {
	h.pendingMu.Lock()
	defer h.pendingMu.Unlock()
	if m, ok := h.marks[sum.Name]; ok && sum.Seq <= m.seq {
		return false
	}
	h.marks[sum.Name] = mark{seq: sum.Seq}
	h.pending[sum.Name] = sum
	return true
}

// Remove discards any queued update of a deleted series and notifies
// subscribed clients. A deletion older than the last event seen for the
// name (the series was recreated since) is ignored. It reports whether
// the notice was sent.
func (h *Hub) Remove(name string, seq uint64, ts time.Time) bool {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	h.pendingMu.Lock()
	if m, ok := h.marks[name]; ok && seq <= m.seq {
		h.pendingMu.Unlock()
		return false
	}
	h.marks[name] = mark{seq: seq, deleted: true, gen: h.gen}
	delete(h.pending, name)
	h.pendingMu.Unlock()

	h.Broadcast(Message{
		Type:      MessageSeriesDeleted,
		Series:    name,
		Timestamp: ts,
	})
	return true
}

// Flush broadcasts every queued summary in name order and clears the
// queue. It returns the number of series flushed.
func (h *Hub) Flush(now time.Time) int {
	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	h.pendingMu.Lock()
	batch := h.pending
	h.pending = make(map[string]series.Summary, len(batch))
	h.gen++
	for name, m := range h.marks {
		if m.deleted && h.gen-m.gen > tombstoneGens {
			delete(h.marks, name)
		}
	}
	h.pendingMu.Unlock()

	names := make([]string, 0, len(batch))
	for name := range batch {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Broadcast(Message{
			Type:      MessageSeriesUpdated,
			Series:    name,
			Timestamp: now,
			Data:      batch[name],
		})
	}
	return len(names)
}

// Run flushes queued updates every interval until ctx is canceled.
func (h *Hub) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.Flush(now.UTC())
		}
	}
}

// writePump sends messages from the client's send channel to the WebSocket.
func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				// Channel closed by hub (unregister).
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := wsjson.Write(writeCtx, c.conn, msg); err != nil {
				cancel()
				c.logger.Debug("websocket write error", zap.Error(err))
				return
			}
			cancel()
		}
	}
}
