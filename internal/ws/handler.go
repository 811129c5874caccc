package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/HerbHall/runstats/internal/auth"
	"github.com/HerbHall/runstats/internal/event"
	"github.com/HerbHall/runstats/internal/series"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// readLimit caps the size of one client message.
const readLimit = 1 << 20

// Subscriber is the subset of the event bus the handler listens on.
type Subscriber interface {
	Subscribe(topic string, handler event.Handler) (unsubscribe func())
}

// Pusher ingests samples into a series.
type Pusher interface {
	Push(ctx context.Context, name string, samples ...[]float64) (series.Summary, error)
}

// Handler provides the /ws/series endpoint.
type Handler struct {
	hub    *Hub
	pusher Pusher
	cfg    Config
	logger *zap.Logger

	unsubscribe []func()
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// Compile-time check that Handler implements the server interface.
var _ interface {
	RegisterRoutes(mux *http.ServeMux)
} = (*Handler)(nil)

// NewHandler creates a WebSocket handler and subscribes to series events.
func NewHandler(pusher Pusher, bus Subscriber, cfg Config, logger *zap.Logger) *Handler {
	if cfg.BroadcastInterval <= 0 {
		cfg.BroadcastInterval = DefaultConfig().BroadcastInterval
	}
	h := &Handler{
		hub:    NewHub(logger),
		pusher: pusher,
		cfg:    cfg,
		logger: logger,
	}
	h.subscribeToEvents(bus)
	return h
}

// Hub returns the handler's client hub.
func (h *Handler) Hub() *Hub {
	return h.hub
}

// RegisterRoutes registers WebSocket routes on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/series", h.handleSeriesStream)
}

// Start launches the coalescing broadcast loop.
func (h *Handler) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.hub.Run(ctx, h.cfg.BroadcastInterval)
	}()
	return nil
}

// Stop halts the broadcast loop and detaches from the event bus.
func (h *Handler) Stop(_ context.Context) error {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
	for _, unsub := range h.unsubscribe {
		unsub()
	}
	h.unsubscribe = nil
	return nil
}

// handleSeriesStream upgrades the connection to WebSocket, streams series
// updates, and ingests pushed samples. Authentication happens in the auth
// middleware, which accepts a ?token= query parameter on /ws/ paths.
func (h *Handler) handleSeriesStream(w http.ResponseWriter, r *http.Request) {
	// The hijacked connection inherits the server's read and write timeouts.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origin is not checked; access is controlled by the bearer token.
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(readLimit)

	subject := "anonymous"
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		subject = claims.Subject
	}
	client := &Client{
		conn:    conn,
		subject: subject,
		send:    make(chan Message, 256),
		logger:  h.logger,
	}
	if names := r.URL.Query()["series"]; len(names) > 0 {
		client.setFilter(names)
	}

	h.hub.Register(client)

	// Run read and write pumps. When either exits, clean up.
	ctx, cancel := context.WithCancel(r.Context())
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		cancel()
		close(done)
	}()

	// readPump blocks until client disconnects.
	h.readPump(ctx, client)

	// Client disconnected -- stop write pump and unregister.
	cancel()
	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// readPump handles client requests until the connection closes.
func (h *Handler) readPump(ctx context.Context, c *Client) {
	for {
		var req Request
		if err := wsjson.Read(ctx, c.conn, &req); err != nil {
			var ce websocket.CloseError
			if !errors.As(err, &ce) && ctx.Err() == nil {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		h.handleRequest(ctx, c, req)
	}
}

func (h *Handler) handleRequest(ctx context.Context, c *Client, req Request) {
	switch req.Type {
	case RequestPush:
		if claims := auth.ClaimsFromContext(ctx); claims != nil && !claims.CanWrite() {
			h.reply(c, req.Series, "token scope does not allow writes")
			return
		}
		samples := req.push().All()
		if req.Series == "" || len(samples) == 0 {
			h.reply(c, req.Series, "push requires series and values or samples")
			return
		}
		if _, err := h.pusher.Push(ctx, req.Series, samples...); err != nil {
			h.reply(c, req.Series, err.Error())
		}
	case RequestSubscribe:
		c.setFilter(req.Filter)
	default:
		h.reply(c, req.Series, "unknown request type "+req.Type)
	}
}

// reply queues an error message for a single client.
func (h *Handler) reply(c *Client, name, msg string) {
	select {
	case c.send <- Message{
		Type:      MessageError,
		Series:    name,
		Timestamp: time.Now().UTC(),
		Data:      ErrorData{Error: msg},
	}:
	default:
	}
}

// subscribeToEvents forwards series events to connected clients. Updates
// are coalesced into the next flush; deletions are sent immediately.
func (h *Handler) subscribeToEvents(bus Subscriber) {
	if bus == nil {
		return
	}

	queue := func(_ context.Context, e event.Event) {
		if sum, ok := e.Payload.(series.Summary); ok {
			h.hub.Queue(sum)
		}
	}
	h.unsubscribe = append(h.unsubscribe,
		bus.Subscribe(event.TopicSeriesCreated, queue),
		bus.Subscribe(event.TopicSeriesUpdated, queue),
		bus.Subscribe(event.TopicSeriesDeleted, func(_ context.Context, e event.Event) {
			if del, ok := e.Payload.(series.Deletion); ok {
				h.hub.Remove(del.Name, del.Seq, e.Timestamp)
			}
		}),
	)

	h.logger.Info("subscribed to series events for WebSocket broadcasting")
}
