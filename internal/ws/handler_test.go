package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/HerbHall/runstats/internal/event"
	"github.com/HerbHall/runstats/internal/series"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

func testServer(t *testing.T) (*series.Manager, *Handler, string) {
	t.Helper()
	bus := event.NewBus(zap.NewNop())
	m := series.NewManager(series.DefaultConfig(), zap.NewNop(), series.WithPublisher(bus))
	h := NewHandler(m, bus, Config{BroadcastInterval: 20 * time.Millisecond}, zap.NewNop())
	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = h.Stop(context.Background()) })

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return m, h, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/series"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// readUntil reads messages until one matches typ or the deadline passes.
func readUntil(t *testing.T, conn *websocket.Conn, typ MessageType) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		var msg map[string]any
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if msg["type"] == string(typ) {
			return msg
		}
	}
}

func TestHandler_PushOverSocket(t *testing.T) {
	m, h, url := testServer(t)
	conn := dial(t, url)

	waitForClients(t, h, 1)
	ctx := context.Background()
	if err := wsjson.Write(ctx, conn, Request{Type: RequestPush, Series: "latency", Values: []float64{1, 2, 3}}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	msg := readUntil(t, conn, MessageSeriesUpdated)
	if msg["series"] != "latency" {
		t.Errorf("series = %v, want latency", msg["series"])
	}

	sum, err := m.Summary("latency")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Samples != 3 {
		t.Errorf("Samples = %d, want 3", sum.Samples)
	}
}

func TestHandler_PushErrorReply(t *testing.T) {
	m, h, url := testServer(t)
	if _, err := m.Create(context.Background(), series.Spec{Name: "fit", Kind: series.KindRegression}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	conn := dial(t, url)
	waitForClients(t, h, 1)

	_ = wsjson.Write(context.Background(), conn, Request{Type: RequestPush, Series: "fit", Values: []float64{1}})
	msg := readUntil(t, conn, MessageError)
	data, _ := msg["data"].(map[string]any)
	if errText, _ := data["error"].(string); !strings.Contains(errText, "wrong number of values") {
		t.Errorf("error = %q, want arity error", errText)
	}
}

func TestHandler_SeriesFilterAndDelete(t *testing.T) {
	m, h, url := testServer(t)
	conn := dial(t, url+"?series=keep")
	waitForClients(t, h, 1)
	ctx := context.Background()

	_, _ = m.Push(ctx, "other", []float64{1})
	_, _ = m.Push(ctx, "keep", []float64{1})

	msg := readUntil(t, conn, MessageSeriesUpdated)
	if msg["series"] != "keep" {
		t.Errorf("first update series = %v, want keep (filtered)", msg["series"])
	}

	_ = m.Delete(ctx, "keep")
	msg = readUntil(t, conn, MessageSeriesDeleted)
	if msg["series"] != "keep" {
		t.Errorf("deleted series = %v, want keep", msg["series"])
	}
}

func waitForClients(t *testing.T, h *Handler, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Hub().ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", h.Hub().ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
