package ws

import (
	"time"

	"github.com/HerbHall/runstats/internal/series"
)

// MessageType discriminates WebSocket messages.
type MessageType string

// Server-to-client message types.
const (
	MessageSeriesUpdated MessageType = "series.updated"
	MessageSeriesDeleted MessageType = "series.deleted"
	MessageError         MessageType = "error"
)

// Client-to-server request types.
const (
	RequestPush      = "push"
	RequestSubscribe = "subscribe"
)

// Message is the envelope for all server-to-client messages.
type Message struct {
	Type      MessageType `json:"type"`
	Series    string      `json:"series,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data,omitempty"`
}

// ErrorData is the payload for error messages.
type ErrorData struct {
	Error string `json:"error"`
}

// Request is a client-to-server message. A push carries samples for one
// series in the same shape as the HTTP push body. A subscribe replaces the
// client's series filter; an empty filter receives every series.
type Request struct {
	Type    string      `json:"type"`
	Series  string      `json:"series,omitempty"`
	Values  []float64   `json:"values,omitempty"`
	Samples [][]float64 `json:"samples,omitempty"`
	Filter  []string    `json:"filter,omitempty"`
}

func (r Request) push() series.PushRequest {
	return series.PushRequest{Values: r.Values, Samples: r.Samples}
}
