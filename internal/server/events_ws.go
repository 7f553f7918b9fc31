package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/vekfolio/riskengine/internal/events"
)

// EventsHandler streams bus events to websocket clients.
type EventsHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(bus *events.Bus, log zerolog.Logger) *EventsHandler {
	return &EventsHandler{
		bus: bus,
		log: log.With().Str("handlers", "events").Logger(),
	}
}

// writeTimeout bounds a single event write to a slow client.
const writeTimeout = 5 * time.Second

// HandleWebSocket upgrades the connection and forwards every bus event as a
// JSON message until the client disconnects.
func (h *EventsHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is enforced at the router level
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()

	h.log.Debug().Int("subscribers", h.bus.SubscriberCount()).Msg("WebSocket client connected")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := h.writeEvent(ctx, conn, event); err != nil {
				h.log.Debug().Err(err).Msg("WebSocket client disconnected")
				return
			}
		}
	}
}

func (h *EventsHandler) writeEvent(ctx context.Context, conn *websocket.Conn, event events.Event) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, conn, event)
}
