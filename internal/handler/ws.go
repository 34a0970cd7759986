package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bus-seat-reservation/internal/hub"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// upgrader promotes seat-map HTTP requests to websocket connections.
// Origin checking is delegated to the reverse proxy in front of the
// service.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second // deadline for a single frame write
	pingPeriod = 30 * time.Second // keepalive cadence
)

// EventsHandler serves the real-time seat event channel.  A connection
// subscribes to exactly one trip; sessions watching several trips open
// one connection per trip.
type EventsHandler struct {
	Hub      *hub.Hub             // trip-scoped fan-out
	TripRepo *repository.TripRepo // trip existence checks
}

// NewEventsHandler constructs an EventsHandler.
func NewEventsHandler(h *hub.Hub, tripRepo *repository.TripRepo) *EventsHandler {
	if h == nil || tripRepo == nil {
		panic("nil dependency passed to NewEventsHandler")
	}
	return &EventsHandler{Hub: h, TripRepo: tripRepo}
}

// TripEvents handles GET /v1/trips/:id/events.  After the upgrade the
// client should re-fetch the seat snapshot: events published between
// its last snapshot and the subscription are not replayed.  The
// subscription is torn down the moment the connection drops; any lock
// the session holds deliberately survives until the TTL sweep.
func (h *EventsHandler) TripEvents(c echo.Context) error {
	tripID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	if _, err := h.TripRepo.GetByID(c.Request().Context(), tripID); err != nil {
		if errors.Is(err, repository.ErrTripNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return nil
	}
	sub := h.Hub.Subscribe(tripID)

	// Writer: drains the subscription into the connection.  Exits when
	// the subscriber is dropped (channel closed) or a write fails.
	go func() {
		ping := time.NewTicker(pingPeriod)
		defer ping.Stop()
		defer conn.Close()
		for {
			select {
			case ev, ok := <-sub.C():
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "resubscribe"))
					return
				}
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-ping.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader: the channel is one-way, so inbound frames are discarded;
	// this loop only exists to notice the disconnect.
	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.Hub.Unsubscribe(sub)
	return nil
}
