package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/bus-seat-reservation/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/bus-seat-reservation/internal/middleware" // import middleware for session authentication
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers unauthenticated browse endpoints.  Trip
// listings change rarely, so both routes run behind the Redis response
// cache when one is configured.  Seat availability is intentionally
// absent from these responses; the live seat map has its own
// uncacheable endpoint.
func RegisterPublic(e *echo.Echo, t *handler.TripHandler, cacheMW echo.MiddlewareFunc) {
	// Expose the list of all trips for browsing.
	e.GET("/v1/trips", t.ListTrips, cacheMW)
	// Trip details by trip id.
	e.GET("/v1/trips/:id", t.GetTrip, cacheMW)
}

// RegisterReservation registers the seat map, lock, finalize and
// booking routes.  The snapshot and the event stream are public so
// guests can watch availability before signing in; everything that
// claims or converts a seat requires a session identity, which the
// SessionAuth middleware extracts from the bearer token's subject.
// The rate limiter guards the mutating endpoints against lock
// hammering.
func RegisterReservation(e *echo.Echo, r *handler.ReservationHandler, ev *handler.EventsHandler, t *handler.TripHandler, jwtSecret string, rateMW echo.MiddlewareFunc) {
	// Live seat state for a trip; fetched on open and on reconnect.
	e.GET("/v1/trips/:id/seats", r.GetTripSeats)
	// Real-time seat transition events over websocket.
	e.GET("/v1/trips/:id/events", ev.TripEvents)

	// Create a group for routes that require a session identity.  All
	// handlers registered on this group execute SessionAuth before
	// being invoked.
	auth := e.Group("/v1")
	auth.Use(middleware.SessionAuth(jwtSecret))
	auth.Use(rateMW)
	// Materialize a trip and its seat inventory (operational endpoint).
	auth.POST("/trips", t.CreateTrip)
	// Claim a seat for this session until the lock TTL runs out.
	auth.POST("/trips/:id/seats/:seatId/lock", r.LockSeat)
	// Release a claimed seat; idempotent for retries.
	auth.DELETE("/trips/:id/seats/:seatId/lock", r.UnlockSeat)
	// Convert a held lock into a booking on confirmed payment.
	auth.POST("/trips/:id/seats/:seatId/finalize", r.FinalizeSeat)
	// Fetch a booking created by this session.
	auth.GET("/bookings/:ref", r.GetBooking)
}
