package handler

import (
	"net/http" // HTTP status codes
	"time"     // parsing departure timestamps

	"github.com/iliyamo/bus-seat-reservation/internal/model"      // domain models
	"github.com/iliyamo/bus-seat-reservation/internal/repository" // repository layer
	"github.com/labstack/echo/v4"                                 // Echo web framework
)

// TripHandler bundles the repositories needed to materialize trips
// and expose them for browsing.  Trip creation is an operational
// endpoint: it registers a departure and bulk-creates its seat
// inventory in one transaction, after which the seats live for the
// lifetime of the trip.
type TripHandler struct {
	TripRepo *repository.TripRepo // trip persistence
	SeatRepo *repository.SeatRepo // seat inventory persistence
}

// NewTripHandler constructs a TripHandler and panics if any
// dependency is nil.
func NewTripHandler(tripRepo *repository.TripRepo, seatRepo *repository.SeatRepo) *TripHandler {
	if tripRepo == nil || seatRepo == nil {
		panic("nil repository passed to NewTripHandler")
	}
	return &TripHandler{TripRepo: tripRepo, SeatRepo: seatRepo}
}

// tripSeatSpec is one seat of the layout in a trip creation request.
type tripSeatSpec struct {
	SeatNumber string  `json:"seat_number"`
	PriceCents *uint32 `json:"price_cents,omitempty"` // defaults to the trip base price
}

// CreateTrip handles POST /v1/trips.  The request body carries the
// route, the bus, the schedule and the full seat layout.  Seats start
// AVAILABLE at version 0.  Returns 201 with the trip ID and seat
// count.
func (h *TripHandler) CreateTrip(c echo.Context) error {
	var body struct {
		RouteName      string         `json:"route_name"`
		BusNumber      string         `json:"bus_number"`
		DepartsAt      time.Time      `json:"departs_at"`
		ArrivesAt      time.Time      `json:"arrives_at"`
		BasePriceCents uint32         `json:"base_price_cents"`
		Seats          []tripSeatSpec `json:"seats"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.RouteName == "" || body.BusNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "route_name and bus_number are required"})
	}
	if len(body.Seats) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "seats is required"})
	}
	if !body.ArrivesAt.After(body.DepartsAt) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "arrives_at must be after departs_at"})
	}
	layout := make([]repository.SeatSpec, 0, len(body.Seats))
	for _, s := range body.Seats {
		if s.SeatNumber == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat_number is required for every seat"})
		}
		price := body.BasePriceCents
		if s.PriceCents != nil {
			price = *s.PriceCents
		}
		layout = append(layout, repository.SeatSpec{SeatNumber: s.SeatNumber, PriceCents: price})
	}

	ctx := c.Request().Context()
	tx, err := h.TripRepo.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	trip := &model.Trip{
		RouteName:      body.RouteName,
		BusNumber:      body.BusNumber,
		DepartsAt:      body.DepartsAt.UTC(),
		ArrivesAt:      body.ArrivesAt.UTC(),
		BasePriceCents: body.BasePriceCents,
		Status:         "SCHEDULED",
	}
	if err := h.TripRepo.CreateTx(ctx, tx, trip); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create trip"})
	}
	if err := h.SeatRepo.CreateLayoutTx(ctx, tx, trip.ID, layout); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create seat layout"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusCreated, echo.Map{
		"trip_id": trip.ID,
		"seats":   len(layout),
	})
}

// publicTrip is a trip as exposed to unauthenticated browsing.
type publicTrip struct {
	ID             uint64    `json:"id"`
	RouteName      string    `json:"route_name"`
	BusNumber      string    `json:"bus_number"`
	DepartsAt      time.Time `json:"departs_at"`
	ArrivesAt      time.Time `json:"arrives_at"`
	BasePriceCents uint32    `json:"base_price_cents"`
	Status         string    `json:"status"`
}

// ListTrips handles GET /v1/trips.  Seat availability is deliberately
// not included so the response stays cacheable; clients fetch the
// live seat map separately.
func (h *TripHandler) ListTrips(c echo.Context) error {
	trips, err := h.TripRepo.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load trips"})
	}
	items := make([]publicTrip, 0, len(trips))
	for _, t := range trips {
		items = append(items, publicTrip{
			ID: t.ID, RouteName: t.RouteName, BusNumber: t.BusNumber,
			DepartsAt: t.DepartsAt, ArrivesAt: t.ArrivesAt,
			BasePriceCents: t.BasePriceCents, Status: t.Status,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetTrip handles GET /v1/trips/:id.
func (h *TripHandler) GetTrip(c echo.Context) error {
	tripID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	t, err := h.TripRepo.GetByID(c.Request().Context(), tripID)
	if err != nil {
		if err == repository.ErrTripNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": publicTrip{
		ID: t.ID, RouteName: t.RouteName, BusNumber: t.BusNumber,
		DepartsAt: t.DepartsAt, ArrivesAt: t.ArrivesAt,
		BasePriceCents: t.BasePriceCents, Status: t.Status,
	}})
}
