package handler

import (
	"context"  // detached context for the post-commit queue publish
	"errors"   // errors.Is comparisons against repository sentinels
	"log"      // skipped broker events are logged, never surfaced
	"net/http" // HTTP status codes
	"time"     // queue event timestamps and publish timeout

	"github.com/iliyamo/bus-seat-reservation/internal/booking"    // lock-to-booking finalizer
	"github.com/iliyamo/bus-seat-reservation/internal/lock"       // seat lock manager
	"github.com/iliyamo/bus-seat-reservation/internal/model"      // domain models
	"github.com/iliyamo/bus-seat-reservation/internal/queue"      // broker event payloads
	"github.com/iliyamo/bus-seat-reservation/internal/repository" // repository layer
	queue_publisher "github.com/iliyamo/bus-seat-reservation/internal/service"
	"github.com/labstack/echo/v4" // Echo web framework
)

// ReservationHandler groups the components behind the seat map,
// lock/unlock, finalize and booking lookup endpoints.  All methods
// assume SessionAuth ran first where a session identity is needed.
type ReservationHandler struct {
	SeatRepo    *repository.SeatRepo    // seat snapshots
	TripRepo    *repository.TripRepo    // trip existence checks and queue event details
	BookingRepo *repository.BookingRepo // booking lookups
	Locks       *lock.Manager           // acquire/release
	Finalizer   *booking.Finalizer      // lock-to-booking conversion
}

// NewReservationHandler constructs a ReservationHandler.  All
// dependencies must be non-nil.
func NewReservationHandler(seatRepo *repository.SeatRepo, tripRepo *repository.TripRepo, bookingRepo *repository.BookingRepo, locks *lock.Manager, finalizer *booking.Finalizer) *ReservationHandler {
	if seatRepo == nil || tripRepo == nil || bookingRepo == nil || locks == nil || finalizer == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{
		SeatRepo:    seatRepo,
		TripRepo:    tripRepo,
		BookingRepo: bookingRepo,
		Locks:       locks,
		Finalizer:   finalizer,
	}
}

// seatView is one seat in a snapshot response.  Holder identity and
// expiry are internal and never exposed to other sessions.
type seatView struct {
	SeatID     uint64 `json:"seat_id"`
	SeatNumber string `json:"seat_number"`
	Status     string `json:"status"`
	PriceCents uint32 `json:"price_cents"`
}

// GetTripSeats handles GET /v1/trips/:id/seats.  It returns the full
// authoritative seat state for the trip along with availability
// totals.  Sessions call it on open and again after a reconnect to
// resynchronize before consuming incremental events.  The response is
// never cached.
func (h *ReservationHandler) GetTripSeats(c echo.Context) error {
	tripID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	ctx := c.Request().Context()
	if _, err := h.TripRepo.GetByID(ctx, tripID); err != nil {
		if errors.Is(err, repository.ErrTripNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "trip not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	recs, err := h.SeatRepo.Snapshot(ctx, tripID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load seats"})
	}
	seats := make([]seatView, 0, len(recs))
	available := 0
	for _, r := range recs {
		if r.Status == model.SeatAvailable {
			available++
		}
		seats = append(seats, seatView{
			SeatID:     r.SeatID,
			SeatNumber: r.SeatNumber,
			Status:     string(r.Status),
			PriceCents: r.PriceCents,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"seats":           seats,
		"total_seats":     len(seats),
		"available_seats": available,
	})
}

// LockSeat handles POST /v1/trips/:id/seats/:seatId/lock.  On success
// the seat is held by this session until the returned expiry; the
// session must finalize or release within that window.  A seat held
// by anyone (including this session) or already sold yields 409.
func (h *ReservationHandler) LockSeat(c echo.Context) error {
	sessionID, err := getSessionID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tripID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	seatID, err := pathID(c, "seatId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	expiresAt, err := h.Locks.Acquire(c.Request().Context(), tripID, seatID, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSeatUnavailable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "seat unavailable"})
		case errors.Is(err, repository.ErrSeatNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to lock seat"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"ok":         true,
		"expires_at": expiresAt.Format(time.RFC3339),
	})
}

// UnlockSeat handles DELETE /v1/trips/:id/seats/:seatId/lock.
// Releasing a lock this session does not hold is a no-op success, so
// client retries never fail.
func (h *ReservationHandler) UnlockSeat(c echo.Context) error {
	sessionID, err := getSessionID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tripID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	seatID, err := pathID(c, "seatId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	if err := h.Locks.Release(c.Request().Context(), tripID, seatID, sessionID); err != nil {
		if errors.Is(err, repository.ErrSeatNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to release seat"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// FinalizeSeat handles POST /v1/trips/:id/seats/:seatId/finalize.  It
// is invoked by the payment collaborator once payment is confirmed.
// A lease that the sweep already reclaimed (or that lapsed awaiting
// the sweep) yields 410 so the collaborator can refund; the seat is
// never booked in that case.
func (h *ReservationHandler) FinalizeSeat(c echo.Context) error {
	sessionID, err := getSessionID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tripID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid trip id"})
	}
	seatID, err := pathID(c, "seatId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid seat id"})
	}
	var details model.BookingDetails
	if err := c.Bind(&details); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if details.PassengerName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passenger_name is required"})
	}
	ctx := c.Request().Context()
	b, err := h.Finalizer.Finalize(ctx, tripID, seatID, sessionID, details)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrLockExpired):
			return c.JSON(http.StatusGone, echo.Map{"error": "lock expired"})
		case errors.Is(err, repository.ErrNotHeld):
			return c.JSON(http.StatusConflict, echo.Map{"error": "lock not held"})
		case errors.Is(err, repository.ErrSeatUnavailable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "seat unavailable"})
		case errors.Is(err, repository.ErrSeatNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "seat not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to finalize booking"})
	}

	h.publishConfirmed(ctx, b)

	return c.JSON(http.StatusCreated, echo.Map{
		"booking_id":  b.ID,
		"trip_id":     b.TripID,
		"seat_id":     b.SeatID,
		"status":      b.Status,
		"price_cents": b.PriceCents,
	})
}

// publishConfirmed emits the booking.confirmed broker event in the
// background.  Broker outages must not fail a finalize that already
// committed, so every failure on this path is logged and dropped.
func (h *ReservationHandler) publishConfirmed(ctx context.Context, b *model.Booking) {
	trip, err := h.TripRepo.GetByID(ctx, b.TripID)
	if err != nil {
		log.Printf("booking %s: broker event skipped: load trip: %v", b.ID, err)
		return
	}
	seat, err := h.SeatRepo.Get(ctx, b.TripID, b.SeatID)
	if err != nil {
		log.Printf("booking %s: broker event skipped: load seat: %v", b.ID, err)
		return
	}
	ev := queue.BookingConfirmedEvent{
		BookingID:     b.ID,
		TripID:        b.TripID,
		RouteName:     trip.RouteName,
		BusNumber:     trip.BusNumber,
		DepartsAt:     trip.DepartsAt.UTC().Format(time.RFC3339),
		SeatID:        b.SeatID,
		SeatNumber:    seat.SeatNumber,
		PassengerName: b.PassengerName,
		PriceCents:    b.PriceCents,
		ConfirmedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
	}
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue_publisher.PublishBookingConfirmed(pubCtx, ev)
	}()
}

// GetBooking handles GET /v1/bookings/:ref.  Bookings are only
// visible to the session that created them; anything else reads as
// not found.
func (h *ReservationHandler) GetBooking(c echo.Context) error {
	sessionID, err := getSessionID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ref := c.Param("ref")
	if ref == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking reference"})
	}
	b, err := h.BookingRepo.GetByID(c.Request().Context(), ref)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
	}
	if b.SessionID != sessionID {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"item": b})
}
