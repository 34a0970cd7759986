// Package booking converts a held lock into a permanent booking.  The
// seat flip to BOOKED and the booking insert run in one database
// transaction: if either fails, the seat stays LOCKED and the lease
// keeps running.
package booking

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bus-seat-reservation/internal/hub"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// Publisher is where the terminal SEAT_SOLD transition is announced.
type Publisher interface {
	Publish(tripID uint64, ev hub.Event)
}

// Releaser abandons a held lock; *lock.Manager satisfies it.
type Releaser interface {
	Release(ctx context.Context, tripID, seatID uint64, sessionID string) error
}

// Finalizer performs the LOCKED -> BOOKED transition on payment
// confirmation.  It is the only writer of booking rows.
type Finalizer struct {
	db       *sql.DB
	seats    *repository.SeatRepo
	bookings *repository.BookingRepo
	locks    Releaser
	pub      Publisher
}

// NewFinalizer constructs a Finalizer.  All dependencies must be
// non-nil.
func NewFinalizer(db *sql.DB, seats *repository.SeatRepo, bookings *repository.BookingRepo, locks Releaser, pub Publisher) *Finalizer {
	if db == nil || seats == nil || bookings == nil || locks == nil || pub == nil {
		panic("nil dependency passed to NewFinalizer")
	}
	return &Finalizer{db: db, seats: seats, bookings: bookings, locks: locks, pub: pub}
}

// Finalize books the seat the session holds.  The seat row is read
// under FOR UPDATE, the lease is validated, and the transition plus
// the booking insert commit atomically.  Error mapping:
//
//   - seat AVAILABLE (the sweep already reclaimed it) or the lease
//     lapsed but is not yet swept: ErrLockExpired — the payment
//     collaborator must refund or retry, the seat is never booked.
//   - seat LOCKED by a different session: ErrNotHeld.
//   - seat already BOOKED: ErrSeatUnavailable.
//
// On success the booking is returned and SEAT_SOLD is broadcast.
func (f *Finalizer) Finalize(ctx context.Context, tripID, seatID uint64, sessionID string, details model.BookingDetails) (*model.Booking, error) {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rec, err := f.seats.GetForUpdateTx(ctx, tx, tripID, seatID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	switch {
	case rec.Status == model.SeatAvailable:
		return nil, repository.ErrLockExpired
	case rec.Status == model.SeatBooked:
		return nil, repository.ErrSeatUnavailable
	case !rec.HeldBy(sessionID):
		return nil, repository.ErrNotHeld
	case rec.LockLapsed(now):
		return nil, repository.ErrLockExpired
	}

	if _, err := f.seats.TryTransitionTx(ctx, tx, tripID, seatID,
		model.SeatLocked, model.SeatBooked, rec.Version, "", nil); err != nil {
		return nil, err
	}

	b := &model.Booking{
		ID:             uuid.NewString(),
		TripID:         tripID,
		SeatID:         seatID,
		SessionID:      sessionID,
		PassengerName:  details.PassengerName,
		PassengerPhone: details.PassengerPhone,
		Status:         "CONFIRMED",
		PriceCents:     rec.PriceCents,
		CreatedAt:      now,
	}
	if err := f.bookings.CreateTx(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	f.pub.Publish(tripID, hub.NewEvent(hub.SeatSold, tripID, seatID))
	return b, nil
}

// AbortHold is the explicit cancellation path for a declined or
// expired payment.  It is equivalent to a release and shares its
// idempotency: aborting a hold the session no longer has is a no-op.
func (f *Finalizer) AbortHold(ctx context.Context, tripID, seatID uint64, sessionID string) error {
	return f.locks.Release(ctx, tripID, seatID, sessionID)
}
