package repository // repository for booking persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// BookingRepo encapsulates database operations for bookings.  Rows
// are only ever inserted by the finalizer, inside the transaction
// that flips the seat to BOOKED.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo constructs a BookingRepo given a DB handle.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// CreateTx inserts a booking within the provided transaction.  The
// caller supplies the UUID and is responsible for committing or
// rolling back; CreatedAt defaults in the DB.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (id, trip_id, seat_id, session_id, passenger_name, passenger_phone, status, price_cents)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.TripID, b.SeatID, b.SessionID, b.PassengerName, b.PassengerPhone, b.Status, b.PriceCents)
	return err
}

// GetByID fetches a booking by its reference.  It returns
// ErrBookingNotFound when no row matches.  Ownership checks are left
// to the handler, which compares the stored session against the
// caller's identity.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, trip_id, seat_id, session_id, passenger_name, passenger_phone, status, price_cents, created_at
           FROM bookings WHERE id = ?`, id)
	var b model.Booking
	var phone sql.NullString
	err := row.Scan(&b.ID, &b.TripID, &b.SeatID, &b.SessionID, &b.PassengerName, &phone,
		&b.Status, &b.PriceCents, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		b.PassengerPhone = &phone.String
	}
	return &b, nil
}
