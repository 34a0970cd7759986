package repository // repository for trip persistence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// TripRepo encapsulates database operations for trips.  Trip rows are
// created once, together with their seat inventory, and are otherwise
// read-only within this service.
type TripRepo struct {
	db *sql.DB
}

// NewTripRepo constructs a TripRepo given a DB handle.
func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning trips and trip_seats.
func (r *TripRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a trip within the provided transaction and fills
// in the generated ID.  Timestamps default in the DB.  The caller is
// responsible for committing or rolling back.
func (r *TripRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Trip) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO trips (route_name, bus_number, departs_at, arrives_at, base_price_cents, status)
         VALUES (?, ?, ?, ?, ?, ?)`,
		t.RouteName, t.BusNumber, t.DepartsAt.UTC(), t.ArrivesAt.UTC(), t.BasePriceCents, t.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// GetByID fetches a single trip.  It returns ErrTripNotFound when the
// trip does not exist.
func (r *TripRepo) GetByID(ctx context.Context, id uint64) (*model.Trip, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, route_name, bus_number, departs_at, arrives_at, base_price_cents, status, created_at, updated_at
           FROM trips WHERE id = ?`, id)
	var t model.Trip
	err := row.Scan(&t.ID, &t.RouteName, &t.BusNumber, &t.DepartsAt, &t.ArrivesAt,
		&t.BasePriceCents, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTripNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns all trips ordered by departure time.  Guests use this
// to browse before opening a seat map; the result is safe to cache
// because seat availability is not included.
func (r *TripRepo) List(ctx context.Context) ([]model.Trip, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, route_name, bus_number, departs_at, arrives_at, base_price_cents, status, created_at, updated_at
           FROM trips ORDER BY departs_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	trips := make([]model.Trip, 0)
	for rows.Next() {
		var t model.Trip
		if err := rows.Scan(&t.ID, &t.RouteName, &t.BusNumber, &t.DepartsAt, &t.ArrivesAt,
			&t.BasePriceCents, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}
