package repository // repository for trip seat persistence

import (
	"context"      // context for managing deadlines
	"database/sql" // sql provides DB interfaces
	"errors"       // sentinel error comparisons
	"time"         // lock expiry timestamps

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// seatColumns lists every column of trip_seats in scan order.  All
// read paths share it so scanSeat stays in sync with the queries.
const seatColumns = `trip_id, seat_id, seat_number, status, holder_session, lock_expires_at, price_cents, version, created_at, updated_at`

// SeatRepo is the single source of truth for seat status.  Every
// mutation goes through TryTransition, a compare-and-set on the
// (status, version) pair, so concurrent writers can never clobber
// each other: the loser of a race gets ErrConflict and must re-read.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo given a DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// that span the seat table and the bookings table.
func (r *SeatRepo) DB() *sql.DB { return r.db }

// SeatSpec describes one seat of a bus layout at materialization
// time.  Seat IDs are assigned by position in the layout slice.
type SeatSpec struct {
	SeatNumber string // display label, e.g. "12A"
	PriceCents uint32 // price for this seat
}

// CreateLayoutTx bulk-inserts the seat inventory for a trip.  Seats
// are numbered 1..n in layout order, start AVAILABLE and at version
// 0.  The caller owns the transaction.  An empty layout is a no-op.
func (r *SeatRepo) CreateLayoutTx(ctx context.Context, tx *sql.Tx, tripID uint64, layout []SeatSpec) error {
	if len(layout) == 0 {
		return nil
	}
	query := `INSERT INTO trip_seats (trip_id, seat_id, seat_number, status, price_cents, version) VALUES `
	args := make([]interface{}, 0, len(layout)*6)
	for i, s := range layout {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, tripID, uint64(i+1), s.SeatNumber, string(model.SeatAvailable), s.PriceCents, 0)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// Snapshot returns the full current state of a trip's seats ordered
// by seat ID.  It has no side effects and is used on session open and
// on reconnect.  A trip with no seats yields an empty slice.
func (r *SeatRepo) Snapshot(ctx context.Context, tripID uint64) ([]model.SeatRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM trip_seats WHERE trip_id = ? ORDER BY seat_id`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seats := make([]model.SeatRecord, 0)
	for rows.Next() {
		rec, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, *rec)
	}
	return seats, rows.Err()
}

// Get fetches a single seat record.  It returns ErrSeatNotFound when
// the (trip, seat) pair does not exist.
func (r *SeatRepo) Get(ctx context.Context, tripID, seatID uint64) (*model.SeatRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+seatColumns+` FROM trip_seats WHERE trip_id = ? AND seat_id = ?`, tripID, seatID)
	rec, err := scanSeat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeatNotFound
	}
	return rec, err
}

// GetForUpdateTx fetches a seat record inside a transaction with a
// row lock (SELECT ... FOR UPDATE).  The finalizer uses it so the
// lease check and the transition commit against the same row state.
func (r *SeatRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, tripID, seatID uint64) (*model.SeatRecord, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+seatColumns+` FROM trip_seats WHERE trip_id = ? AND seat_id = ? FOR UPDATE`, tripID, seatID)
	rec, err := scanSeat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeatNotFound
	}
	return rec, err
}

// TryTransition atomically moves a seat from one status to another.
// The UPDATE only matches when both the current status and version
// equal what the caller observed, so exactly one of any set of
// concurrent writers can succeed; the rest get ErrConflict.  On
// success the stored version is expectedVersion+1, which is returned.
//
// holder and expiresAt populate holder_session and lock_expires_at
// for transitions into LOCKED; pass "" and nil for transitions into
// AVAILABLE or BOOKED so both columns are cleared.
func (r *SeatRepo) TryTransition(ctx context.Context, tripID, seatID uint64, from, to model.SeatStatus, expectedVersion uint64, holder string, expiresAt *time.Time) (uint64, error) {
	return tryTransition(ctx, r.db, tripID, seatID, from, to, expectedVersion, holder, expiresAt)
}

// TryTransitionTx is TryTransition running inside a caller-owned
// transaction.  The finalizer uses it so the seat flip and the
// booking insert commit or roll back together.
func (r *SeatRepo) TryTransitionTx(ctx context.Context, tx *sql.Tx, tripID, seatID uint64, from, to model.SeatStatus, expectedVersion uint64, holder string, expiresAt *time.Time) (uint64, error) {
	return tryTransition(ctx, tx, tripID, seatID, from, to, expectedVersion, holder, expiresAt)
}

// execer abstracts *sql.DB and *sql.Tx for the shared CAS statement.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func tryTransition(ctx context.Context, ex execer, tripID, seatID uint64, from, to model.SeatStatus, expectedVersion uint64, holder string, expiresAt *time.Time) (uint64, error) {
	var holderArg interface{}
	if holder != "" {
		holderArg = holder
	}
	var expiresArg interface{}
	if expiresAt != nil {
		expiresArg = expiresAt.UTC()
	}
	res, err := ex.ExecContext(ctx,
		`UPDATE trip_seats
            SET status = ?, holder_session = ?, lock_expires_at = ?, version = version + 1
          WHERE trip_id = ? AND seat_id = ? AND status = ? AND version = ?`,
		string(to), holderArg, expiresArg, tripID, seatID, string(from), expectedVersion)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrConflict
	}
	return expectedVersion + 1, nil
}

// ListExpiredLocks returns every LOCKED seat whose lease lapsed at or
// before the given instant.  The sweeper reclaims each one through
// TryTransition so a lease renewed or finalized between the read and
// the write is left alone.
func (r *SeatRepo) ListExpiredLocks(ctx context.Context, now time.Time) ([]model.SeatRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM trip_seats WHERE status = ? AND lock_expires_at <= ?`,
		string(model.SeatLocked), now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var seats []model.SeatRecord
	for rows.Next() {
		rec, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, *rec)
	}
	return seats, rows.Err()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanSeat reads one trip_seats row, converting the nullable holder
// and expiry columns into pointers.
func scanSeat(s scanner) (*model.SeatRecord, error) {
	var rec model.SeatRecord
	var status string
	var holder sql.NullString
	var expires sql.NullTime
	if err := s.Scan(&rec.TripID, &rec.SeatID, &rec.SeatNumber, &status, &holder, &expires,
		&rec.PriceCents, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = model.SeatStatus(status)
	if holder.Valid {
		rec.HolderSession = &holder.String
	}
	if expires.Valid {
		t := expires.Time
		rec.LockExpiresAt = &t
	}
	return &rec, nil
}
