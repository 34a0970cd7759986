package model

import "time"

// SeatStatus enumerates the states a trip seat can be in.  A seat
// starts AVAILABLE, may be LOCKED while a session holds it during
// checkout, and becomes BOOKED once a booking is finalized.  BOOKED
// is terminal within this service.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE" // no active claim on the seat
	SeatLocked    SeatStatus = "LOCKED"    // soft-held by one session until lock_expires_at
	SeatBooked    SeatStatus = "BOOKED"    // sold; immutable thereafter
)

// SeatRecord is the authoritative state of one seat on one trip.
// Every mutation happens through a conditional update keyed on the
// current status and version, so the version increases by exactly one
// on each successful transition and never on a failed one.
//
// Fields:
//  TripID        – trip to which this seat belongs.
//  SeatID        – seat identifier within the trip.
//  SeatNumber    – display label printed on the ticket (e.g. "12A").
//  Status        – one of AVAILABLE, LOCKED, BOOKED.
//  HolderSession – session holding the lock; nil unless LOCKED.
//  LockExpiresAt – when the lock lapses; nil unless LOCKED.
//  PriceCents    – price for this seat in cents.
//  Version       – monotonic counter used for optimistic updates.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type SeatRecord struct {
	TripID        uint64     // trip_seats.trip_id
	SeatID        uint64     // trip_seats.seat_id
	SeatNumber    string     // trip_seats.seat_number
	Status        SeatStatus // trip_seats.status
	HolderSession *string    // trip_seats.holder_session (nullable)
	LockExpiresAt *time.Time // trip_seats.lock_expires_at (nullable)
	PriceCents    uint32     // trip_seats.price_cents
	Version       uint64     // trip_seats.version
	CreatedAt     time.Time  // trip_seats.created_at
	UpdatedAt     time.Time  // trip_seats.updated_at
}

// HeldBy reports whether the record is currently locked by the given
// session.  It does not consider expiry; callers that care about the
// TTL must check LockExpiresAt themselves.
func (r *SeatRecord) HeldBy(sessionID string) bool {
	return r.Status == SeatLocked && r.HolderSession != nil && *r.HolderSession == sessionID
}

// LockLapsed reports whether a LOCKED record's lease has passed the
// given instant.  Records in any other status never count as lapsed.
func (r *SeatRecord) LockLapsed(now time.Time) bool {
	return r.Status == SeatLocked && r.LockExpiresAt != nil && !r.LockExpiresAt.After(now)
}
