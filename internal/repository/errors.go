// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrSeatUnavailable indicates that another session already
// claimed the seat, while ErrConflict signals that a conditional
// update lost a race and should be retried against fresh state.
package repository

import "errors"

// ErrConflict is returned when a conditional transition matched no
// row: the seat's status or version changed between the caller's read
// and its write. Callers should re-read the record and decide whether
// to retry. Handlers translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrSeatUnavailable is returned when a lock is requested on a seat
// that is already LOCKED or BOOKED. The client should pick another
// seat. Handlers translate this into an HTTP 409 response.
var ErrSeatUnavailable = errors.New("seat unavailable")

// ErrLockExpired is returned when finalize runs after the TTL sweep
// reclaimed the seat (or the lease has lapsed and is about to be
// reclaimed). The payment collaborator must be told so it can refund
// or retry. Handlers translate this into an HTTP 410 response.
var ErrLockExpired = errors.New("lock expired")

// ErrNotHeld is returned when finalize is attempted by a session that
// is not the current lock holder. Release by a non-holder is a no-op
// success instead, so this error only surfaces from finalize.
var ErrNotHeld = errors.New("lock not held by session")

// ErrSeatNotFound is returned when no seat record exists for the
// requested (trip, seat) pair.
var ErrSeatNotFound = errors.New("seat not found")

// ErrTripNotFound is returned when the requested trip does not exist.
var ErrTripNotFound = errors.New("trip not found")

// ErrBookingNotFound is returned when no booking matches the
// requested reference.
var ErrBookingNotFound = errors.New("booking not found")
