// Package lock enforces the at-most-one-holder rule for trip seats.
// A lock is advisory with a hard TTL ceiling: there is no renewal, so
// a session must finish checkout (or release) within the TTL window
// or lose the seat to the sweeper.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/bus-seat-reservation/internal/hub"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// Store is the slice of the seat state store the lock manager needs.
// *repository.SeatRepo satisfies it; tests substitute an in-memory
// implementation.
type Store interface {
	Get(ctx context.Context, tripID, seatID uint64) (*model.SeatRecord, error)
	TryTransition(ctx context.Context, tripID, seatID uint64, from, to model.SeatStatus, expectedVersion uint64, holder string, expiresAt *time.Time) (uint64, error)
	ListExpiredLocks(ctx context.Context, now time.Time) ([]model.SeatRecord, error)
}

// Publisher is where committed transitions are announced.  *hub.Hub
// satisfies it.
type Publisher interface {
	Publish(tripID uint64, ev hub.Event)
}

// Manager serializes seat claims through the store's conditional
// transition.  Both Acquire and Release read the current record and
// then write conditionally on the observed version, so concurrent
// callers can never both succeed against the same observation.
type Manager struct {
	store Store
	pub   Publisher
	ttl   time.Duration
}

// NewManager constructs a Manager.  ttl is the lease duration applied
// to every successful acquire.
func NewManager(store Store, pub Publisher, ttl time.Duration) *Manager {
	return &Manager{store: store, pub: pub, ttl: ttl}
}

// TTL returns the configured lease duration.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Acquire attempts to lock a seat for a session.  It returns the
// lease expiry on success.  A seat that is LOCKED (by anyone,
// including the requesting session) or BOOKED yields
// ErrSeatUnavailable, as does losing the conditional update to a
// concurrent writer.  On success SEAT_LOCKED is broadcast to the
// trip's subscribers.
func (m *Manager) Acquire(ctx context.Context, tripID, seatID uint64, sessionID string) (time.Time, error) {
	rec, err := m.store.Get(ctx, tripID, seatID)
	if err != nil {
		return time.Time{}, err
	}
	if rec.Status != model.SeatAvailable {
		return time.Time{}, repository.ErrSeatUnavailable
	}
	expiresAt := time.Now().UTC().Add(m.ttl)
	if _, err := m.store.TryTransition(ctx, tripID, seatID,
		model.SeatAvailable, model.SeatLocked, rec.Version, sessionID, &expiresAt); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return time.Time{}, repository.ErrSeatUnavailable
		}
		return time.Time{}, err
	}
	m.pub.Publish(tripID, hub.NewEvent(hub.SeatLocked, tripID, seatID))
	return expiresAt, nil
}

// Release returns a seat the session holds to AVAILABLE.  Releasing a
// lock the session does not hold — including a seat that is already
// AVAILABLE, held by someone else, or BOOKED — is a no-op success, so
// duplicate unlock calls from client retries never fail.  On an
// actual release SEAT_UNLOCKED is broadcast.
func (m *Manager) Release(ctx context.Context, tripID, seatID uint64, sessionID string) error {
	rec, err := m.store.Get(ctx, tripID, seatID)
	if err != nil {
		return err
	}
	if !rec.HeldBy(sessionID) {
		return nil
	}
	if _, err := m.store.TryTransition(ctx, tripID, seatID,
		model.SeatLocked, model.SeatAvailable, rec.Version, "", nil); err != nil {
		// Lost a race with the sweeper or a concurrent release; the
		// seat is no longer ours either way.
		if errors.Is(err, repository.ErrConflict) {
			return nil
		}
		return err
	}
	m.pub.Publish(tripID, hub.NewEvent(hub.SeatUnlocked, tripID, seatID))
	return nil
}
