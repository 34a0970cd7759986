package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-reservation/internal/hub"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
	"github.com/iliyamo/bus-seat-reservation/internal/repository"
)

// memStore is an in-memory Store used to exercise the manager and the
// sweeper without a database.  Its TryTransition holds a mutex across
// the compare and the set, which gives it the same linearizable
// per-seat semantics as the SQL conditional update.
type memStore struct {
	mu    sync.Mutex
	seats map[[2]uint64]*model.SeatRecord
}

func newMemStore() *memStore {
	return &memStore{seats: make(map[[2]uint64]*model.SeatRecord)}
}

func (s *memStore) add(tripID, seatID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seats[[2]uint64{tripID, seatID}] = &model.SeatRecord{
		TripID: tripID, SeatID: seatID, Status: model.SeatAvailable,
	}
}

func (s *memStore) Get(_ context.Context, tripID, seatID uint64) (*model.SeatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.seats[[2]uint64{tripID, seatID}]
	if !ok {
		return nil, repository.ErrSeatNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memStore) TryTransition(_ context.Context, tripID, seatID uint64, from, to model.SeatStatus, expectedVersion uint64, holder string, expiresAt *time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.seats[[2]uint64{tripID, seatID}]
	if !ok {
		return 0, repository.ErrSeatNotFound
	}
	if rec.Status != from || rec.Version != expectedVersion {
		return 0, repository.ErrConflict
	}
	rec.Status = to
	rec.Version++
	rec.HolderSession = nil
	rec.LockExpiresAt = nil
	if holder != "" {
		h := holder
		rec.HolderSession = &h
	}
	if expiresAt != nil {
		t := *expiresAt
		rec.LockExpiresAt = &t
	}
	return rec.Version, nil
}

func (s *memStore) ListExpiredLocks(_ context.Context, now time.Time) ([]model.SeatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SeatRecord
	for _, rec := range s.seats {
		if rec.LockLapsed(now) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []hub.Event
}

func (p *capturePublisher) Publish(_ uint64, ev hub.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *capturePublisher) byType(t hub.EventType) []hub.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []hub.Event
	for _, ev := range p.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func TestAcquireConcurrentOnlyOneWins(t *testing.T) {
	store := newMemStore()
	store.add(1, 7)
	pub := &capturePublisher{}
	m := NewManager(store, pub, 5*time.Minute)

	const sessions = 16
	results := make([]error, sessions)
	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = m.Acquire(context.Background(), 1, 7, string(rune('a'+i)))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, repository.ErrSeatUnavailable)
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent acquire must succeed")

	rec, err := store.Get(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, model.SeatLocked, rec.Status)
	assert.Equal(t, uint64(1), rec.Version, "failed acquires must not bump the version")
	assert.Len(t, pub.byType(hub.SeatLocked), 1)
}

func TestAcquireLockedSeatFailsEvenForHolder(t *testing.T) {
	store := newMemStore()
	store.add(1, 1)
	m := NewManager(store, &capturePublisher{}, time.Minute)

	_, err := m.Acquire(context.Background(), 1, 1, "sess-a")
	require.NoError(t, err)

	_, err = m.Acquire(context.Background(), 1, 1, "sess-a")
	assert.ErrorIs(t, err, repository.ErrSeatUnavailable)
	_, err = m.Acquire(context.Background(), 1, 1, "sess-b")
	assert.ErrorIs(t, err, repository.ErrSeatUnavailable)
}

func TestAcquireReturnsExpiryWithinTTL(t *testing.T) {
	store := newMemStore()
	store.add(3, 4)
	ttl := 5 * time.Minute
	m := NewManager(store, &capturePublisher{}, ttl)

	before := time.Now().UTC()
	expiresAt, err := m.Acquire(context.Background(), 3, 4, "sess")
	require.NoError(t, err)
	assert.False(t, expiresAt.Before(before.Add(ttl)))
	assert.False(t, expiresAt.After(time.Now().UTC().Add(ttl)))
}

func TestReleaseIsIdempotent(t *testing.T) {
	store := newMemStore()
	store.add(1, 2)
	pub := &capturePublisher{}
	m := NewManager(store, pub, time.Minute)

	_, err := m.Acquire(context.Background(), 1, 2, "sess-a")
	require.NoError(t, err)

	require.NoError(t, m.Release(context.Background(), 1, 2, "sess-a"))
	// Second release finds nothing held and still succeeds.
	require.NoError(t, m.Release(context.Background(), 1, 2, "sess-a"))

	rec, err := store.Get(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, rec.Status)
	assert.Equal(t, uint64(2), rec.Version)
	assert.Len(t, pub.byType(hub.SeatUnlocked), 1, "the no-op release must not broadcast")
}

func TestReleaseByNonHolderIsNoOp(t *testing.T) {
	store := newMemStore()
	store.add(1, 2)
	m := NewManager(store, &capturePublisher{}, time.Minute)

	_, err := m.Acquire(context.Background(), 1, 2, "sess-a")
	require.NoError(t, err)

	require.NoError(t, m.Release(context.Background(), 1, 2, "sess-b"))

	rec, err := store.Get(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, model.SeatLocked, rec.Status, "non-holder release must not free the seat")
	require.NotNil(t, rec.HolderSession)
	assert.Equal(t, "sess-a", *rec.HolderSession)
}

func TestReleaseAvailableSeatIsNoOp(t *testing.T) {
	store := newMemStore()
	store.add(1, 9)
	m := NewManager(store, &capturePublisher{}, time.Minute)

	require.NoError(t, m.Release(context.Background(), 1, 9, "sess-a"))

	rec, err := store.Get(context.Background(), 1, 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), rec.Version, "no-op release must not touch the record")
}
