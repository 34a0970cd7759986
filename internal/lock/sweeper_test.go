package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-reservation/internal/hub"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

func TestSweepOnceReclaimsOnlyExpiredLocks(t *testing.T) {
	store := newMemStore()
	store.add(1, 1)
	store.add(1, 2)
	store.add(1, 3)
	pub := &capturePublisher{}

	// Seat 1: lock already lapsed.  Seat 2: lock still fresh.  Seat 3:
	// never locked.
	expired := NewManager(store, pub, -time.Second)
	_, err := expired.Acquire(context.Background(), 1, 1, "sess-gone")
	require.NoError(t, err)
	fresh := NewManager(store, pub, time.Hour)
	_, err = fresh.Acquire(context.Background(), 1, 2, "sess-live")
	require.NoError(t, err)

	s := NewSweeper(store, pub, time.Minute)
	n, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rec, err := store.Get(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, model.SeatAvailable, rec.Status)
	assert.Nil(t, rec.HolderSession)
	assert.Nil(t, rec.LockExpiresAt)
	assert.Equal(t, uint64(2), rec.Version)

	rec, err = store.Get(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, model.SeatLocked, rec.Status, "unexpired lock must survive the sweep")

	assert.Len(t, pub.byType(hub.SeatUnlocked), 1)
}

// staleListStore feeds the sweeper observations that are already out
// of date, as happens when a seat changes between the expiry scan and
// the reclaim write.
type staleListStore struct {
	*memStore
	stale []model.SeatRecord
}

func (s *staleListStore) ListExpiredLocks(context.Context, time.Time) ([]model.SeatRecord, error) {
	return s.stale, nil
}

func TestSweepSkipsSeatChangedSinceScan(t *testing.T) {
	mem := newMemStore()
	mem.add(2, 1)
	pub := &capturePublisher{}
	m := NewManager(mem, pub, -time.Second)
	_, err := m.Acquire(context.Background(), 2, 1, "sess")
	require.NoError(t, err)

	// The sweeper saw the seat before the lock landed: version 0.
	store := &staleListStore{memStore: mem, stale: []model.SeatRecord{
		{TripID: 2, SeatID: 1, Status: model.SeatLocked, Version: 0},
	}}
	s := NewSweeper(store, pub, time.Minute)
	n, err := s.SweepOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n, "a stale observation must lose the conditional update")

	rec, err := mem.Get(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, model.SeatLocked, rec.Status)
	assert.Equal(t, uint64(1), rec.Version)
	assert.Empty(t, pub.byType(hub.SeatUnlocked))
}

func TestSweeperLoopReclaimsWithinTTLPlusInterval(t *testing.T) {
	store := newMemStore()
	store.add(5, 5)
	pub := &capturePublisher{}

	ttl := 30 * time.Millisecond
	interval := 20 * time.Millisecond
	m := NewManager(store, pub, ttl)
	_, err := m.Acquire(context.Background(), 5, 5, "sess-abandoned")
	require.NoError(t, err)

	s := NewSweeper(store, pub, interval)
	s.Start()
	defer s.Stop()

	// The seat must not be reclaimed before the TTL...
	rec, err := store.Get(context.Background(), 5, 5)
	require.NoError(t, err)
	assert.Equal(t, model.SeatLocked, rec.Status)

	// ...and must be AVAILABLE again no later than TTL + interval plus
	// scheduling slack.
	require.Eventually(t, func() bool {
		rec, err := store.Get(context.Background(), 5, 5)
		return err == nil && rec.Status == model.SeatAvailable
	}, ttl+interval+200*time.Millisecond, 5*time.Millisecond)

	assert.Len(t, pub.byType(hub.SeatUnlocked), 1)
}
