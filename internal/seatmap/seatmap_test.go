package seatmap

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bus-seat-reservation/internal/hub"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

func snapshot() []model.SeatRecord {
	return []model.SeatRecord{
		{TripID: 1, SeatID: 1, SeatNumber: "1A", Status: model.SeatAvailable},
		{TripID: 1, SeatID: 2, SeatNumber: "1B", Status: model.SeatAvailable},
		{TripID: 1, SeatID: 3, SeatNumber: "1C", Status: model.SeatBooked},
	}
}

func TestApplySnapshotMarksOwnHeldSeats(t *testing.T) {
	holder := "sess-me"
	other := "sess-other"
	exp := time.Now().Add(time.Minute)
	m := New(1, "sess-me")
	m.ApplySnapshot([]model.SeatRecord{
		{TripID: 1, SeatID: 1, Status: model.SeatLocked, HolderSession: &holder, LockExpiresAt: &exp},
		{TripID: 1, SeatID: 2, Status: model.SeatLocked, HolderSession: &other, LockExpiresAt: &exp},
	})
	assert.Equal(t, []uint64{1}, m.Selected())
}

func TestOptimisticSelectConfirm(t *testing.T) {
	m := New(1, "sess")
	m.ApplySnapshot(snapshot())

	require.True(t, m.BeginSelect(1), "available seat must be selectable")
	st, _ := m.Status(1)
	assert.Equal(t, model.SeatLocked, st, "toggle must flip the local state immediately")

	// Duplicate toggle while the request is in flight is refused.
	assert.False(t, m.BeginSelect(1))

	m.Confirm(1)
	assert.Equal(t, []uint64{1}, m.Selected())
}

func TestOptimisticReleaseConfirm(t *testing.T) {
	m := New(1, "sess")
	m.ApplySnapshot(snapshot())
	require.True(t, m.BeginSelect(1))
	m.Confirm(1)

	require.True(t, m.BeginRelease(1), "held seat must be releasable")
	st, _ := m.Status(1)
	assert.Equal(t, model.SeatAvailable, st)

	// Release of a seat we do not hold is refused locally.
	assert.False(t, m.BeginRelease(2))

	m.Confirm(1)
	assert.Empty(t, m.Selected())
}

func TestSelectRefusedForUnavailableSeats(t *testing.T) {
	m := New(1, "sess")
	m.ApplySnapshot(snapshot())

	assert.False(t, m.BeginSelect(3), "booked seat must not be selectable")
	assert.False(t, m.BeginSelect(99), "unknown seat must not be selectable")
}

func TestRollbackRevertsToServerState(t *testing.T) {
	m := New(1, "sess")
	m.ApplySnapshot(snapshot())

	require.True(t, m.BeginSelect(2))
	// Server answered SeatUnavailable: someone else just bought it.
	m.Rollback(2, model.SeatBooked)

	st, _ := m.Status(2)
	assert.Equal(t, model.SeatBooked, st, "rejected seat must immediately show its true state")
	assert.Empty(t, m.Selected())
}

func TestEventIgnoredWhileOwnOperationInFlight(t *testing.T) {
	m := New(1, "sess")
	m.ApplySnapshot(snapshot())

	require.True(t, m.BeginSelect(1))
	// A broadcast about the same seat arrives before our response does.
	m.ApplyEvent(hub.NewEvent(hub.SeatUnlocked, 1, 1))

	st, _ := m.Status(1)
	assert.Equal(t, model.SeatLocked, st, "in-flight seat follows the direct response, not broadcasts")
}

func TestEventAppliedForOtherSeats(t *testing.T) {
	m := New(1, "sess")
	m.ApplySnapshot(snapshot())

	m.ApplyEvent(hub.NewEvent(hub.SeatLocked, 1, 2))
	st, _ := m.Status(2)
	assert.Equal(t, model.SeatLocked, st)

	m.ApplyEvent(hub.NewEvent(hub.SeatUnlocked, 1, 2))
	st, _ = m.Status(2)
	assert.Equal(t, model.SeatAvailable, st)

	m.ApplyEvent(hub.NewEvent(hub.SeatSold, 1, 2))
	st, _ = m.Status(2)
	assert.Equal(t, model.SeatBooked, st)
}

func TestOwnBroadcastEchoKeepsSeatMine(t *testing.T) {
	m := New(1, "sess")
	m.ApplySnapshot(snapshot())

	require.True(t, m.BeginSelect(1))
	m.Confirm(1)
	// Our own confirmed lock echoes back from the hub.
	m.ApplyEvent(hub.NewEvent(hub.SeatLocked, 1, 1))

	assert.Equal(t, []uint64{1}, m.Selected(), "matching echo must not clear ownership")
}

func TestEventsForOtherTripsIgnored(t *testing.T) {
	m := New(1, "sess")
	m.ApplySnapshot(snapshot())

	m.ApplyEvent(hub.NewEvent(hub.SeatSold, 2, 1))
	st, _ := m.Status(1)
	assert.Equal(t, model.SeatAvailable, st)
}

func TestResyncDiscardsOptimisticState(t *testing.T) {
	m := New(1, "sess")
	m.ApplySnapshot(snapshot())
	require.True(t, m.BeginSelect(1))

	// Reconnect: incremental state is untrusted, snapshot rules.
	m.ApplySnapshot(snapshot())

	st, _ := m.Status(1)
	assert.Equal(t, model.SeatAvailable, st)
	assert.Empty(t, m.Selected())
	assert.Equal(t, 2, m.Available())
}
