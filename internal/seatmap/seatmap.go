// Package seatmap gives a session a locally-predictable view of one
// trip's seats despite network latency.  A toggle flips the local
// state immediately (optimistic) while the server round-trip is in
// flight; the server's answer either confirms the flip or rolls it
// back to the authoritative state.  Broadcast events from other
// sessions are applied last-writer-wins, except for seats this
// session is itself manipulating at that moment.
package seatmap

import (
	"sort"
	"sync"

	"github.com/iliyamo/bus-seat-reservation/internal/hub"
	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

// SeatView is the local state of one seat as this session sees it.
type SeatView struct {
	SeatID     uint64
	SeatNumber string
	Status     model.SeatStatus
	Mine       bool // this session holds (or optimistically holds) the seat
}

// SeatMap is the per-session reconciliation state for a single trip.
// All methods are safe for concurrent use; the websocket reader and
// the UI-facing caller typically run on different goroutines.
type SeatMap struct {
	mu      sync.Mutex
	tripID  uint64
	session string
	seats   map[uint64]*SeatView
	pending map[uint64]model.SeatStatus // optimistic target while a request is in flight
}

// New creates an empty SeatMap for a trip.  Call ApplySnapshot before
// toggling anything.
func New(tripID uint64, sessionID string) *SeatMap {
	return &SeatMap{
		tripID:  tripID,
		session: sessionID,
		seats:   make(map[uint64]*SeatView),
		pending: make(map[uint64]model.SeatStatus),
	}
}

// ApplySnapshot replaces the local state with an authoritative
// snapshot and discards every in-flight optimistic operation.  It is
// used on open and again after a reconnect, when incremental state
// can no longer be trusted.
func (m *SeatMap) ApplySnapshot(recs []model.SeatRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seats = make(map[uint64]*SeatView, len(recs))
	m.pending = make(map[uint64]model.SeatStatus)
	for _, rec := range recs {
		m.seats[rec.SeatID] = &SeatView{
			SeatID:     rec.SeatID,
			SeatNumber: rec.SeatNumber,
			Status:     rec.Status,
			Mine:       rec.HeldBy(m.session),
		}
	}
}

// BeginSelect optimistically marks an AVAILABLE seat as locked by
// this session and records the operation as in flight.  It returns
// false when the seat is unknown, not AVAILABLE, or already has an
// operation pending — the caller should not issue the request then.
func (m *SeatMap) BeginSelect(seatID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.seats[seatID]
	if !ok || v.Status != model.SeatAvailable {
		return false
	}
	if _, inflight := m.pending[seatID]; inflight {
		return false
	}
	v.Status = model.SeatLocked
	v.Mine = true
	m.pending[seatID] = model.SeatLocked
	return true
}

// BeginRelease optimistically returns a seat this session holds to
// AVAILABLE and records the operation as in flight.
func (m *SeatMap) BeginRelease(seatID uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.seats[seatID]
	if !ok || v.Status != model.SeatLocked || !v.Mine {
		return false
	}
	if _, inflight := m.pending[seatID]; inflight {
		return false
	}
	v.Status = model.SeatAvailable
	v.Mine = false
	m.pending[seatID] = model.SeatAvailable
	return true
}

// Confirm marks an in-flight toggle as accepted by the server; the
// optimistic state stands.
func (m *SeatMap) Confirm(seatID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, seatID)
}

// Rollback undoes a rejected toggle: the seat takes the status the
// server reported and immediately stops looking selected.  A seat
// that failed to lock must never silently stay "selected".
func (m *SeatMap) Rollback(seatID uint64, serverStatus model.SeatStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, seatID)
	if v, ok := m.seats[seatID]; ok {
		v.Status = serverStatus
		v.Mine = false
	}
}

// ApplyEvent folds a broadcast transition into the local state.
// Events for a seat with an in-flight local operation are ignored;
// the server's direct response to that operation is the authority
// there.  An event that matches the current status is a no-op, which
// keeps this session's own confirmed lock marked as Mine when its
// broadcast echoes back.
func (m *SeatMap) ApplyEvent(ev hub.Event) {
	if ev.Data.TripID != m.tripID {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, inflight := m.pending[ev.Data.SeatID]; inflight {
		return
	}
	v, ok := m.seats[ev.Data.SeatID]
	if !ok {
		return
	}
	var status model.SeatStatus
	switch ev.Type {
	case hub.SeatLocked:
		status = model.SeatLocked
	case hub.SeatUnlocked:
		status = model.SeatAvailable
	case hub.SeatSold:
		status = model.SeatBooked
	default:
		return
	}
	if v.Status == status {
		return
	}
	v.Status = status
	v.Mine = false
}

// Status reports a seat's local status.
func (m *SeatMap) Status(seatID uint64) (model.SeatStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.seats[seatID]
	if !ok {
		return "", false
	}
	return v.Status, true
}

// Selected returns the seats this session currently considers its
// own, in seat order.
func (m *SeatMap) Selected() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint64
	for id, v := range m.seats {
		if v.Mine {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Available counts seats currently AVAILABLE in the local view.
func (m *SeatMap) Available() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.seats {
		if v.Status == model.SeatAvailable {
			n++
		}
	}
	return n
}
