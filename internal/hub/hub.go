// Package hub implements the per-trip fan-out of seat status events.
// Sessions viewing a trip's seat map subscribe here; the lock manager,
// sweeper and finalizer publish a transition after it commits.  The
// hub is purely in-process and best-effort: a subscriber that falls
// behind is dropped and must resynchronize from a fresh snapshot.
package hub

import (
	"log"
	"sync"
)

// EventType identifies a seat status transition.
type EventType string

const (
	SeatLocked   EventType = "SEAT_LOCKED"   // AVAILABLE -> LOCKED
	SeatUnlocked EventType = "SEAT_UNLOCKED" // LOCKED -> AVAILABLE (release or sweep)
	SeatSold     EventType = "SEAT_SOLD"     // LOCKED -> BOOKED
)

// EventData carries the seat a transition applies to.
type EventData struct {
	SeatID uint64 `json:"seatId"`
	TripID uint64 `json:"tripId"`
}

// Event is the wire message delivered to every subscriber of a trip.
type Event struct {
	Type EventType `json:"event"`
	Data EventData `json:"data"`
}

// NewEvent builds an Event for one seat on one trip.
func NewEvent(t EventType, tripID, seatID uint64) Event {
	return Event{Type: t, Data: EventData{SeatID: seatID, TripID: tripID}}
}

// sendBuffer is the number of events a subscriber may lag behind
// before it is dropped.  Dropped subscribers re-fetch the snapshot.
const sendBuffer = 16

// Subscriber is one live connection's view of a single trip's event
// stream.  The transport layer drains C and forwards each event to
// the client.
type Subscriber struct {
	tripID uint64
	send   chan Event
}

// TripID returns the trip this subscriber is attached to.
func (s *Subscriber) TripID() uint64 { return s.tripID }

// C exposes the event stream.  The channel is closed when the
// subscriber is removed from the hub.
func (s *Subscriber) C() <-chan Event { return s.send }

// Hub maintains the tripID -> subscriber-set mapping and fans each
// published event out to the trip's subscribers.  All publishes flow
// through a single run loop, so events for the same seat are
// delivered in the order their transitions were committed.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint64]map[*Subscriber]struct{}
	broadcast   chan Event
	done        chan struct{}
	closeOnce   sync.Once
}

// New creates a Hub.  Call Run in its own goroutine before
// publishing.
func New() *Hub {
	return &Hub{
		subscribers: make(map[uint64]map[*Subscriber]struct{}),
		broadcast:   make(chan Event, 256),
		done:        make(chan struct{}),
	}
}

// Run delivers broadcast events until Close is called.  Fan-out uses
// a non-blocking send per subscriber: a subscriber whose buffer is
// full is removed rather than allowed to stall delivery to others.
// Sends happen under the read lock and Unsubscribe closes channels
// under the write lock, so a disconnect arriving mid-fan-out can
// never close a channel a send is about to hit.
func (h *Hub) Run() {
	for {
		select {
		case ev := <-h.broadcast:
			h.mu.RLock()
			var slow []*Subscriber
			for sub := range h.subscribers[ev.Data.TripID] {
				select {
				case sub.send <- ev:
				default:
					slow = append(slow, sub)
				}
			}
			h.mu.RUnlock()
			for _, sub := range slow {
				log.Printf("hub: dropping slow subscriber on trip %d", ev.Data.TripID)
				h.Unsubscribe(sub)
			}
		case <-h.done:
			return
		}
	}
}

// Close stops the run loop.  Pending events are discarded.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Subscribe registers a new subscriber for a trip and returns it.
func (h *Hub) Subscribe(tripID uint64) *Subscriber {
	sub := &Subscriber{tripID: tripID, send: make(chan Event, sendBuffer)}
	h.mu.Lock()
	if h.subscribers[tripID] == nil {
		h.subscribers[tripID] = make(map[*Subscriber]struct{})
	}
	h.subscribers[tripID][sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.  It is
// safe to call more than once; only the first call closes the
// channel.  The close happens while the write lock is held, which
// excludes any concurrent fan-out send on the same channel.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subscribers[sub.tripID]
	if !ok {
		return
	}
	if _, member := set[sub]; !member {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subscribers, sub.tripID)
	}
	close(sub.send)
}

// Publish enqueues an event for delivery to every subscriber of the
// trip.  It never blocks the caller beyond the broadcast buffer.
func (h *Hub) Publish(tripID uint64, ev Event) {
	ev.Data.TripID = tripID
	select {
	case h.broadcast <- ev:
	case <-h.done:
	}
}

// SubscriberCount reports how many connections are watching a trip.
func (h *Hub) SubscriberCount(tripID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[tripID])
}
