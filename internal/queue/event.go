// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a seat lock is successfully
// finalized into a booking.  It contains enough information for
// downstream consumers to log, notify, or trigger analytics without
// querying the primary database.
type BookingConfirmedEvent struct {
	BookingID     string `json:"booking_id"`
	TripID        uint64 `json:"trip_id"`
	RouteName     string `json:"route_name"`
	BusNumber     string `json:"bus_number"`
	DepartsAt     string `json:"departs_at"`
	SeatID        uint64 `json:"seat_id"`
	SeatNumber    string `json:"seat_number"`
	PassengerName string `json:"passenger_name"`
	PriceCents    uint32 `json:"price_cents"`
	ConfirmedAt   string `json:"confirmed_at"`
}
