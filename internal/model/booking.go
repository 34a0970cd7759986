package model

import "time"

// Booking records the permanent sale of one seat on one trip.  A
// booking row is only ever created by the finalizer, inside the same
// transaction that moves the seat from LOCKED to BOOKED, so a booking
// and a BOOKED seat always exist together or not at all.
//
// Fields:
//  ID             – external booking reference (UUID).
//  TripID         – trip on which the seat was sold.
//  SeatID         – seat that was sold.
//  SessionID      – session that held the lock at finalize time.
//  PassengerName  – name supplied with the payment confirmation.
//  PassengerPhone – contact number, if any.
//  Status         – booking state; CONFIRMED on creation.
//  PriceCents     – price snapshot taken from the seat at sale time.
//  CreatedAt      – creation timestamp.
type Booking struct {
	ID             string    // bookings.id
	TripID         uint64    // bookings.trip_id
	SeatID         uint64    // bookings.seat_id
	SessionID      string    // bookings.session_id
	PassengerName  string    // bookings.passenger_name
	PassengerPhone *string   // bookings.passenger_phone (nullable)
	Status         string    // bookings.status
	PriceCents     uint32    // bookings.price_cents
	CreatedAt      time.Time // bookings.created_at
}

// BookingDetails carries the passenger information the payment
// collaborator forwards when it confirms a payment.
type BookingDetails struct {
	PassengerName  string  `json:"passenger_name"`
	PassengerPhone *string `json:"passenger_phone,omitempty"`
}
