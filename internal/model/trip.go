package model

import "time"

// Trip represents a single scheduled departure of a bus on a route.
// The seat inventory for a trip is materialized when the trip is
// created and lives for as long as the trip exists.
//
// Fields:
//  ID             – primary key identifier.
//  RouteName      – human-readable origin/destination label.
//  BusNumber      – registration or fleet number of the assigned bus.
//  DepartsAt      – scheduled departure time.
//  ArrivesAt      – scheduled arrival time (must be after DepartsAt).
//  BasePriceCents – default price in cents for seats without an
//                   override.
//  Status         – current state of the trip (SCHEDULED, CANCELLED,
//                   DEPARTED).
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Trip struct {
	ID             uint64    // trips.id
	RouteName      string    // trips.route_name
	BusNumber      string    // trips.bus_number
	DepartsAt      time.Time // trips.departs_at
	ArrivesAt      time.Time // trips.arrives_at
	BasePriceCents uint32    // trips.base_price_cents
	Status         string    // trips.status
	CreatedAt      time.Time // trips.created_at
	UpdatedAt      time.Time // trips.updated_at
}
