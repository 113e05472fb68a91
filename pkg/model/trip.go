package model

import "time"

// TripInfo is the read-only reference data this service consumes from
// schedule management: one scheduled departure plus the bus and route facts
// needed for seat maps and receipts. It is a flat projection on purpose;
// the upstream object graph (trip/bus/route back-references) never crosses
// the wire.
type TripInfo struct {
	TripID        string    `json:"trip_id"`
	BusPlate      string    `json:"bus_plate"`
	Capacity      int       `json:"capacity"`
	SeatLayout    string    `json:"seat_layout"` // e.g. "2*2", informational only
	FromLocation  string    `json:"from_location"`
	ToLocation    string    `json:"to_location"`
	DistanceKm    float64   `json:"distance_km"`
	EstimatedTime string    `json:"estimated_time"`
	DepartureTime time.Time `json:"departure_time"`
}
