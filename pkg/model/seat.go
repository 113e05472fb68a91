package model

import "time"

const (
	// SeatStatusHeld marks a transient reservation that expires at HoldExpiresAt.
	SeatStatusHeld = "held"
	// SeatStatusBooked is terminal: the seat belongs to a confirmed booking.
	SeatStatusBooked = "booked"
)

// SeatRecord is one occupied slot on a trip, keyed by (trip_id, seat_number).
// A seat with no record is available. A held record whose expiry has passed is
// logically absent; every read path filters on the expiry predicate rather
// than relying on the cleanup sweep.
type SeatRecord struct {
	ID            string     `json:"id,omitempty" bson:"_id,omitempty"`
	TripID        string     `json:"trip_id" bson:"trip_id" validate:"required"`
	SeatNumber    int        `json:"seat_number" bson:"seat_number" validate:"required,min=1"`
	Status        string     `json:"status" bson:"status" validate:"required,oneof=held booked"`
	HolderToken   string     `json:"holder_token,omitempty" bson:"holder_token,omitempty"`
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty" bson:"hold_expires_at,omitempty"`
	BookingID     string     `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
}

// Hold is what the hold manager hands back to a caller: the seats it now
// owns, when the ownership lapses, and an opaque token identifying the holder.
type Hold struct {
	TripID      string    `json:"trip_id"`
	SeatNumbers []int     `json:"seat_numbers"`
	HolderToken string    `json:"holder_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Availability is the current occupancy of a trip. The two sets are disjoint;
// every seat in [1, Capacity] outside their union is bookable.
type Availability struct {
	TripID      string   `json:"trip_id"`
	Capacity    int      `json:"capacity"`
	SeatLayout  string   `json:"seat_layout"`
	BookedSeats []int    `json:"booked_seats"`
	HeldSeats   []int    `json:"held_seats"`
	Trip        TripInfo `json:"trip"`
}

// SeatCheck classifies each requested seat before the caller commits to a
// hold or a payment.
type SeatCheck struct {
	Available   bool  `json:"available"`
	BookedSeats []int `json:"booked_seats"`
	HeldSeats   []int `json:"held_seats"`
}
