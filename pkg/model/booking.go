package model

import "time"

const (
	BookingStatusConfirmed = "confirmed"

	PaymentStatusCompleted = "completed"
)

// Booking is a finalized, permanent reservation. It is written exactly once
// and never mutated afterwards. Trip and route fields are copied at booking
// time so later schedule changes do not rewrite historical receipts.
type Booking struct {
	ID              string    `json:"id,omitempty" bson:"_id,omitempty"`
	ReferenceNumber string    `json:"reference_number" bson:"reference_number"`
	TripID          string    `json:"trip_id" bson:"trip_id"`
	SeatNumbers     []int     `json:"seat_numbers" bson:"seat_numbers"` // sorted, deduplicated
	NumberOfSeats   int       `json:"number_of_seats" bson:"number_of_seats"`
	Status          string    `json:"status" bson:"status"`
	PickupLocation  string    `json:"pickup_location" bson:"pickup_location"`
	DropLocation    string    `json:"drop_location" bson:"drop_location"`
	BookedAt        time.Time `json:"booked_at" bson:"booked_at"`

	// Trip snapshot, denormalized for display.
	BusPlate      string    `json:"bus_plate" bson:"bus_plate"`
	FromLocation  string    `json:"from_location" bson:"from_location"`
	ToLocation    string    `json:"to_location" bson:"to_location"`
	DepartureTime time.Time `json:"departure_time" bson:"departure_time"`

	// Fare breakdown.
	DistanceKm    float64 `json:"distance_km" bson:"distance_km"`
	FarePerKm     float64 `json:"fare_per_km" bson:"fare_per_km"`
	BaseFare      float64 `json:"base_fare" bson:"base_fare"`
	ServiceCharge float64 `json:"service_charge" bson:"service_charge"`
	TotalFare     float64 `json:"total_fare" bson:"total_fare"`
}

// PaymentRecord is one-to-one with a Booking. The card number is stored
// masked (all but the last four digits), the CVV never.
type PaymentRecord struct {
	ID               string    `json:"id,omitempty" bson:"_id,omitempty"`
	BookingID        string    `json:"booking_id" bson:"booking_id"`
	CardHolderName   string    `json:"card_holder_name" bson:"card_holder_name"`
	MaskedCardNumber string    `json:"masked_card_number" bson:"masked_card_number"`
	ExpiryDate       string    `json:"expiry_date" bson:"expiry_date"` // MM/YY
	Amount           float64   `json:"amount" bson:"amount"`
	Status           string    `json:"status" bson:"status"`
	TransactionID    string    `json:"transaction_id" bson:"transaction_id"`
	PaidAt           time.Time `json:"paid_at" bson:"paid_at"`
}

// Receipt is the full payload returned to the client after finalize: the
// booking plus its payment linkage.
type Receipt struct {
	Booking          Booking `json:"booking"`
	MaskedCardNumber string  `json:"masked_card_number"`
	TransactionID    string  `json:"transaction_id"`
}
