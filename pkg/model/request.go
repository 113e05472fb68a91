package model

// HoldRequest asks for a temporary claim on seats of a trip. Duration is
// optional; the service default applies when it is zero.
type HoldRequest struct {
	SeatNumbers     []int  `json:"seat_numbers" validate:"required,min=1,max=60,dive,min=1"`
	DurationMinutes int    `json:"duration_minutes,omitempty" validate:"omitempty,min=1,max=120"`
	HolderToken     string `json:"holder_token,omitempty"`
}

// SeatCheckRequest asks whether seats are still free. The holder token is
// optional; seats held under it are reported as available to the caller.
type SeatCheckRequest struct {
	SeatNumbers []int  `json:"seat_numbers" validate:"required,min=1,max=60,dive,min=1"`
	HolderToken string `json:"holder_token,omitempty"`
}

// ReleaseRequest gives held seats back early.
type ReleaseRequest struct {
	SeatNumbers []int `json:"seat_numbers" validate:"required,min=1,max=60,dive,min=1"`
}

// BookingRequest finalizes a reservation. Seat numbers may be empty; a
// booking with no seats is a valid order. The CVV is used for authorization
// only and is never persisted.
type BookingRequest struct {
	SeatNumbers    []int  `json:"seat_numbers" validate:"omitempty,max=60,dive,min=1"`
	HolderToken    string `json:"holder_token,omitempty"`
	PickupLocation string `json:"pickup_location" validate:"required,max=200"`
	DropLocation   string `json:"drop_location" validate:"required,max=200"`
	CardHolderName string `json:"card_holder_name" validate:"required,min=2,max=100"`
	CardNumber     string `json:"card_number" validate:"required,card_number"`
	ExpiryDate     string `json:"expiry_date" validate:"required,expiry_mmyy"`
	CVV            string `json:"cvv" validate:"required,len_3_4_digits"`
}
