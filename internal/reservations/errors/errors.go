package errors

import "errors"

var (
	ErrBookingNotFound = errors.New("booking not found")

	ErrSeatTaken = errors.New("seat already taken")

	ErrReferenceTaken = errors.New("booking reference already exists")
)
