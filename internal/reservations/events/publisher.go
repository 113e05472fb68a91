package events

import (
	"context"
	"time"

	"busline/pkg/kafka"
	"busline/pkg/model"
)

const (
	EventReservationConfirmed = "reservation.confirmed"

	schemaVersion = "1"
	sourceService = "reservations"
)

// ReservationConfirmed is the payload published after a booking commits.
// Consumers get the receipt facts without having to read our database.
type ReservationConfirmed struct {
	ReferenceNumber string    `json:"reference_number"`
	TripID          string    `json:"trip_id"`
	SeatNumbers     []int     `json:"seat_numbers"`
	TotalFare       float64   `json:"total_fare"`
	TransactionID   string    `json:"transaction_id"`
	BookedAt        time.Time `json:"booked_at"`
}

// Publisher emits reservation lifecycle events. Publishing is best-effort:
// the booking is already committed when these fire, so failures are logged
// by the caller, never surfaced to the client.
type Publisher interface {
	ReservationConfirmed(ctx context.Context, receipt *model.Receipt) error
}

type kafkaPublisher struct {
	producer *kafka.Producer
}

func NewKafkaPublisher(producer *kafka.Producer) Publisher {
	return &kafkaPublisher{producer: producer}
}

func (p *kafkaPublisher) ReservationConfirmed(ctx context.Context, receipt *model.Receipt) error {
	event := ReservationConfirmed{
		ReferenceNumber: receipt.Booking.ReferenceNumber,
		TripID:          receipt.Booking.TripID,
		SeatNumbers:     receipt.Booking.SeatNumbers,
		TotalFare:       receipt.Booking.TotalFare,
		TransactionID:   receipt.TransactionID,
		BookedAt:        receipt.Booking.BookedAt,
	}

	// Keyed by trip id so all events for one trip land on one partition.
	msg := kafka.NewMessage().
		WithKey(receipt.Booking.TripID).
		WithValue(event).
		WithEventType(EventReservationConfirmed).
		WithCorrelationID(receipt.Booking.ReferenceNumber).
		WithSchemaVersion(schemaVersion).
		WithSource(sourceService).
		Build()

	return p.producer.Publish(ctx, msg)
}

// NoopPublisher is wired when no Kafka brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) ReservationConfirmed(context.Context, *model.Receipt) error {
	return nil
}
