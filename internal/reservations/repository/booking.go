package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	reserrors "busline/internal/reservations/errors"
	"busline/pkg/config"
	mongotx "busline/pkg/db/mongo"
	"busline/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	BookingCollectionName = "Bookings"
	PaymentCollectionName = "Payments"
)

type mongoBookingRepository struct {
	cfg       *config.Config
	db        *mongo.Database
	bookings  *mongo.Collection
	payments  *mongo.Collection
	txManager mongotx.TransactionManager
}

// BookingRepository persists finalized bookings and their payment records.
// Both writes happen inside the finalize transaction; a booking without its
// payment record never becomes visible.
type BookingRepository interface {
	EnsureIndexes(ctx context.Context) error
	CreateBooking(ctx context.Context, booking *model.Booking) error
	CreatePayment(ctx context.Context, payment *model.PaymentRecord) error
	FindByReference(ctx context.Context, reference string) (*model.Booking, *model.PaymentRecord, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:       cfg,
		db:        db,
		bookings:  db.Collection(BookingCollectionName),
		payments:  db.Collection(PaymentCollectionName),
		txManager: mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

// EnsureIndexes makes reference numbers unique so a generator collision shows
// up as a duplicate key instead of two receipts sharing a code.
func (r *mongoBookingRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.bookings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "reference_number", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_reference_number"),
	})
	if err != nil {
		return fmt.Errorf("failed to create booking index: %w", err)
	}

	_, err = r.payments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "booking_id", Value: 1}},
		Options: options.Index().SetName("idx_payment_booking"),
	})
	if err != nil {
		return fmt.Errorf("failed to create payment index: %w", err)
	}

	return nil
}

func (r *mongoBookingRepository) CreateBooking(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.bookings.InsertOne(ctx, booking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), "uniq_reference_number") {
			return fmt.Errorf("%w: %s", reserrors.ErrReferenceTaken, booking.ReferenceNumber)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) CreatePayment(ctx context.Context, payment *model.PaymentRecord) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.payments.InsertOne(ctx, payment)
	if err != nil {
		return fmt.Errorf("failed to create payment record: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		payment.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByReference(ctx context.Context, reference string) (*model.Booking, *model.PaymentRecord, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.bookings.FindOne(ctx, bson.M{"reference_number": reference}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil, reserrors.ErrBookingNotFound
		}
		return nil, nil, fmt.Errorf("failed to find booking: %w", err)
	}

	var payment model.PaymentRecord
	err = r.payments.FindOne(ctx, bson.M{"booking_id": booking.ID}).Decode(&payment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Tolerate a missing payment record on reads; the receipt still
			// renders from the booking alone.
			return &booking, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to find payment record: %w", err)
	}

	return &booking, &payment, nil
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
