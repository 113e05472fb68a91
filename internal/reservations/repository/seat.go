package repository

import (
	"context"
	"fmt"
	"time"

	reserrors "busline/internal/reservations/errors"
	"busline/pkg/config"
	mongotx "busline/pkg/db/mongo"
	"busline/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SeatCollectionName = "Seat_records"
)

type mongoSeatRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

// SeatRepository stores per-seat occupancy documents. Absence of a document
// means the seat is free. Every read filters expired holds out with a
// predicate; PurgeExpired only garbage-collects what the predicates already
// ignore.
type SeatRepository interface {
	EnsureIndexes(ctx context.Context) error
	PurgeExpired(ctx context.Context, tripID string, now time.Time) (int64, error)
	ActiveSeatSets(ctx context.Context, tripID string, now time.Time) (booked []int, held []int, err error)
	ActiveRecords(ctx context.Context, tripID string, seats []int, now time.Time) ([]*model.SeatRecord, error)
	InsertHolds(ctx context.Context, tripID string, seats []int, holderToken string, expiresAt time.Time) error
	DeleteHolds(ctx context.Context, tripID string, seats []int) (int64, error)
	PromoteToBooked(ctx context.Context, tripID string, seats []int, bookingID string, now time.Time) (int64, error)
	InsertBooked(ctx context.Context, tripID string, seats []int, bookingID string) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoSeatRepository(cfg *config.Config) SeatRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSeatRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(SeatCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// EnsureIndexes creates the unique index on (trip_id, seat_number). The index
// is the hard guarantee behind the check-then-insert transaction: two
// concurrent holds on the same seat cannot both commit. Expired holds are
// purged inside the same transaction before any insert, so they never block
// a new claim.
func (r *mongoSeatRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "trip_id", Value: 1},
			{Key: "seat_number", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("uniq_trip_seat"),
	})
	if err != nil {
		return fmt.Errorf("failed to create seat index: %w", err)
	}
	return nil
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// When inside a transaction (SessionContext), returns the original context unchanged
// with a no-op cancel function, as we cannot wrap SessionContext without breaking
// transaction semantics.
func (r *mongoSeatRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
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

// activeFilter matches documents that still occupy their seat: booked records
// forever, held records until their expiry passes.
func activeFilter(now time.Time) bson.M {
	return bson.M{
		"$or": []bson.M{
			{"status": model.SeatStatusBooked},
			{"status": model.SeatStatusHeld, "hold_expires_at": bson.M{"$gt": now}},
		},
	}
}

func (r *mongoSeatRepository) PurgeExpired(ctx context.Context, tripID string, now time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{
		"trip_id":         tripID,
		"status":          model.SeatStatusHeld,
		"hold_expires_at": bson.M{"$lte": now},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired holds: %w", err)
	}

	return result.DeletedCount, nil
}

func (r *mongoSeatRepository) ActiveSeatSets(ctx context.Context, tripID string, now time.Time) ([]int, []int, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"trip_id": tripID}
	for k, v := range activeFilter(now) {
		filter[k] = v
	}

	opts := options.Find().SetSort(bson.D{{Key: "seat_number", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find seat records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*model.SeatRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, nil, fmt.Errorf("failed to decode seat records: %w", err)
	}

	booked := make([]int, 0, len(records))
	held := make([]int, 0, len(records))
	for _, rec := range records {
		switch rec.Status {
		case model.SeatStatusBooked:
			booked = append(booked, rec.SeatNumber)
		case model.SeatStatusHeld:
			held = append(held, rec.SeatNumber)
		}
	}

	return booked, held, nil
}

func (r *mongoSeatRepository) ActiveRecords(ctx context.Context, tripID string, seats []int, now time.Time) ([]*model.SeatRecord, error) {
	if len(seats) == 0 {
		return nil, nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"trip_id":     tripID,
		"seat_number": bson.M{"$in": seats},
	}
	for k, v := range activeFilter(now) {
		filter[k] = v
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find seat records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*model.SeatRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode seat records: %w", err)
	}

	return records, nil
}

// InsertHolds writes one held document per seat. A duplicate key means a
// concurrent writer claimed one of the seats between our check and insert;
// the caller rolls the whole transaction back.
func (r *mongoSeatRepository) InsertHolds(ctx context.Context, tripID string, seats []int, holderToken string, expiresAt time.Time) error {
	if len(seats) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]interface{}, 0, len(seats))
	for _, seat := range seats {
		expiry := expiresAt
		docs = append(docs, &model.SeatRecord{
			TripID:        tripID,
			SeatNumber:    seat,
			Status:        model.SeatStatusHeld,
			HolderToken:   holderToken,
			HoldExpiresAt: &expiry,
			CreatedAt:     now,
		})
	}

	// Ordered inserts: stop at the first duplicate so nothing partial survives
	// outside the surrounding transaction.
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: trip %s", reserrors.ErrSeatTaken, tripID)
		}
		return fmt.Errorf("failed to insert holds: %w", err)
	}

	return nil
}

func (r *mongoSeatRepository) DeleteHolds(ctx context.Context, tripID string, seats []int) (int64, error) {
	if len(seats) == 0 {
		return 0, nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{
		"trip_id":     tripID,
		"seat_number": bson.M{"$in": seats},
		"status":      model.SeatStatusHeld,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete holds: %w", err)
	}

	return result.DeletedCount, nil
}

// PromoteToBooked flips unexpired held documents on the given seats to booked
// and stamps the booking id. Returns how many documents were promoted; seats
// without a held document are untouched and the caller inserts them directly.
func (r *mongoSeatRepository) PromoteToBooked(ctx context.Context, tripID string, seats []int, bookingID string, now time.Time) (int64, error) {
	if len(seats) == 0 {
		return 0, nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateMany(ctx,
		bson.M{
			"trip_id":         tripID,
			"seat_number":     bson.M{"$in": seats},
			"status":          model.SeatStatusHeld,
			"hold_expires_at": bson.M{"$gt": now},
		},
		bson.M{
			"$set": bson.M{
				"status":     model.SeatStatusBooked,
				"booking_id": bookingID,
			},
			"$unset": bson.M{
				"holder_token":    "",
				"hold_expires_at": "",
			},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to promote holds: %w", err)
	}

	return result.ModifiedCount, nil
}

func (r *mongoSeatRepository) InsertBooked(ctx context.Context, tripID string, seats []int, bookingID string) error {
	if len(seats) == 0 {
		return nil
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	docs := make([]interface{}, 0, len(seats))
	for _, seat := range seats {
		docs = append(docs, &model.SeatRecord{
			TripID:     tripID,
			SeatNumber: seat,
			Status:     model.SeatStatusBooked,
			BookingID:  bookingID,
			CreatedAt:  now,
		})
	}

	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: trip %s", reserrors.ErrSeatTaken, tripID)
		}
		return fmt.Errorf("failed to insert booked seats: %w", err)
	}

	return nil
}

func (r *mongoSeatRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
