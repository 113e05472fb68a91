package service

import (
	"context"
	"errors"
	"time"

	reserrors "busline/internal/reservations/errors"
	"busline/internal/reservations/repository"
	"busline/internal/reservations/validator"
	"busline/pkg/config"
	apperrors "busline/pkg/errors"
	"busline/pkg/logger"
	"busline/pkg/model"
	"busline/pkg/sanitizer"
	"busline/pkg/sealer"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// HoldService owns the temporary side of seat inventory: claiming seats for a
// passenger while they pay, answering availability questions, and giving
// seats back. All writes go through a Mongo transaction; the unique index on
// (trip_id, seat_number) is the backstop against concurrent claims.
type HoldService interface {
	CreateHold(ctx context.Context, tripID string, req *model.HoldRequest) (*model.Hold, error)
	ReleaseHold(ctx context.Context, tripID string, req *model.ReleaseRequest) (int64, error)
	ValidateAvailability(ctx context.Context, tripID string, req *model.SeatCheckRequest) (*model.SeatCheck, error)
	GetAvailability(ctx context.Context, tripID string) (*model.Availability, error)
}

type holdService struct {
	seatRepo  repository.SeatRepository
	validator *validator.ReservationValidator
	cfg       *config.Config
}

func NewHoldService(
	seatRepo repository.SeatRepository,
	validator *validator.ReservationValidator,
	cfg *config.Config,
) HoldService {
	return &holdService{
		seatRepo:  seatRepo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *holdService) CreateHold(ctx context.Context, tripID string, req *model.HoldRequest) (*model.Hold, error) {
	if tripID == "" {
		return nil, apperrors.InvalidInput("Trip ID cannot be empty")
	}
	if err := s.validator.ValidateHold(req); err != nil {
		s.cfg.Log.Warn("Hold validation failed", "trip_id", tripID, "error", err)
		return nil, apperrors.Validation("Invalid hold request", map[string]any{"error": err.Error()})
	}

	trip, err := s.cfg.Client.Trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	seats := sanitizer.NormalizeSeats(req.SeatNumbers)
	if err := checkSeatRange(seats, trip.Capacity); err != nil {
		return nil, err
	}

	duration := s.cfg.HoldDuration
	if req.DurationMinutes > 0 {
		duration = time.Duration(req.DurationMinutes) * time.Minute
	}

	token, err := s.resolveHolderToken(tripID, req.HolderToken)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(duration).Truncate(time.Millisecond)

	err = s.seatRepo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := s.seatRepo.PurgeExpired(sessCtx, tripID, now); err != nil {
			return apperrors.Internal("Failed to purge expired holds", err)
		}

		records, err := s.seatRepo.ActiveRecords(sessCtx, tripID, seats, now)
		if err != nil {
			return apperrors.Internal("Failed to check seat availability", err)
		}

		var bookedConflicts, heldConflicts, ownSeats []int
		for _, rec := range records {
			switch {
			case rec.Status == model.SeatStatusBooked:
				bookedConflicts = append(bookedConflicts, rec.SeatNumber)
			case rec.HolderToken == token:
				ownSeats = append(ownSeats, rec.SeatNumber)
			default:
				heldConflicts = append(heldConflicts, rec.SeatNumber)
			}
		}

		if len(bookedConflicts) > 0 || len(heldConflicts) > 0 {
			return apperrors.SeatUnavailable("Some requested seats are not available", bookedConflicts, heldConflicts)
		}

		// Re-holding your own seats refreshes the expiry rather than
		// conflicting with yourself.
		if len(ownSeats) > 0 {
			if _, err := s.seatRepo.DeleteHolds(sessCtx, tripID, ownSeats); err != nil {
				return apperrors.Internal("Failed to refresh existing hold", err)
			}
		}

		if err := s.seatRepo.InsertHolds(sessCtx, tripID, seats, token, expiresAt); err != nil {
			if isSeatTaken(err) {
				return err
			}
			return apperrors.Internal("Failed to create hold", err)
		}

		return nil
	})
	if err != nil {
		if isSeatTaken(err) {
			err = classifyRace(ctx, s.seatRepo, s.cfg.Log, tripID, seats, token)
		}
		s.cfg.Log.Error("Failed to create hold", "trip_id", tripID, "seats", seats, "error", err)
		return nil, err
	}

	s.cfg.Log.Info("Hold created successfully",
		"trip_id", tripID,
		"seats", seats,
		"expires_at", expiresAt,
	)

	return &model.Hold{
		TripID:      tripID,
		SeatNumbers: seats,
		HolderToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

// ReleaseHold deletes held documents for the given seats. Booked seats are
// never touched and releasing an already-free seat is a no-op, so retries
// are safe.
func (s *holdService) ReleaseHold(ctx context.Context, tripID string, req *model.ReleaseRequest) (int64, error) {
	if tripID == "" {
		return 0, apperrors.InvalidInput("Trip ID cannot be empty")
	}
	if err := s.validator.ValidateRelease(req); err != nil {
		return 0, apperrors.Validation("Invalid release request", map[string]any{"error": err.Error()})
	}

	seats := sanitizer.NormalizeSeats(req.SeatNumbers)
	released, err := s.seatRepo.DeleteHolds(ctx, tripID, seats)
	if err != nil {
		s.cfg.Log.Error("Failed to release hold", "trip_id", tripID, "seats", seats, "error", err)
		return 0, apperrors.Internal("Failed to release hold", err)
	}

	s.cfg.Log.Info("Hold released", "trip_id", tripID, "seats", seats, "released", released)
	return released, nil
}

// ValidateAvailability is a read-only dry run of CreateHold. Seats held under
// the caller's own token count as available to them.
func (s *holdService) ValidateAvailability(ctx context.Context, tripID string, req *model.SeatCheckRequest) (*model.SeatCheck, error) {
	if tripID == "" {
		return nil, apperrors.InvalidInput("Trip ID cannot be empty")
	}
	if err := s.validator.ValidateSeatCheck(req); err != nil {
		return nil, apperrors.Validation("Invalid seat check request", map[string]any{"error": err.Error()})
	}

	seats := sanitizer.NormalizeSeats(req.SeatNumbers)
	now := time.Now().UTC()

	records, err := s.seatRepo.ActiveRecords(ctx, tripID, seats, now)
	if err != nil {
		return nil, apperrors.Internal("Failed to check seat availability", err)
	}

	check := &model.SeatCheck{
		BookedSeats: []int{},
		HeldSeats:   []int{},
	}
	for _, rec := range records {
		switch {
		case rec.Status == model.SeatStatusBooked:
			check.BookedSeats = append(check.BookedSeats, rec.SeatNumber)
		case req.HolderToken != "" && rec.HolderToken == req.HolderToken:
			// The caller already owns this hold.
		default:
			check.HeldSeats = append(check.HeldSeats, rec.SeatNumber)
		}
	}
	check.Available = len(check.BookedSeats) == 0 && len(check.HeldSeats) == 0

	return check, nil
}

// GetAvailability returns the disjoint booked/held seat sets plus the trip
// snapshot the seat-map UI renders around them.
func (s *holdService) GetAvailability(ctx context.Context, tripID string) (*model.Availability, error) {
	if tripID == "" {
		return nil, apperrors.InvalidInput("Trip ID cannot be empty")
	}

	trip, err := s.cfg.Client.Trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if _, err := s.seatRepo.PurgeExpired(ctx, tripID, now); err != nil {
		// The read below filters expired holds regardless; the purge is
		// housekeeping.
		s.cfg.Log.Warn("Failed to purge expired holds", "trip_id", tripID, "error", err)
	}

	booked, held, err := s.seatRepo.ActiveSeatSets(ctx, tripID, now)
	if err != nil {
		return nil, apperrors.Internal("Failed to load seat availability", err)
	}

	return &model.Availability{
		TripID:      tripID,
		Capacity:    trip.Capacity,
		SeatLayout:  trip.SeatLayout,
		BookedSeats: booked,
		HeldSeats:   held,
		Trip:        *trip,
	}, nil
}

func (s *holdService) resolveHolderToken(tripID, provided string) (string, error) {
	if provided == "" {
		token, err := sealer.CreateHolderToken(tripID, uuid.New().String())
		if err != nil {
			return "", apperrors.Internal("Failed to create holder token", err)
		}
		return token, nil
	}

	tokenTripID, _, err := sealer.ParseHolderToken(provided)
	if err != nil || tokenTripID != tripID {
		return "", apperrors.InvalidInput("Invalid holder token")
	}
	return provided, nil
}

func checkSeatRange(seats []int, capacity int) error {
	var outOfRange []int
	for _, seat := range seats {
		if seat < 1 || seat > capacity {
			outOfRange = append(outOfRange, seat)
		}
	}
	if len(outOfRange) > 0 {
		return apperrors.Validation("Seat numbers outside trip capacity", map[string]any{
			"capacity":      capacity,
			"invalid_seats": outOfRange,
		})
	}
	return nil
}

func isSeatTaken(err error) bool {
	return errors.Is(err, reserrors.ErrSeatTaken)
}

// classifyRace rebuilds the per-seat conflict report after a duplicate-key
// insert aborted the transaction. The abort cannot say which seat collided,
// so a fresh read names the exact losers; seats held under ownToken are not
// conflicts.
func classifyRace(
	ctx context.Context,
	repo repository.SeatRepository,
	log *logger.Logger,
	tripID string,
	seats []int,
	ownToken string,
) error {
	records, err := repo.ActiveRecords(ctx, tripID, seats, time.Now().UTC())
	if err != nil {
		log.Warn("Failed to classify racing seats", "trip_id", tripID, "error", err)
		return apperrors.SeatConflict("A seat was claimed by another request. Please try again.", nil)
	}

	var booked, held []int
	for _, rec := range records {
		switch {
		case rec.Status == model.SeatStatusBooked:
			booked = append(booked, rec.SeatNumber)
		case ownToken != "" && rec.HolderToken == ownToken:
			// Our own hold survived the abort; not a conflict.
		default:
			held = append(held, rec.SeatNumber)
		}
	}

	if len(booked) == 0 && len(held) == 0 {
		// The racing claim is already gone again (released or expired).
		return apperrors.SeatConflict("A seat was claimed by another request. Please try again.", nil)
	}
	return apperrors.SeatUnavailable("Some requested seats were claimed by another request", booked, held)
}
