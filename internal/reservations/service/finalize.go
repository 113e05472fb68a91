package service

import (
	"context"
	"errors"
	"time"

	reserrors "busline/internal/reservations/errors"
	"busline/internal/reservations/events"
	"busline/internal/reservations/payment"
	"busline/internal/reservations/repository"
	"busline/internal/reservations/validator"
	"busline/pkg/config"
	apperrors "busline/pkg/errors"
	"busline/pkg/fare"
	"busline/pkg/model"
	"busline/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/mongo"
)

// Bounded retry when the generated reference collides with an existing one.
const maxReferenceAttempts = 3

// BookingService turns holds into permanent bookings. Payment is authorized
// before any storage write, and the seat promotion, booking document and
// payment record commit as one transaction: a declined card or a storage
// failure leaves the inventory exactly as it was.
type BookingService interface {
	Finalize(ctx context.Context, tripID string, req *model.BookingRequest) (*model.Receipt, error)
	GetByReference(ctx context.Context, reference string) (*model.Receipt, error)
}

type bookingService struct {
	seatRepo    repository.SeatRepository
	bookingRepo repository.BookingRepository
	validator   *validator.ReservationValidator
	authorizer  payment.Authorizer
	publisher   events.Publisher
	cfg         *config.Config
}

func NewBookingService(
	seatRepo repository.SeatRepository,
	bookingRepo repository.BookingRepository,
	validator *validator.ReservationValidator,
	authorizer payment.Authorizer,
	publisher events.Publisher,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		seatRepo:    seatRepo,
		bookingRepo: bookingRepo,
		validator:   validator,
		authorizer:  authorizer,
		publisher:   publisher,
		cfg:         cfg,
	}
}

func (s *bookingService) Finalize(ctx context.Context, tripID string, req *model.BookingRequest) (*model.Receipt, error) {
	if tripID == "" {
		return nil, apperrors.InvalidInput("Trip ID cannot be empty")
	}
	if err := s.validator.ValidateBooking(req); err != nil {
		s.cfg.Log.Warn("Booking validation failed", "trip_id", tripID, "error", err)
		return nil, apperrors.Validation("Invalid booking request", map[string]any{"error": err.Error()})
	}

	trip, err := s.cfg.Client.Trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	seats := sanitizer.NormalizeSeats(req.SeatNumbers)
	if err := checkSeatRange(seats, trip.Capacity); err != nil {
		return nil, err
	}

	breakdown := s.computeFare(ctx, trip)

	auth, err := s.authorize(ctx, req, breakdown.Total)
	if err != nil {
		return nil, err
	}

	receipt, err := s.commitBooking(ctx, trip, req, seats, breakdown, auth)
	if err != nil {
		return nil, err
	}

	if err := s.publisher.ReservationConfirmed(ctx, receipt); err != nil {
		// The booking is committed; a broker outage must not fail the request.
		s.cfg.Log.Warn("Failed to publish reservation.confirmed event",
			"reference", receipt.Booking.ReferenceNumber,
			"error", err,
		)
	}

	s.cfg.Log.Info("Booking finalized successfully",
		"reference", receipt.Booking.ReferenceNumber,
		"trip_id", tripID,
		"seats", seats,
		"total_fare", receipt.Booking.TotalFare,
	)
	return receipt, nil
}

func (s *bookingService) GetByReference(ctx context.Context, reference string) (*model.Receipt, error) {
	if reference == "" {
		return nil, apperrors.InvalidInput("Booking reference cannot be empty")
	}

	booking, paymentRec, err := s.bookingRepo.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, reserrors.ErrBookingNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", reference)
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}

	receipt := &model.Receipt{Booking: *booking}
	if paymentRec != nil {
		receipt.MaskedCardNumber = paymentRec.MaskedCardNumber
		receipt.TransactionID = paymentRec.TransactionID
	}
	return receipt, nil
}

func (s *bookingService) computeFare(ctx context.Context, trip *model.TripInfo) fare.Breakdown {
	perKm, err := s.cfg.Client.Fares.CurrentPerKm(ctx)
	if err != nil {
		// Compute falls back to the default rate when perKm is zero.
		s.cfg.Log.Warn("Failed to fetch fare rate, using default", "error", err)
		perKm = 0
	}
	return fare.Compute(trip.DistanceKm, perKm)
}

func (s *bookingService) authorize(ctx context.Context, req *model.BookingRequest, amount float64) (*payment.Authorization, error) {
	auth, err := s.authorizer.Authorize(ctx, payment.AuthorizationRequest{
		CardHolderName: sanitizer.NormalizeName(req.CardHolderName),
		CardNumber:     sanitizer.DigitsOnly(req.CardNumber),
		ExpiryDate:     req.ExpiryDate,
		CVV:            req.CVV,
		Amount:         amount,
		Description:    "Bus seat reservation",
	})
	if err != nil {
		s.cfg.Log.Error("Payment authorization failed", "error", err)
		return nil, err
	}

	if !auth.Approved {
		s.cfg.Log.Info("Payment declined", "reason", auth.Reason)
		return nil, apperrors.PaymentDeclined(auth.Reason)
	}

	return auth, nil
}

// commitBooking runs the finalize transaction: purge, conflict check, seat
// promotion, booking and payment inserts. Retried with a fresh reference
// when the generated code collides.
func (s *bookingService) commitBooking(
	ctx context.Context,
	trip *model.TripInfo,
	req *model.BookingRequest,
	seats []int,
	breakdown fare.Breakdown,
	auth *payment.Authorization,
) (*model.Receipt, error) {
	var receipt *model.Receipt
	var missing []int

	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		now := time.Now().UTC().Truncate(time.Millisecond)

		booking := &model.Booking{
			ReferenceNumber: newReferenceNumber(now),
			TripID:          trip.TripID,
			SeatNumbers:     seats,
			NumberOfSeats:   len(seats),
			Status:          model.BookingStatusConfirmed,
			PickupLocation:  sanitizer.NormalizeLocation(req.PickupLocation),
			DropLocation:    sanitizer.NormalizeLocation(req.DropLocation),
			BookedAt:        now,
			BusPlate:        trip.BusPlate,
			FromLocation:    trip.FromLocation,
			ToLocation:      trip.ToLocation,
			DepartureTime:   trip.DepartureTime,
			DistanceKm:      trip.DistanceKm,
			FarePerKm:       breakdown.PerKm,
			BaseFare:        breakdown.Base,
			ServiceCharge:   breakdown.ServiceCharge,
			TotalFare:       breakdown.Total,
		}

		err := s.bookingRepo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			if _, err := s.seatRepo.PurgeExpired(sessCtx, trip.TripID, now); err != nil {
				return apperrors.Internal("Failed to purge expired holds", err)
			}

			records, err := s.seatRepo.ActiveRecords(sessCtx, trip.TripID, seats, now)
			if err != nil {
				return apperrors.Internal("Failed to check seat availability", err)
			}

			var bookedConflicts, heldSeats []int
			for _, rec := range records {
				if rec.Status == model.SeatStatusBooked {
					bookedConflicts = append(bookedConflicts, rec.SeatNumber)
				} else {
					heldSeats = append(heldSeats, rec.SeatNumber)
				}
			}
			if len(bookedConflicts) > 0 {
				return apperrors.SeatUnavailable("Some seats are already booked", bookedConflicts, nil)
			}

			if err := s.bookingRepo.CreateBooking(sessCtx, booking); err != nil {
				return err
			}

			if _, err := s.seatRepo.PromoteToBooked(sessCtx, trip.TripID, heldSeats, booking.ID, now); err != nil {
				return apperrors.Internal("Failed to promote held seats", err)
			}

			missing = subtractSeats(seats, heldSeats)
			if err := s.seatRepo.InsertBooked(sessCtx, trip.TripID, missing, booking.ID); err != nil {
				if isSeatTaken(err) {
					return err
				}
				return apperrors.Internal("Failed to book seats", err)
			}

			paymentRec := &model.PaymentRecord{
				BookingID:        booking.ID,
				CardHolderName:   sanitizer.NormalizeName(req.CardHolderName),
				MaskedCardNumber: payment.MaskCardNumber(sanitizer.DigitsOnly(req.CardNumber)),
				ExpiryDate:       req.ExpiryDate,
				Amount:           breakdown.Total,
				Status:           model.PaymentStatusCompleted,
				TransactionID:    auth.TransactionID,
				PaidAt:           now,
			}
			if err := s.bookingRepo.CreatePayment(sessCtx, paymentRec); err != nil {
				return apperrors.Internal("Failed to record payment", err)
			}

			receipt = &model.Receipt{
				Booking:          *booking,
				MaskedCardNumber: paymentRec.MaskedCardNumber,
				TransactionID:    paymentRec.TransactionID,
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, reserrors.ErrReferenceTaken) && attempt < maxReferenceAttempts {
				s.cfg.Log.Warn("Booking reference collision, retrying",
					"reference", booking.ReferenceNumber,
					"attempt", attempt,
				)
				continue
			}
			if errors.Is(err, reserrors.ErrReferenceTaken) {
				return nil, apperrors.Internal("Failed to allocate a booking reference", err)
			}
			if isSeatTaken(err) {
				// Only the freshly inserted seats can lose this race; the
				// promoted holds roll back and stay ours.
				err = classifyRace(ctx, s.seatRepo, s.cfg.Log, trip.TripID, missing, "")
			}
			s.cfg.Log.Error("Failed to finalize booking", "trip_id", trip.TripID, "error", err)
			return nil, err
		}
		return receipt, nil
	}

	return nil, apperrors.Internal("Failed to allocate a booking reference", nil)
}

// subtractSeats returns the seats in all that are not in taken. Both inputs
// are small sorted sets.
func subtractSeats(all, taken []int) []int {
	takenSet := make(map[int]struct{}, len(taken))
	for _, seat := range taken {
		takenSet[seat] = struct{}{}
	}

	remaining := make([]int, 0, len(all))
	for _, seat := range all {
		if _, ok := takenSet[seat]; !ok {
			remaining = append(remaining, seat)
		}
	}
	return remaining
}
