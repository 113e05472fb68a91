package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"busline/pkg/logger"
	"busline/pkg/model"

	"github.com/go-playground/validator/v10"
)

var (
	cardNumberRegex = regexp.MustCompile(`^\d{12,19}$`)
	expiryRegex     = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvvRegex        = regexp.MustCompile(`^\d{3,4}$`)
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type ReservationValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewReservationValidator(log *logger.Logger) *ReservationValidator {
	v := validator.New()

	registrations := map[string]validator.Func{
		"card_number":    validateCardNumber,
		"expiry_mmyy":    validateExpiry,
		"len_3_4_digits": validateCVV,
	}
	for tag, fn := range registrations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register validator", "tag", tag, "error", err)
		}
	}

	log.Info("Reservation validator initialized successfully")

	return &ReservationValidator{
		validate: v,
		logger:   log,
	}
}

func validateCardNumber(fl validator.FieldLevel) bool {
	return cardNumberRegex.MatchString(fl.Field().String())
}

func validateExpiry(fl validator.FieldLevel) bool {
	return expiryRegex.MatchString(fl.Field().String())
}

func validateCVV(fl validator.FieldLevel) bool {
	return cvvRegex.MatchString(fl.Field().String())
}

// Seat lists are validated for shape only. Duplicates are legal input: the
// service canonicalizes with sanitizer.NormalizeSeats, and range against the
// trip's capacity is checked there too, after the trip is fetched.

func (v *ReservationValidator) ValidateHold(req *model.HoldRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return v.translate(err)
	}
	return nil
}

func (v *ReservationValidator) ValidateSeatCheck(req *model.SeatCheckRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return v.translate(err)
	}
	return nil
}

func (v *ReservationValidator) ValidateRelease(req *model.ReleaseRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return v.translate(err)
	}
	return nil
}

func (v *ReservationValidator) ValidateBooking(req *model.BookingRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return v.translate(err)
	}
	return nil
}

func (v *ReservationValidator) translate(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return v.translateValidationErrors(validationErrs)
	}
	return err
}

func (v *ReservationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "card_number":
			message = fmt.Sprintf("%s must be 12 to 19 digits", err.Field())
		case "expiry_mmyy":
			message = fmt.Sprintf("%s must be in MM/YY format", err.Field())
		case "len_3_4_digits":
			message = fmt.Sprintf("%s must be 3 or 4 digits", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
