package handler

import (
	"encoding/json"
	"net/http"

	"busline/internal/reservations/service"
	httputil "busline/pkg/http"
	"busline/pkg/logger"
	"busline/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ReservationHandler struct {
	holds    service.HoldService
	bookings service.BookingService
	log      *logger.Logger
}

func NewReservationHandler(holds service.HoldService, bookings service.BookingService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		holds:    holds,
		bookings: bookings,
		log:      log,
	}
}

func (h *ReservationHandler) GetAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tripID := ps.ByName("tripId")

	availability, err := h.holds.GetAvailability(r.Context(), tripID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAvailability", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, availability); err != nil {
		h.log.Error("failed to write success response", "handler", "GetAvailability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) CreateHold(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tripID := ps.ByName("tripId")

	var req model.HoldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CreateHold", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	hold, err := h.holds.CreateHold(r.Context(), tripID, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CreateHold", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, hold); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateHold", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) ValidateHold(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tripID := ps.ByName("tripId")

	var req model.SeatCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "ValidateHold", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	check, err := h.holds.ValidateAvailability(r.Context(), tripID, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ValidateHold", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, check); err != nil {
		h.log.Error("failed to write success response", "handler", "ValidateHold", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) ReleaseHold(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tripID := ps.ByName("tripId")

	var req model.ReleaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "ReleaseHold", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if _, err := h.holds.ReleaseHold(r.Context(), tripID, &req); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ReleaseHold", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) CreateBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tripID := ps.ByName("tripId")

	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "CreateBooking", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	receipt, err := h.bookings.Finalize(r.Context(), tripID, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "CreateBooking", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, receipt); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateBooking", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) GetBookingByReference(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reference := ps.ByName("reference")

	receipt, err := h.bookings.GetByReference(r.Context(), reference)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetBookingByReference", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, receipt); err != nil {
		h.log.Error("failed to write success response", "handler", "GetBookingByReference", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/trips/:tripId/availability", h.GetAvailability)
	router.POST("/api/v1/trips/:tripId/holds", h.CreateHold)
	router.POST("/api/v1/trips/:tripId/holds/validate", h.ValidateHold)
	router.DELETE("/api/v1/trips/:tripId/holds", h.ReleaseHold)
	router.POST("/api/v1/trips/:tripId/bookings", h.CreateBooking)
	router.GET("/api/v1/bookings/ref/:reference", h.GetBookingByReference)
}
