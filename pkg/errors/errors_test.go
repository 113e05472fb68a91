package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := New(CodeNotFound, "trip not found", http.StatusNotFound)
	if got := err.Error(); got != "NOT_FOUND: trip not found" {
		t.Errorf("unexpected error string: %s", got)
	}

	wrapped := Wrap(errors.New("boom"), CodeInternal, "storage failed", http.StatusInternalServerError)
	if got := wrapped.Error(); got != "INTERNAL_ERROR: storage failed (caused by: boom)" {
		t.Errorf("unexpected wrapped error string: %s", got)
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("storage failed", cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestSeatUnavailable_Details(t *testing.T) {
	err := SeatUnavailable("seats are unavailable", []int{6}, []int{7, 8})

	if err.HTTPStatus != http.StatusConflict {
		t.Errorf("expected 409, got %d", err.HTTPStatus)
	}
	booked, ok := err.Details["booked_seats"].([]int)
	if !ok || len(booked) != 1 || booked[0] != 6 {
		t.Errorf("unexpected booked_seats detail: %v", err.Details["booked_seats"])
	}
	held, ok := err.Details["held_seats"].([]int)
	if !ok || len(held) != 2 {
		t.Errorf("unexpected held_seats detail: %v", err.Details["held_seats"])
	}
}

func TestPaymentDeclined(t *testing.T) {
	err := PaymentDeclined("insufficient funds")

	if err.Code != CodePaymentDeclined {
		t.Errorf("unexpected code: %s", err.Code)
	}
	if err.HTTPStatus != http.StatusPaymentRequired {
		t.Errorf("expected 402, got %d", err.HTTPStatus)
	}
	if err.Details["reason"] != "insufficient funds" {
		t.Errorf("unexpected reason detail: %v", err.Details["reason"])
	}
}

func TestToJSON_OmitsInternalFields(t *testing.T) {
	err := Internal("storage failed", errors.New("secret dsn"))

	var decoded map[string]any
	if jsonErr := json.Unmarshal(err.ToJSON(), &decoded); jsonErr != nil {
		t.Fatalf("invalid JSON: %v", jsonErr)
	}
	if _, present := decoded["Err"]; present {
		t.Error("wrapped cause must not be serialized")
	}
	if decoded["code"] != CodeInternal {
		t.Errorf("unexpected code in JSON: %v", decoded["code"])
	}
}

func TestAsAppError(t *testing.T) {
	plain := errors.New("boom")
	appErr := AsAppError(plain)
	if appErr.Code != CodeInternal {
		t.Errorf("plain errors should map to internal, got %s", appErr.Code)
	}

	original := NotFound("booking")
	if AsAppError(original) != original {
		t.Error("AppError values should pass through unchanged")
	}
}
