package payment

import (
	"context"
	"strings"
	"testing"
)

func TestMaskCardNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"sixteen digits", "4111111111111111", "************1111"},
		{"twelve digits", "411111111111", "********1111"},
		{"exactly four", "1234", "1234"},
		{"shorter than four", "12", "12"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaskCardNumber(tt.input)
			if got != tt.expected {
				t.Errorf("MaskCardNumber(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMaskCardNumber_PreservesLength(t *testing.T) {
	for _, card := range []string{"41111111111111", "4111111111111111111"} {
		masked := MaskCardNumber(card)
		if len(masked) != len(card) {
			t.Errorf("masked length %d, want %d", len(masked), len(card))
		}
		if !strings.HasSuffix(card, masked[len(masked)-4:]) {
			t.Errorf("masked %q does not end with the card's last four digits", masked)
		}
	}
}

func TestAutoApproveAuthorizer(t *testing.T) {
	auth, err := AutoApproveAuthorizer{}.Authorize(context.Background(), AuthorizationRequest{Amount: 1020})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !auth.Approved {
		t.Error("expected approval")
	}
	if auth.TransactionID == "" {
		t.Error("expected a transaction id")
	}

	second, _ := AutoApproveAuthorizer{}.Authorize(context.Background(), AuthorizationRequest{Amount: 1020})
	if second.TransactionID == auth.TransactionID {
		t.Error("transaction ids must be unique per authorization")
	}
}
