package sealer

import "testing"

func TestHolderToken_RoundTrip(t *testing.T) {
	token, err := CreateHolderToken("trip-42", "hold-abc")
	if err != nil {
		t.Fatalf("CreateHolderToken failed: %v", err)
	}

	tripID, holdID, err := ParseHolderToken(token)
	if err != nil {
		t.Fatalf("ParseHolderToken failed: %v", err)
	}
	if tripID != "trip-42" || holdID != "hold-abc" {
		t.Errorf("round trip mismatch: got (%s, %s)", tripID, holdID)
	}
}

func TestHolderToken_Unique(t *testing.T) {
	// Random nonce: sealing the same pair twice must not produce the same token.
	a, err := CreateHolderToken("trip-1", "hold-1")
	if err != nil {
		t.Fatal(err)
	}
	b, err := CreateHolderToken("trip-1", "hold-1")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("expected distinct tokens for repeated seals")
	}
}

func TestParseHolderToken_Invalid(t *testing.T) {
	for _, token := range []string{"", "not-a-token", "YWJjZGVm"} {
		if _, _, err := ParseHolderToken(token); err == nil {
			t.Errorf("expected error for token %q", token)
		}
	}
}
