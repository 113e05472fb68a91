package sanitizer

import (
	"reflect"
	"testing"
)

func TestTrimAndNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trim spaces", "  Central Station  ", "Central Station"},
		{"multiple spaces between words", "Central    Station", "Central Station"},
		{"tabs and newlines", "Central\t\nStation", "Central Station"},
		{"empty string", "", ""},
		{"only whitespace", "   \t\n  ", ""},
		{"preserve punctuation", " St. Mary's Gate, Bay 4 ", "St. Mary's Gate, Bay 4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrimAndNormalize(tt.input); got != tt.want {
				t.Errorf("TrimAndNormalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTrimAndNormalize_Idempotent(t *testing.T) {
	input := "  Main \t Bus  Terminal "
	once := TrimAndNormalize(input)
	twice := TrimAndNormalize(once)
	if once != twice {
		t.Errorf("not idempotent: %q vs %q", once, twice)
	}
}

func TestDigitsOnly(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"4111 1111 1111 1111", "4111111111111111"},
		{"4111-1111-1111-1111", "4111111111111111"},
		{"no digits", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := DigitsOnly(tt.input); got != tt.want {
			t.Errorf("DigitsOnly(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeSeats(t *testing.T) {
	tests := []struct {
		name  string
		input []int
		want  []int
	}{
		{"sorted and deduplicated", []int{7, 3, 7, 1, 3}, []int{1, 3, 7}},
		{"already canonical", []int{1, 2, 3}, []int{1, 2, 3}},
		{"nil input", nil, []int{}},
		{"single seat", []int{5}, []int{5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSeats(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeSeats(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
