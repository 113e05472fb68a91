// Package sanitizer normalizes free-text booking input before validation and
// storage. All functions are idempotent and handle invalid input by returning
// empty values rather than errors.
package sanitizer

import (
	"strings"
	"unicode"
)

// TrimAndNormalize trims the string and collapses any run of whitespace
// (tabs, newlines included) into a single space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

// NormalizeLocation cleans a pickup or drop location as entered by the
// passenger. Punctuation and case are preserved; these are display values.
func NormalizeLocation(location string) string {
	return TrimAndNormalize(location)
}

// NormalizeName cleans a cardholder or passenger name.
func NormalizeName(name string) string {
	return TrimAndNormalize(name)
}

// DigitsOnly strips every non-digit rune. Used on card numbers that arrive
// with spaces or dashes.
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
