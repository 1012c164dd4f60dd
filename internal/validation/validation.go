package validation

import (
	"errors"
	"strings"
	"unicode"
)

// ErrFieldEmpty is returned when a search field is empty or whitespace-only after trim.
var ErrFieldEmpty = errors.New("field is required")

// ErrFieldTooShort is returned when a search field is below the minimum length.
var ErrFieldTooShort = errors.New("field too short")

// ErrFieldTooLong is returned when a search field exceeds the maximum length.
var ErrFieldTooLong = errors.New("field too long")

// ErrFieldInvalidChars is returned when a search field contains disallowed characters.
var ErrFieldInvalidChars = errors.New("field contains invalid characters")

// ValidateSearchField trims a city or state input, enforces length bounds (minLen, maxLen
// in runes, zero disables a bound), and restricts it to letters, digits, space, comma,
// hyphen, period and apostrophe. Returns the trimmed string or an error suitable for
// 400 INVALID_SEARCH responses.
func ValidateSearchField(input string, minLen, maxLen int) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	n := len(r)
	if n == 0 {
		return "", ErrFieldEmpty
	}
	if minLen > 0 && n < minLen {
		return "", ErrFieldTooShort
	}
	if maxLen > 0 && n > maxLen {
		return "", ErrFieldTooLong
	}
	for _, c := range r {
		if !isAllowedRune(c) {
			return "", ErrFieldInvalidChars
		}
	}
	return s, nil
}

// isAllowedRune allows place names like "St. Mary's" and "Winston-Salem".
func isAllowedRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.', '\'':
		return true
	}
	return false
}
