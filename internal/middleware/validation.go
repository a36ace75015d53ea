package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxQuestionBytes = 100000 // ~100KB
	maxCountries     = 50
	maxCountryLength = 128
)

// ValidateQuestion checks the raw chat input. Emptiness is not an error: an
// empty question is simply not submitted.
func ValidateQuestion(content string) error {
	if len(content) > maxQuestionBytes {
		return errors.New("question exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("question must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateCountries checks a country selection.
func ValidateCountries(countries []string) error {
	if len(countries) > maxCountries {
		return errors.New("too many countries selected")
	}
	for _, c := range countries {
		if len(c) > maxCountryLength {
			return errors.New("country label exceeds maximum length")
		}
		if !utf8.ValidString(c) {
			return errors.New("country label must be valid UTF-8")
		}
	}
	return nil
}
