package domain

import (
	"errors"
	"net/http"
	"strings"
)

// Common domain errors used across the application.
var (
	// ErrValidation is the kind of StructuredError raised when inputs fail
	// a model's validation rules.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidFormat is returned when data is not in the expected format.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrInvalidPassword is returned when a password cannot be hashed.
	ErrInvalidPassword = errors.New("invalid password")
)

// NewValidationError builds the 10001 error from the individual field
// messages. Messages are joined with ", " in the order given.
func NewValidationError(fields []string, messages []string) *StructuredError {
	err := NewStructuredError(
		ErrValidation,
		http.StatusBadRequest,
		CodeValidation,
		"Data validation",
		strings.Join(messages, ", "),
		nil,
	)
	if len(fields) > 0 {
		err.WithMeta(map[string]any{"fields": fields})
	}
	return err
}
