package service

import (
	"github.com/martijn/harvestd/internal/core/repository"
)

// ErrNotFound is returned when a run, log or artifact does not exist
var ErrNotFound = repository.ErrNotFound

// ValidationError carries a caller-facing diagnostic for malformed input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
