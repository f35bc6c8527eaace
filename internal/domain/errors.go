package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that a referenced assessment or signal does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation reports a missing or malformed field on create or update.
	ErrValidation = errors.New("validation failed")
)

// NotFoundError wraps ErrNotFound with the record kind and id.
func NotFoundError(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// ValidationError wraps ErrValidation with the offending field and reason.
func ValidationError(field, reason string) error {
	return fmt.Errorf("%s %s: %w", field, reason, ErrValidation)
}
