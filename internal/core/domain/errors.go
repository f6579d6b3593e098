package domain

import (
	"errors"
	"fmt"
)

var (
	ErrComplaintNotFound = errors.New("complaint not found")
	ErrAlreadyClosed     = errors.New("complaint already closed")
	ErrInvalidInput      = errors.New("invalid input")
	ErrPersistence       = errors.New("persistence failure")
	ErrTemporary         = errors.New("temporary failure")

	// Absorbed inside their components; never returned to API callers.
	ErrClassificationUnavailable = errors.New("classification unavailable")
	ErrGeolocationUnavailable    = errors.New("geolocation unavailable")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
