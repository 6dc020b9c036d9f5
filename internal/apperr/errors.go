package apperr

import (
	"errors"
	"fmt"
)

// Sentinel classes the HTTP layer maps to status codes. Services wrap these
// with context via Wrap so errors.Is keeps working.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrValidation   = errors.New("invalid input")
)

func Wrap(class error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), class)
}
