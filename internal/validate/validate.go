// Package validate defines the error returned when caller input is malformed
// or a required field is missing. These errors are always surfaced to the
// caller and never defaulted away.
package validate

import (
	"errors"
	"fmt"
)

// Error reports a single invalid input field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Errorf builds an *Error for field with a formatted reason.
func Errorf(field, format string, args ...any) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Is reports whether err (or anything it wraps) is a validation error.
func Is(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

// As extracts the first validation error in err's chain.
func As(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// IntRange checks lo <= v <= hi.
func IntRange(field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return Errorf(field, "%d out of range (must be %d..%d)", v, lo, hi)
	}
	return nil
}
