package model

import "fmt"

// ValidationError rejects a create or edit before any state change.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Reason)
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedRecurrenceError aborts the expansion of one seed; other seeds
// in a batch are unaffected.
type UnsupportedRecurrenceError struct {
	Frequency Frequency
}

func (e *UnsupportedRecurrenceError) Error() string {
	return fmt.Sprintf("unsupported recurrence frequency %q", e.Frequency)
}
