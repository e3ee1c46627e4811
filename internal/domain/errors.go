package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoSession       = errors.New("no active session")
	ErrStaleStep       = errors.New("stale session step")
	ErrUnknownSurvey   = errors.New("unknown survey type")
	ErrMalformedRecord = errors.New("malformed record")
)

type ValidationReason string

const (
	ReasonNotANumber    ValidationReason = "not_a_number"
	ReasonOutOfRange    ValidationReason = "out_of_range"
	ReasonInvalidBinary ValidationReason = "invalid_binary"
)

// ValidationError rejects a raw answer. Its message is shown to the user.
type ValidationError struct {
	Reason ValidationReason
	Min    int
	Max    int
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonOutOfRange:
		return fmt.Sprintf("Enter a number from %d to %d.", e.Min, e.Max)
	case ReasonInvalidBinary:
		return "Enter 0 (no) or 1 (yes)."
	default:
		return "Please enter a number."
	}
}
