package wager

import (
	"errors"
	"fmt"
)

// Reasons wrapped by InputFormatError
var (
	ErrMissingField = errors.New("missing value")
	ErrNotNumeric   = errors.New("not a number")
	ErrNotInteger   = errors.New("not an integer")
	ErrNegative     = errors.New("negative value")
	ErrOutOfRange   = errors.New("value out of range")
	ErrInvertedBand = errors.New("priceMin above priceMax")
	ErrNotRecord    = errors.New("record is not an object")
)

// InputFormatError reports a malformed or missing numeric field in an input
// record. Field is empty when the record as a whole is malformed.
type InputFormatError struct {
	Index int
	Field string
	Value string
	Err   error
}

func (e *InputFormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("wager %d: %v", e.Index, e.Err)
	}
	if e.Value == "" {
		return fmt.Sprintf("wager %d: field %s: %v", e.Index, e.Field, e.Err)
	}
	return fmt.Sprintf("wager %d: field %s: %q: %v", e.Index, e.Field, e.Value, e.Err)
}

func (e *InputFormatError) Unwrap() error {
	return e.Err
}

// InvalidConfigurationError reports a planner setting that cannot be used
type InvalidConfigurationError struct {
	Setting string
	Value   string
	Reason  string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Setting, e.Value, e.Reason)
}
