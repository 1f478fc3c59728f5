package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchema matches any *SchemaError.
	ErrSchema = errors.New("schema error")
	// ErrEmptyInput matches any *EmptyInputError.
	ErrEmptyInput = errors.New("empty input")
	// ErrDimensionMismatch matches any *DimensionMismatchError.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrCorruptData matches any *CorruptDataError.
	ErrCorruptData = errors.New("corrupt data")
	// ErrInvalidValue matches any *ValueError.
	ErrInvalidValue = errors.New("invalid value")

	// ErrInvalidK is returned when a default neighbor count is not positive.
	ErrInvalidK = errors.New("k must be positive")
	// ErrTrackNotFound is returned when a catalog has no such track.
	ErrTrackNotFound = errors.New("track not found")
	// ErrNoIndex is returned when no trained index has been stored yet.
	ErrNoIndex = errors.New("no similarity index stored")
)

// SchemaError reports designated columns absent from the input header.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: missing columns %s", strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// EmptyInputError reports an index build from zero rows.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string {
	return "empty input: cannot build an index from zero rows"
}

func (e *EmptyInputError) Is(target error) bool { return target == ErrEmptyInput }

// DimensionMismatchError reports a vector of the wrong length.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }

// CorruptDataError reports a persisted index that cannot be restored.
//
// The underlying cause, if any, is available via errors.Unwrap.
type CorruptDataError struct {
	Reason string
	cause  error
}

// NewCorruptDataError wraps cause (may be nil) with a reason.
func NewCorruptDataError(reason string, cause error) *CorruptDataError {
	return &CorruptDataError{Reason: reason, cause: cause}
}

func (e *CorruptDataError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("corrupt data: %s: %v", e.Reason, e.cause)
	}
	return "corrupt data: " + e.Reason
}

func (e *CorruptDataError) Unwrap() error { return e.cause }

func (e *CorruptDataError) Is(target error) bool { return target == ErrCorruptData }

// ValueError reports a present cell that is not a finite number.
type ValueError struct {
	Record int
	Column string
	Value  string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid value %q in column %s of record %d", e.Value, e.Column, e.Record)
}

func (e *ValueError) Is(target error) bool { return target == ErrInvalidValue }
