package bigio

import (
	"errors"
	"fmt"
)

// The engine recognizes three failure classes. Every mutating operation is
// atomic: a call either transitions state fully or returns one of these,
// leaving state unchanged.
var (
	// ErrContractViolation marks a nil argument, a nil element inside a
	// range, or a DefaultBlockSize/MaxBlockSize ordering violation.
	ErrContractViolation = errors.New("bigio: contract violation")

	// ErrOutOfRange marks a negative size, an index or sub-range outside
	// its accepted bounds, or a search window that does not contain the
	// requested global index.
	ErrOutOfRange = errors.New("bigio: out of range")

	// ErrInvariantViolation marks an internal bug: an algorithm reached a
	// state its preconditions say is unreachable.
	ErrInvariantViolation = errors.New("bigio: internal invariant violation")
)

func contractViolationf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrContractViolation)
}

func outOfRangef(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrOutOfRange)
}

func invariantViolationf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvariantViolation)
}
