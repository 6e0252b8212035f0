package recovery

import "errors"

var (
	// ErrInvalidArguments is returned when a threshold, share count, or
	// combination bound is malformed: k < 1, k > n, or negative sizes.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrDivisionByZero is returned when a rational operation divides by
	// zero. During interpolation this means two points share an x
	// coordinate.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrNotIntegral is returned when a rational value is reduced to an
	// integer but its denominator is not 1. For interpolation over a
	// candidate subset this is the expected signal that the subset is
	// internally inconsistent, not a caller mistake.
	ErrNotIntegral = errors.New("value is not an integer")

	// ErrNoConsistentSecret is returned when every enumerated combination
	// failed to produce an integer secret.
	ErrNoConsistentSecret = errors.New("no consistent secret found")

	// ErrResourceExceeded is returned when the combination budget was
	// consumed before enumeration completed.
	ErrResourceExceeded = errors.New("combination budget exceeded")

	// ErrTimeout is returned when the deadline passed before enumeration
	// completed.
	ErrTimeout = errors.New("deadline exceeded")
)
