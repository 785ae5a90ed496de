package hwrng

import "errors"

var (
	// ErrUnavailable is returned by operations that cannot express an
	// unavailable source as a zero value, such as Read.
	ErrUnavailable = errors.New("hardware random source unavailable")

	// ErrInvalidRange is returned when a range's lower bound is not
	// strictly less than its upper bound.
	ErrInvalidRange = errors.New("first argument must be less than second")

	// ErrRetryLimit is returned when a configured retry limit is reached
	// before the hardware produced a valid word.
	ErrRetryLimit = errors.New("hardware random source transiently unavailable")

	// ErrClosed is returned by a Generator after Close.
	ErrClosed = errors.New("generator closed")
)
