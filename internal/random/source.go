// Package random derives integers and strings from the hardware generator.
package random

import (
	"fmt"
	"math"

	"github.com/rampantspark/gohwrng/internal/hwrng"
)

// RangeDrawer is the part of hwrng.Generator that Source needs.
type RangeDrawer interface {
	IsAvailable() bool
	RandomRange32(lower, upper int32) (int32, bool, error)
}

// Source builds indices and strings from hardware range draws. It holds no
// state of its own besides the character set and is safe for concurrent use.
type Source struct {
	gen   RangeDrawer
	chars []rune
}

// NewSource creates a new random source with the given character set.
//
// Parameters:
//   - charSet: the character set to use for string generation
//   - gen: the hardware generator every value is drawn from
//
// Returns a new Source instance.
func NewSource(charSet string, gen RangeDrawer) *Source {
	return &Source{
		gen:   gen,
		chars: []rune(charSet),
	}
}

// Intn returns a random integer in [0, n).
//
// Parameters:
//   - n: the upper bound (exclusive)
//
// Returns hwrng.ErrUnavailable when there is no hardware source. It panics
// if n <= 0.
func (s *Source) Intn(n int) (int, error) {
	if n <= 0 {
		panic("invalid argument to Intn")
	}
	return s.RandomInt(0, n-1)
}

// RandomInt returns a random integer in the inclusive range [min, max].
//
// Both bounds must fit in an int32. When min == max no draw is made.
//
// Parameters:
//   - min: the minimum value (inclusive)
//   - max: the maximum value (inclusive)
//
// Returns a random integer between min and max, inclusive.
func (s *Source) RandomInt(min, max int) (int, error) {
	if min > max {
		return 0, fmt.Errorf("%w: min %d, max %d", hwrng.ErrInvalidRange, min, max)
	}
	if min < math.MinInt32 || max > math.MaxInt32 {
		return 0, fmt.Errorf("range [%d, %d] exceeds 32 bits", min, max)
	}
	if !s.gen.IsAvailable() {
		return 0, hwrng.ErrUnavailable
	}
	if min == max {
		return min, nil
	}

	v, _, err := s.gen.RandomRange32(int32(min), int32(max))
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// RandString generates a random string of the specified length.
//
// The string is composed of characters randomly selected from the configured
// character set, one hardware draw per character.
//
// Parameters:
//   - length: the desired length of the generated string
//
// Returns a random string of the specified length.
func (s *Source) RandString(length int) (string, error) {
	if length < 0 {
		return "", fmt.Errorf("invalid length: %d", length)
	}
	if len(s.chars) == 0 {
		return "", fmt.Errorf("empty character set")
	}
	b := make([]rune, length)
	for i := range b {
		idx, err := s.Intn(len(s.chars))
		if err != nil {
			return "", err
		}
		b[i] = s.chars[idx]
	}
	return string(b), nil
}
