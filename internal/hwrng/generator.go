package hwrng

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Config holds Generator settings.
type Config struct {
	// Hardware overrides the platform implementation. Nil selects Platform().
	Hardware Hardware

	// RetryLimit caps the number of consecutive invalid draws tolerated
	// within one call. Zero retries until the hardware succeeds.
	RetryLimit int

	// UniformRange replaces modulo scaling in RandomRange32 with rejection
	// sampling. The output sequence differs from the default mode and a
	// call may consume more than one hardware word.
	UniformRange bool
}

// Validate reports whether the configuration is usable.
func (c *Config) Validate() error {
	if c.RetryLimit < 0 {
		return fmt.Errorf("invalid retry limit: %d (must be zero or positive)", c.RetryLimit)
	}
	return nil
}

// Generator draws random words from the hardware source.
//
// The source type is decided once in New and never changes. The
// corrections counter only ever grows, by one per invalid hardware draw.
type Generator struct {
	hw          Hardware
	source      SourceType
	retryLimit  int
	uniform     bool
	corrections atomic.Uint64
	closed      atomic.Bool
	logger      *slog.Logger
}

// New probes the hardware and returns a ready Generator.
//
// Parameters:
//   - cfg: generator settings; a zero Config uses the platform hardware
//     with unbounded retries and modulo range scaling
//   - logger: structured logger instance
//
// Returns an error only if cfg is invalid.
func New(cfg Config, logger *slog.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	hw := cfg.Hardware
	if hw == nil {
		hw = Platform()
	}

	g := &Generator{
		hw:         hw,
		source:     Probe(hw),
		retryLimit: cfg.RetryLimit,
		uniform:    cfg.UniformRange,
		logger:     logger,
	}

	logger.Debug("Hardware random source probed",
		"source", g.source.String(),
		"retry_limit", g.retryLimit,
		"uniform_range", g.uniform)
	return g, nil
}

// IsAvailable reports whether a hardware source was found. The answer is
// fixed for the lifetime of the Generator.
func (g *Generator) IsAvailable() bool {
	return g.source != SourceNone
}

// Source returns the probed source type.
func (g *Generator) Source() SourceType {
	return g.source
}

// Corrections returns the number of invalid hardware draws seen so far.
func (g *Generator) Corrections() uint64 {
	return g.corrections.Load()
}

// UniformRange reports whether RandomRange32 uses rejection sampling.
func (g *Generator) UniformRange() bool {
	return g.uniform
}

// Random64 returns a 64-bit word from the hardware.
//
// corrected is true when at least one draw had to be retried during this
// call. When no source is available it returns 0, false and a nil error
// without touching the hardware.
func (g *Generator) Random64() (v uint64, corrected bool, err error) {
	if g.closed.Load() {
		return 0, false, ErrClosed
	}
	if g.source == SourceNone {
		return 0, false, nil
	}

	for failures := 0; ; {
		w, ok := g.hw.Rand64()
		if ok {
			return w, corrected, nil
		}
		g.corrections.Add(1)
		corrected = true
		failures++
		if g.retryLimit > 0 && failures >= g.retryLimit {
			g.logger.Warn("Hardware random retry limit reached", "failures", failures)
			return 0, true, ErrRetryLimit
		}
	}
}

// Random32 returns the low 32 bits of a fresh 64-bit draw. The high half is
// discarded rather than saved for a later call.
func (g *Generator) Random32() (uint32, bool, error) {
	v, corrected, err := g.Random64()
	if err != nil {
		return 0, corrected, err
	}
	return uint32(v), corrected, nil
}

// RandomRange32 returns a random integer in the inclusive range
// [lower, upper].
//
// By default the result is lower + word mod width, where width is the
// number of integers in the range. Modulo scaling is slightly biased toward
// low offsets whenever width does not divide 2^32; set
// Config.UniformRange to remove the bias.
//
// Returns ErrInvalidRange if lower >= upper, and 0 with a nil error if no
// hardware source is available.
func (g *Generator) RandomRange32(lower, upper int32) (int32, bool, error) {
	if lower >= upper {
		return 0, false, fmt.Errorf("%w: lower %d, upper %d", ErrInvalidRange, lower, upper)
	}
	if g.closed.Load() {
		return 0, false, ErrClosed
	}
	if g.source == SourceNone {
		return 0, false, nil
	}

	width := rangeWidth(lower, upper)

	var (
		offset    uint64
		corrected bool
		err       error
	)
	if g.uniform {
		offset, corrected, err = g.uniformOffset(width)
	} else {
		var word uint32
		word, corrected, err = g.Random32()
		offset = uint64(word) % width
	}
	if err != nil {
		return 0, corrected, err
	}
	return int32(int64(lower) + int64(offset)), corrected, nil
}

// rangeWidth returns |upper - lower| + 1 computed in 64 bits, so the full
// int32 span yields exactly 2^32.
func rangeWidth(lower, upper int32) uint64 {
	diff := int64(upper) - int64(lower)
	if diff < 0 {
		diff = -diff
	}
	return uint64(diff) + 1
}

// uniformOffset returns an unbiased value in [0, width) using Lemire's
// multiply-and-reject method on 32-bit words. width must be in [1, 2^32].
func (g *Generator) uniformOffset(width uint64) (uint64, bool, error) {
	word, corrected, err := g.Random32()
	if err != nil {
		return 0, corrected, err
	}
	if width == 1<<32 {
		return uint64(word), corrected, nil
	}

	n := uint32(width)
	if n&(n-1) == 0 { // power of two, can mask
		return uint64(word & (n - 1)), corrected, nil
	}

	prod := uint64(word) * uint64(n)
	low := uint32(prod)
	if low < n {
		thresh := -n % n
		for low < thresh {
			var c bool
			word, c, err = g.Random32()
			corrected = corrected || c
			if err != nil {
				return 0, corrected, err
			}
			prod = uint64(word) * uint64(n)
			low = uint32(prod)
		}
	}
	return prod >> 32, corrected, nil
}

// Close marks the Generator as finished. Later draws return ErrClosed.
// Close is safe to call more than once.
func (g *Generator) Close() error {
	if g.closed.Swap(true) {
		return nil
	}
	g.logger.Debug("Hardware random generator closed",
		"source", g.source.String(),
		"corrections", g.Corrections())
	return nil
}
