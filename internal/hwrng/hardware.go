package hwrng

// Hardware abstracts the processor instructions the generator relies on.
//
// The platform implementation is returned by Platform. Tests substitute a
// fake (see the hwrngtest package) to simulate invalid draws.
type Hardware interface {
	// CanQuery reports whether the capability query instruction is
	// supported at all.
	CanQuery() bool

	// HasSecureRandom reports whether the capability query advertises the
	// secure random instruction. Only meaningful when CanQuery is true.
	HasSecureRandom() bool

	// Rand64 executes one draw. ok is false when the hardware signalled
	// that the returned word is not valid.
	Rand64() (v uint64, ok bool)
}

// Unavailable is a Hardware that never offers a random source. It can be
// used to run a Generator in unavailable mode on any platform.
var Unavailable Hardware = unavailable{}

type unavailable struct{}

func (unavailable) CanQuery() bool         { return false }
func (unavailable) HasSecureRandom() bool  { return false }
func (unavailable) Rand64() (uint64, bool) { return 0, false }
