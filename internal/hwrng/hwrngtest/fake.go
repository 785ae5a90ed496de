// Package hwrngtest provides a scripted stand-in for the hardware random
// instruction.
package hwrngtest

import "sync/atomic"

// Fake is a deterministic hwrng.Hardware. It is safe for concurrent use.
//
// A draw fails when it is among the first FailFirst draws, or when its
// 1-based sequence number is a multiple of FailEvery. FailEvery == 1 makes
// every draw fail, which only terminates with a retry limit configured.
type Fake struct {
	// QueryUnsupported makes CanQuery report false.
	QueryUnsupported bool
	// NoSecureRandom makes HasSecureRandom report false.
	NoSecureRandom bool

	FailFirst uint64
	FailEvery uint64

	// Values, when set, are returned in order by successful draws and
	// wrap around. Otherwise successful draws return a splitmix64 sequence.
	Values []uint64

	draws     atomic.Uint64
	successes atomic.Uint64
	failures  atomic.Uint64
}

// CanQuery implements hwrng.Hardware.
func (f *Fake) CanQuery() bool { return !f.QueryUnsupported }

// HasSecureRandom implements hwrng.Hardware.
func (f *Fake) HasSecureRandom() bool { return !f.NoSecureRandom }

// Rand64 implements hwrng.Hardware.
func (f *Fake) Rand64() (uint64, bool) {
	n := f.draws.Add(1)
	if n <= f.FailFirst || (f.FailEvery > 0 && n%f.FailEvery == 0) {
		f.failures.Add(1)
		return 0, false
	}

	s := f.successes.Add(1)
	if len(f.Values) > 0 {
		return f.Values[(s-1)%uint64(len(f.Values))], true
	}
	return splitmix64(s), true
}

// Draws returns the number of Rand64 calls.
func (f *Fake) Draws() uint64 { return f.draws.Load() }

// Failures returns the number of draws reported invalid.
func (f *Fake) Failures() uint64 { return f.failures.Load() }

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
