//go:build amd64 && !purego

package hwrng

import "golang.org/x/sys/cpu"

// idFlagToggles reports whether bit 21 of RFLAGS (the ID flag) can be
// flipped. The original flags are restored before returning.
func idFlagToggles() bool

// rdrand64 executes RDRAND once. ok mirrors the carry flag.
func rdrand64() (v uint64, ok bool)

type x86Hardware struct{}

func (x86Hardware) CanQuery() bool { return idFlagToggles() }

// HasSecureRandom reads CPUID leaf 1, ECX bit 30.
func (x86Hardware) HasSecureRandom() bool { return cpu.X86.HasRDRAND }

func (x86Hardware) Rand64() (uint64, bool) { return rdrand64() }

// Platform returns the Hardware for the running processor.
func Platform() Hardware {
	return x86Hardware{}
}
