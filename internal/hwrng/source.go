package hwrng

// SourceType identifies the random source selected by the capability probe.
type SourceType int

const (
	// SourceNone means no hardware source is available.
	SourceNone SourceType = iota
	// SourceHardwareSecure is the processor's secure random instruction.
	SourceHardwareSecure
)

// String returns the name used in logs and API responses.
func (s SourceType) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourceHardwareSecure:
		return "hardware-secure"
	default:
		return "unknown"
	}
}

// Probe runs the two-step capability check against hw.
//
// The capability query must itself be supported before its answer is
// consulted. Probe never blocks and never panics; the worst outcome is
// SourceNone.
func Probe(hw Hardware) SourceType {
	if hw == nil || !hw.CanQuery() {
		return SourceNone
	}
	if hw.HasSecureRandom() {
		return SourceHardwareSecure
	}
	return SourceNone
}
