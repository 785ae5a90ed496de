//go:build !amd64 || purego

package hwrng

// Platform returns the Hardware for the running processor. Only amd64 has
// an implementation; everything else reports no source.
func Platform() Hardware {
	return Unavailable
}
