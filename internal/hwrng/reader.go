package hwrng

import "encoding/binary"

// Read fills p with bytes taken from successive 64-bit hardware words in
// little-endian order. A trailing partial word uses its low bytes and the
// rest of that word is discarded.
//
// Unlike the word methods, Read cannot signal an unavailable source with a
// zero value, so it returns ErrUnavailable instead.
func (g *Generator) Read(p []byte) (int, error) {
	if g.closed.Load() {
		return 0, ErrClosed
	}
	if !g.IsAvailable() {
		return 0, ErrUnavailable
	}

	var buf [8]byte
	n := 0
	for n < len(p) {
		v, _, err := g.Random64()
		if err != nil {
			return n, err
		}
		binary.LittleEndian.PutUint64(buf[:], v)
		n += copy(p[n:], buf[:])
	}
	return n, nil
}
