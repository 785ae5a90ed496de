package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/rampantspark/gohwrng/internal/hwrng"
)

// streamBatch is how many words are drawn between context checks.
const streamBatch = 1024

// stream writes little-endian 32-bit words from gen to w until count words
// have been written (0 means no limit) or ctx is done.
func stream(ctx context.Context, gen *hwrng.Generator, w io.Writer, count uint64) error {
	if !gen.IsAvailable() {
		return hwrng.ErrUnavailable
	}

	bw := bufio.NewWriterSize(w, 4*streamBatch)
	buf := make([]byte, 0, 4*streamBatch)
	var written uint64

	for count == 0 || written < count {
		if ctx.Err() != nil {
			break
		}

		n := uint64(streamBatch)
		if count > 0 {
			n = min(n, count-written)
		}
		buf = buf[:0]
		for range n {
			v, _, err := gen.Random32()
			if err != nil {
				return errors.Join(
					fmt.Errorf("draw word %d: %w", written, err),
					bw.Flush(),
				)
			}
			buf = binary.LittleEndian.AppendUint32(buf, v)
			written++
		}
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("write stream: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write stream: %w", err)
	}
	return nil
}
