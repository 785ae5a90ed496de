package hwrng

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rampantspark/gohwrng/internal/hwrng/hwrngtest"
)

func TestRead_LittleEndianWords(t *testing.T) {
	fake := &hwrngtest.Fake{Values: []uint64{0x0807060504030201, 0x100f0e0d0c0b0a09}}
	g := newGenerator(t, Config{Hardware: fake})

	buf := make([]byte, 13)
	n, err := g.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != len(buf) {
		t.Errorf("Read() n = %d, want %d", n, len(buf))
	}

	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}
	if diff := cmp.Diff(want, buf); diff != "" {
		t.Errorf("Read() bytes mismatch (-want +got):\n%s", diff)
	}
	if fake.Draws() != 2 {
		t.Errorf("Draws() = %d, want 2", fake.Draws())
	}
}

func TestRead_Empty(t *testing.T) {
	fake := &hwrngtest.Fake{}
	g := newGenerator(t, Config{Hardware: fake})

	n, err := g.Read(nil)
	if n != 0 || err != nil {
		t.Errorf("Read(nil) = %d, %v; want 0, nil", n, err)
	}
	if fake.Draws() != 0 {
		t.Errorf("Draws() = %d, want 0", fake.Draws())
	}
}

func TestRead_Unavailable(t *testing.T) {
	g := newGenerator(t, Config{Hardware: Unavailable})

	n, err := g.Read(make([]byte, 8))
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Read() error = %v, want ErrUnavailable", err)
	}
	if n != 0 {
		t.Errorf("Read() n = %d, want 0", n)
	}
}

func TestRead_WithCorrections(t *testing.T) {
	fake := &hwrngtest.Fake{FailEvery: 2}
	g := newGenerator(t, Config{Hardware: fake})

	buf := make([]byte, 64)
	if _, err := io.ReadFull(g, buf); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	if g.Corrections() != fake.Failures() {
		t.Errorf("Corrections() = %d, want %d", g.Corrections(), fake.Failures())
	}
	if g.Corrections() == 0 {
		t.Error("expected at least one correction with FailEvery = 2")
	}
}
