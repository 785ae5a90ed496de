package hwrng

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/rampantspark/gohwrng/internal/hwrng/hwrngtest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGenerator(t testing.TB, cfg Config) *Generator {
	t.Helper()
	g, err := New(cfg, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return g
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name string
		hw   Hardware
		want SourceType
	}{
		{"nil hardware", nil, SourceNone},
		{"unavailable stub", Unavailable, SourceNone},
		{"query unsupported", &hwrngtest.Fake{QueryUnsupported: true}, SourceNone},
		{"query unsupported hides capability bit", &hwrngtest.Fake{QueryUnsupported: true, NoSecureRandom: false}, SourceNone},
		{"no secure random", &hwrngtest.Fake{NoSecureRandom: true}, SourceNone},
		{"secure random", &hwrngtest.Fake{}, SourceHardwareSecure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Probe(tt.hw); got != tt.want {
				t.Errorf("Probe() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSourceTypeString(t *testing.T) {
	tests := []struct {
		source SourceType
		want   string
	}{
		{SourceNone, "none"},
		{SourceHardwareSecure, "hardware-secure"},
		{SourceType(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.source.String(); got != tt.want {
			t.Errorf("SourceType(%d).String() = %q, want %q", int(tt.source), got, tt.want)
		}
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(Config{Hardware: &hwrngtest.Fake{}, RetryLimit: -1}, discardLogger())
	if err == nil {
		t.Fatal("New() with negative retry limit should fail")
	}
}

func TestNew_NilLogger(t *testing.T) {
	g, err := New(Config{Hardware: &hwrngtest.Fake{}}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !g.IsAvailable() {
		t.Error("IsAvailable() = false, want true")
	}
}

func TestUnavailableReturnsZero(t *testing.T) {
	fake := &hwrngtest.Fake{NoSecureRandom: true}
	g := newGenerator(t, Config{Hardware: fake})

	if g.IsAvailable() {
		t.Fatal("IsAvailable() = true, want false")
	}
	if g.Source() != SourceNone {
		t.Errorf("Source() = %v, want %v", g.Source(), SourceNone)
	}

	for i := 0; i < 100; i++ {
		if v, corrected, err := g.Random64(); v != 0 || corrected || err != nil {
			t.Fatalf("Random64() = %d, %v, %v; want 0, false, nil", v, corrected, err)
		}
		if v, corrected, err := g.Random32(); v != 0 || corrected || err != nil {
			t.Fatalf("Random32() = %d, %v, %v; want 0, false, nil", v, corrected, err)
		}
		if v, corrected, err := g.RandomRange32(-5, 5); v != 0 || corrected || err != nil {
			t.Fatalf("RandomRange32() = %d, %v, %v; want 0, false, nil", v, corrected, err)
		}
	}

	if fake.Draws() != 0 {
		t.Errorf("hardware was drawn %d times, want 0", fake.Draws())
	}
	if g.Corrections() != 0 {
		t.Errorf("Corrections() = %d, want 0", g.Corrections())
	}
}

func TestRandom64_Corrections(t *testing.T) {
	fake := &hwrngtest.Fake{FailFirst: 3, Values: []uint64{0xdeadbeefcafef00d}}
	g := newGenerator(t, Config{Hardware: fake})

	v, corrected, err := g.Random64()
	if err != nil {
		t.Fatalf("Random64() error = %v", err)
	}
	if v != 0xdeadbeefcafef00d {
		t.Errorf("Random64() = %#x, want %#x", v, uint64(0xdeadbeefcafef00d))
	}
	if !corrected {
		t.Error("first call should report a correction")
	}
	if g.Corrections() != 3 {
		t.Errorf("Corrections() = %d, want 3", g.Corrections())
	}

	_, corrected, err = g.Random64()
	if err != nil {
		t.Fatalf("Random64() error = %v", err)
	}
	if corrected {
		t.Error("second call should not report a correction")
	}
	if g.Corrections() != 3 {
		t.Errorf("Corrections() = %d, want 3", g.Corrections())
	}
}

func TestRandom32_LowWordWithoutReuse(t *testing.T) {
	fake := &hwrngtest.Fake{Values: []uint64{0x1111111122222222, 0x3333333344444444}}
	g := newGenerator(t, Config{Hardware: fake})

	want := []uint32{0x22222222, 0x44444444}
	for i, w := range want {
		got, _, err := g.Random32()
		if err != nil {
			t.Fatalf("Random32() error = %v", err)
		}
		if got != w {
			t.Errorf("Random32() call %d = %#x, want %#x", i, got, w)
		}
	}
	if fake.Draws() != 2 {
		t.Errorf("Draws() = %d, want 2 (one hardware word per call)", fake.Draws())
	}
}

func TestRandom32_ForwardsCorrectionFlag(t *testing.T) {
	g := newGenerator(t, Config{Hardware: &hwrngtest.Fake{FailFirst: 1}})

	_, corrected, err := g.Random32()
	if err != nil {
		t.Fatalf("Random32() error = %v", err)
	}
	if !corrected {
		t.Error("Random32() should forward the correction flag")
	}
}

func TestRandomRange32_ModuloScaling(t *testing.T) {
	tests := []struct {
		name  string
		word  uint64
		lower int32
		upper int32
		want  int32
	}{
		{"offset from low word only", 0xffffffff00000064, 10, 20, 10 + 100%11},
		{"negative lower bound", 7, -5, 5, -5 + 7},
		{"wraps at width", 11, -5, 5, -5},
		{"full int32 span", 0x80000000, math.MinInt32, math.MaxInt32, 0},
		{"max word full span", 0xffffffff, math.MinInt32, math.MaxInt32, math.MaxInt32},
		{"two element range", 3, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGenerator(t, Config{Hardware: &hwrngtest.Fake{Values: []uint64{tt.word}}})
			got, _, err := g.RandomRange32(tt.lower, tt.upper)
			if err != nil {
				t.Fatalf("RandomRange32() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RandomRange32(%d, %d) = %d, want %d", tt.lower, tt.upper, got, tt.want)
			}
		})
	}
}

func TestRandomRange32_StaysInBounds(t *testing.T) {
	ranges := []struct {
		name  string
		lower int32
		upper int32
	}{
		{"small symmetric", -5, 5},
		{"two values", 0, 1},
		{"dice", 1, 6},
		{"large", 1, 1000000},
		{"full span", math.MinInt32, math.MaxInt32},
		{"top edge", math.MaxInt32 - 1, math.MaxInt32},
		{"bottom edge", math.MinInt32, math.MinInt32 + 1},
		{"power of two width", 0, 255},
	}

	for _, uniform := range []bool{false, true} {
		for _, tt := range ranges {
			name := tt.name
			if uniform {
				name += " uniform"
			}
			t.Run(name, func(t *testing.T) {
				g := newGenerator(t, Config{
					Hardware:     &hwrngtest.Fake{FailEvery: 13},
					UniformRange: uniform,
				})
				for i := 0; i < 10000; i++ {
					got, _, err := g.RandomRange32(tt.lower, tt.upper)
					if err != nil {
						t.Fatalf("RandomRange32() error = %v", err)
					}
					if got < tt.lower || got > tt.upper {
						t.Fatalf("RandomRange32(%d, %d) = %d, out of range", tt.lower, tt.upper, got)
					}
				}
			})
		}
	}
}

func TestRandomRange32_CoversSmallRange(t *testing.T) {
	g := newGenerator(t, Config{Hardware: &hwrngtest.Fake{}})

	seen := make(map[int32]bool)
	for i := 0; i < 5000; i++ {
		v, _, err := g.RandomRange32(-5, 5)
		if err != nil {
			t.Fatalf("RandomRange32() error = %v", err)
		}
		seen[v] = true
	}
	for v := int32(-5); v <= 5; v++ {
		if !seen[v] {
			t.Errorf("value %d never produced in 5000 draws", v)
		}
	}
}

func TestRandomRange32_InvalidRange(t *testing.T) {
	tests := []struct {
		name  string
		lower int32
		upper int32
	}{
		{"equal bounds", 10, 10},
		{"reversed bounds", 5, -5},
		{"extremes reversed", math.MaxInt32, math.MinInt32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &hwrngtest.Fake{}
			g := newGenerator(t, Config{Hardware: fake})

			got, _, err := g.RandomRange32(tt.lower, tt.upper)
			if !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("RandomRange32(%d, %d) error = %v, want ErrInvalidRange", tt.lower, tt.upper, err)
			}
			if got != 0 {
				t.Errorf("RandomRange32() = %d, want 0", got)
			}
			if fake.Draws() != 0 {
				t.Errorf("Draws() = %d, want 0", fake.Draws())
			}
		})
	}
}

func TestRandomRange32_InvalidRangeWhenUnavailable(t *testing.T) {
	g := newGenerator(t, Config{Hardware: Unavailable})

	got, _, err := g.RandomRange32(10, 10)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("error = %v, want ErrInvalidRange", err)
	}
	if got != 0 {
		t.Errorf("RandomRange32() = %d, want 0", got)
	}
}

func TestRandomRange32_UniformRejectsBiasedWord(t *testing.T) {
	// For width 3 the rejection threshold is 2^32 mod 3 == 1, so a zero
	// word is rejected and the next word is used instead.
	fake := &hwrngtest.Fake{Values: []uint64{0, 5}}
	g := newGenerator(t, Config{Hardware: fake, UniformRange: true})

	got, _, err := g.RandomRange32(0, 2)
	if err != nil {
		t.Fatalf("RandomRange32() error = %v", err)
	}
	if got != 0 {
		t.Errorf("RandomRange32() = %d, want 0", got)
	}
	if fake.Draws() != 2 {
		t.Errorf("Draws() = %d, want 2", fake.Draws())
	}
	if !g.UniformRange() {
		t.Error("UniformRange() = false, want true")
	}
}

func TestRetryLimit(t *testing.T) {
	fake := &hwrngtest.Fake{FailEvery: 1}
	g := newGenerator(t, Config{Hardware: fake, RetryLimit: 4})

	v, corrected, err := g.Random64()
	if !errors.Is(err, ErrRetryLimit) {
		t.Fatalf("Random64() error = %v, want ErrRetryLimit", err)
	}
	if v != 0 || !corrected {
		t.Errorf("Random64() = %d, %v; want 0, true", v, corrected)
	}
	if g.Corrections() != 4 {
		t.Errorf("Corrections() = %d, want 4", g.Corrections())
	}

	if _, _, err := g.RandomRange32(1, 6); !errors.Is(err, ErrRetryLimit) {
		t.Errorf("RandomRange32() error = %v, want ErrRetryLimit", err)
	}
	if _, err := g.Read(make([]byte, 4)); !errors.Is(err, ErrRetryLimit) {
		t.Errorf("Read() error = %v, want ErrRetryLimit", err)
	}
	if g.Corrections() != 12 {
		t.Errorf("Corrections() = %d, want 12", g.Corrections())
	}
}

func TestConcurrentCorrections(t *testing.T) {
	fake := &hwrngtest.Fake{FailEvery: 7}
	g := newGenerator(t, Config{Hardware: fake})

	const goroutines = 16
	const iterations = 1000

	var wg sync.WaitGroup
	stop := make(chan struct{})
	monotonic := make(chan bool, 1)

	go func() {
		var last uint64
		ok := true
		for {
			select {
			case <-stop:
				monotonic <- ok
				return
			default:
			}
			c := g.Corrections()
			if c < last {
				ok = false
			}
			last = c
		}
	}()

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				if _, _, err := g.Random32(); err != nil {
					t.Errorf("Random32() error = %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(stop)

	if !<-monotonic {
		t.Error("Corrections() decreased while being read concurrently")
	}
	if got, want := g.Corrections(), fake.Failures(); got != want {
		t.Errorf("Corrections() = %d, want %d (failures observed by hardware)", got, want)
	}
	if fake.Draws()-fake.Failures() != goroutines*iterations {
		t.Errorf("successful draws = %d, want %d", fake.Draws()-fake.Failures(), goroutines*iterations)
	}
}

func TestIsAvailableStable(t *testing.T) {
	g := newGenerator(t, Config{Hardware: &hwrngtest.Fake{FailEvery: 3}})

	const goroutines = 8
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if !g.IsAvailable() {
					t.Error("IsAvailable() changed to false")
					return
				}
				g.Random64()
			}
		}()
	}
	wg.Wait()
}

func TestClose(t *testing.T) {
	g := newGenerator(t, Config{Hardware: &hwrngtest.Fake{}})

	if err := g.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := g.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if _, _, err := g.Random64(); !errors.Is(err, ErrClosed) {
		t.Errorf("Random64() after Close error = %v, want ErrClosed", err)
	}
	if _, _, err := g.RandomRange32(1, 2); !errors.Is(err, ErrClosed) {
		t.Errorf("RandomRange32() after Close error = %v, want ErrClosed", err)
	}
	if _, err := g.Read(make([]byte, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Read() after Close error = %v, want ErrClosed", err)
	}
	if !g.IsAvailable() {
		t.Error("IsAvailable() should not change after Close")
	}
}

func TestPlatformHardware(t *testing.T) {
	g := newGenerator(t, Config{})
	if !g.IsAvailable() {
		t.Skip("no hardware random source on this machine")
	}

	first, _, err := g.Random64()
	if err != nil {
		t.Fatalf("Random64() error = %v", err)
	}
	distinct := false
	for i := 0; i < 100; i++ {
		v, _, err := g.Random64()
		if err != nil {
			t.Fatalf("Random64() error = %v", err)
		}
		if v != first {
			distinct = true
		}
	}
	if !distinct {
		t.Error("101 hardware draws returned the same word")
	}
}

func BenchmarkRandom64(b *testing.B) {
	g := newGenerator(b, Config{Hardware: &hwrngtest.Fake{}})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.Random64()
	}
}

func BenchmarkRandomRange32(b *testing.B) {
	g := newGenerator(b, Config{Hardware: &hwrngtest.Fake{}})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.RandomRange32(1, 100)
	}
}

func BenchmarkRandomRange32Uniform(b *testing.B) {
	g := newGenerator(b, Config{Hardware: &hwrngtest.Fake{}, UniformRange: true})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.RandomRange32(1, 100)
	}
}

func BenchmarkPlatformRandom64(b *testing.B) {
	g := newGenerator(b, Config{})
	if !g.IsAvailable() {
		b.Skip("no hardware random source on this machine")
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			g.Random64()
		}
	})
}
