package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rampantspark/gohwrng/internal/hwrng"
	"github.com/rampantspark/gohwrng/internal/hwrng/hwrngtest"
)

func newTestDispatcher(t *testing.T, hw hwrng.Hardware, workers int) (*Dispatcher, *hwrng.Generator) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen, err := hwrng.New(hwrng.Config{Hardware: hw}, logger)
	if err != nil {
		t.Fatalf("hwrng.New() error = %v", err)
	}
	d := New(gen, workers, logger)
	t.Cleanup(d.Close)
	return d, gen
}

func TestNew_MinimumWorkers(t *testing.T) {
	d, _ := newTestDispatcher(t, &hwrngtest.Fake{}, 0)
	if d.Workers() != 1 {
		t.Errorf("Workers() = %d, want 1", d.Workers())
	}
}

func TestRandom32Async(t *testing.T) {
	d, _ := newTestDispatcher(t, &hwrngtest.Fake{Values: []uint64{0xabcdef0012345678}}, 4)

	done := make(chan struct{})
	var got uint32
	var gotErr error
	err := d.Random32Async(func(v uint32, err error) {
		got, gotErr = v, err
		close(done)
	})
	if err != nil {
		t.Fatalf("Random32Async() error = %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callback was not called")
	}
	if gotErr != nil {
		t.Errorf("callback error = %v", gotErr)
	}
	if got != 0x12345678 {
		t.Errorf("callback value = %#x, want 0x12345678", got)
	}
}

func TestRandomRange32Async(t *testing.T) {
	d, _ := newTestDispatcher(t, &hwrngtest.Fake{}, 4)

	const calls = 50
	var wg sync.WaitGroup
	wg.Add(calls)
	for i := 0; i < calls; i++ {
		lower := int32(i - 25)
		upper := lower + int32(i%10) + 1
		err := d.RandomRange32Async(lower, upper, func(l, u, v int32, err error) {
			defer wg.Done()
			if err != nil {
				t.Errorf("callback error = %v", err)
				return
			}
			if l != lower || u != upper {
				t.Errorf("callback bounds = (%d, %d), want (%d, %d)", l, u, lower, upper)
			}
			if v < l || v > u {
				t.Errorf("callback value %d out of [%d, %d]", v, l, u)
			}
		})
		if err != nil {
			t.Fatalf("RandomRange32Async() error = %v", err)
		}
	}
	wg.Wait()
}

func TestRandomRange32Async_InvalidRange(t *testing.T) {
	fake := &hwrngtest.Fake{}
	d, _ := newTestDispatcher(t, fake, 1)

	err := d.RandomRange32Async(10, 10, func(_, _, _ int32, _ error) {
		t.Error("callback should not be called")
	})
	if !errors.Is(err, hwrng.ErrInvalidRange) {
		t.Errorf("error = %v, want ErrInvalidRange", err)
	}
	d.Close()
	if fake.Draws() != 0 {
		t.Errorf("Draws() = %d, want 0", fake.Draws())
	}
}

func TestUnavailable(t *testing.T) {
	d, _ := newTestDispatcher(t, hwrng.Unavailable, 1)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"Random32Async", func() error { return d.Random32Async(func(uint32, error) {}) }},
		{"RandomRange32Async", func() error {
			return d.RandomRange32Async(1, 6, func(_, _, _ int32, _ error) {})
		}},
		{"Random32", func() error { _, _, err := d.Random32(ctx); return err }},
		{"Random64", func() error { _, _, err := d.Random64(ctx); return err }},
		{"RandomRange32", func() error { _, _, err := d.RandomRange32(ctx, 1, 6); return err }},
		{"Read", func() error { _, err := d.Read(ctx, 8); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, hwrng.ErrUnavailable) {
				t.Errorf("%s() error = %v, want ErrUnavailable", tt.name, err)
			}
		})
	}
}

func TestBlockingDraws(t *testing.T) {
	d, gen := newTestDispatcher(t, &hwrngtest.Fake{FailEvery: 5}, 2)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		v, _, err := d.RandomRange32(ctx, -3, 3)
		if err != nil {
			t.Fatalf("RandomRange32() error = %v", err)
		}
		if v < -3 || v > 3 {
			t.Fatalf("RandomRange32() = %d, out of range", v)
		}
		if _, _, err := d.Random64(ctx); err != nil {
			t.Fatalf("Random64() error = %v", err)
		}
	}

	b, err := d.Read(ctx, 21)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(b) != 21 {
		t.Errorf("Read() returned %d bytes, want 21", len(b))
	}
	if gen.Corrections() == 0 {
		t.Error("expected corrections with FailEvery = 5")
	}
}

func TestRead_NegativeCount(t *testing.T) {
	d, _ := newTestDispatcher(t, &hwrngtest.Fake{}, 1)
	if _, err := d.Read(context.Background(), -1); err == nil {
		t.Error("Read(-1) should fail")
	}
}

func TestCancelledContext(t *testing.T) {
	fake := &hwrngtest.Fake{}
	d, _ := newTestDispatcher(t, fake, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, _, err := d.Random32(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Random32() error = %v, want context.Canceled", err)
	}
	d.Close()
	if fake.Draws() != 0 {
		t.Errorf("Draws() = %d, want 0", fake.Draws())
	}
}

func TestClose(t *testing.T) {
	d, _ := newTestDispatcher(t, &hwrngtest.Fake{}, 2)

	var wg sync.WaitGroup
	const queued = 20
	wg.Add(queued)
	for i := 0; i < queued; i++ {
		if err := d.Random32Async(func(uint32, error) { wg.Done() }); err != nil {
			t.Fatalf("Random32Async() error = %v", err)
		}
	}

	d.Close()
	wg.Wait()
	if d.Pending() != 0 {
		t.Errorf("Pending() = %d after Close, want 0", d.Pending())
	}

	if err := d.Random32Async(func(uint32, error) {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Random32Async() after Close error = %v, want ErrStopped", err)
	}
	if _, _, err := d.Random32(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("Random32() after Close error = %v, want ErrStopped", err)
	}

	d.Close()
}

func TestConcurrentSubmitAndClose(t *testing.T) {
	d, _ := newTestDispatcher(t, &hwrngtest.Fake{}, 4)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_, _, err := d.Random32(context.Background())
				if err != nil && !errors.Is(err, ErrStopped) {
					t.Errorf("Random32() error = %v", err)
					return
				}
			}
		}()
	}

	time.Sleep(time.Millisecond)
	d.Close()
	wg.Wait()
}

func BenchmarkRandom32(b *testing.B) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen, _ := hwrng.New(hwrng.Config{Hardware: &hwrngtest.Fake{}}, logger)
	d := New(gen, 4, logger)
	defer d.Close()

	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Random32(ctx)
	}
}
