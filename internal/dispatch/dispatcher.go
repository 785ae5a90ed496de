// Package dispatch runs generator draws on a bounded pool of worker
// goroutines so callers can receive results through callbacks or wait on
// them with a context.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gammazero/workerpool"
	"github.com/rampantspark/gohwrng/internal/hwrng"
)

// ErrStopped is returned for work submitted after Close.
var ErrStopped = errors.New("dispatcher stopped")

// Dispatcher queues draws against a shared Generator.
type Dispatcher struct {
	gen     *hwrng.Generator
	pool    *workerpool.WorkerPool
	workers int
	logger  *slog.Logger

	mu      sync.RWMutex
	stopped bool
}

// New creates a Dispatcher with the given number of workers.
//
// Parameters:
//   - gen: generator shared by all workers
//   - workers: maximum concurrent draws; values below 1 are raised to 1
//   - logger: structured logger instance
func New(gen *hwrng.Generator, workers int, logger *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("Dispatcher started", "workers", workers)
	return &Dispatcher{
		gen:     gen,
		pool:    workerpool.New(workers),
		workers: workers,
		logger:  logger,
	}
}

// Workers returns the size of the pool.
func (d *Dispatcher) Workers() int {
	return d.workers
}

// Pending returns the number of queued tasks not yet picked up by a worker.
func (d *Dispatcher) Pending() int {
	return d.pool.WaitingQueueSize()
}

// submit queues task unless the dispatcher has been stopped. The read lock
// keeps Close from stopping the pool while a submission is in flight.
func (d *Dispatcher) submit(task func()) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}
	d.pool.Submit(task)
	return nil
}

func (d *Dispatcher) checkAvailable() error {
	if !d.gen.IsAvailable() {
		return hwrng.ErrUnavailable
	}
	return nil
}

// Random32Async queues a 32-bit draw and delivers it to cb from a worker
// goroutine. Errors returned directly mean cb will never be called.
func (d *Dispatcher) Random32Async(cb func(value uint32, err error)) error {
	if err := d.checkAvailable(); err != nil {
		return err
	}
	return d.submit(func() {
		v, _, err := d.gen.Random32()
		cb(v, err)
	})
}

// RandomRange32Async queues a range draw and delivers the bounds together
// with the result to cb. The bounds are validated before anything is queued.
func (d *Dispatcher) RandomRange32Async(lower, upper int32, cb func(lower, upper, value int32, err error)) error {
	if lower >= upper {
		return fmt.Errorf("%w: lower %d, upper %d", hwrng.ErrInvalidRange, lower, upper)
	}
	if err := d.checkAvailable(); err != nil {
		return err
	}
	return d.submit(func() {
		v, _, err := d.gen.RandomRange32(lower, upper)
		cb(lower, upper, v, err)
	})
}

type result[T any] struct {
	value     T
	corrected bool
	err       error
}

// wait runs fn on the pool and blocks until it finishes or ctx is done.
// A cancelled caller does not cancel the queued draw; its result is
// discarded.
func wait[T any](ctx context.Context, d *Dispatcher, fn func() (T, bool, error)) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}

	ch := make(chan result[T], 1)
	err := d.submit(func() {
		v, corrected, err := fn()
		ch <- result[T]{v, corrected, err}
	})
	if err != nil {
		return zero, false, err
	}

	select {
	case r := <-ch:
		return r.value, r.corrected, r.err
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

// Random32 draws a 32-bit word on the pool.
func (d *Dispatcher) Random32(ctx context.Context) (uint32, bool, error) {
	if err := d.checkAvailable(); err != nil {
		return 0, false, err
	}
	return wait(ctx, d, d.gen.Random32)
}

// Random64 draws a 64-bit word on the pool.
func (d *Dispatcher) Random64(ctx context.Context) (uint64, bool, error) {
	if err := d.checkAvailable(); err != nil {
		return 0, false, err
	}
	return wait(ctx, d, d.gen.Random64)
}

// RandomRange32 draws an integer in [lower, upper] on the pool.
func (d *Dispatcher) RandomRange32(ctx context.Context, lower, upper int32) (int32, bool, error) {
	if lower >= upper {
		return 0, false, fmt.Errorf("%w: lower %d, upper %d", hwrng.ErrInvalidRange, lower, upper)
	}
	if err := d.checkAvailable(); err != nil {
		return 0, false, err
	}
	return wait(ctx, d, func() (int32, bool, error) {
		return d.gen.RandomRange32(lower, upper)
	})
}

// Read draws n random bytes on the pool.
func (d *Dispatcher) Read(ctx context.Context, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("invalid byte count: %d", n)
	}
	if err := d.checkAvailable(); err != nil {
		return nil, err
	}
	b, _, err := wait(ctx, d, func() ([]byte, bool, error) {
		buf := make([]byte, n)
		_, err := d.gen.Read(buf)
		if err != nil {
			return nil, false, err
		}
		return buf, false, nil
	})
	return b, err
}

// Close stops accepting work, waits for queued tasks to finish and stops
// the workers. It is safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()

	d.pool.StopWait()
	d.logger.Debug("Dispatcher stopped")
}
