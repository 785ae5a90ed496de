package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rampantspark/gohwrng/internal/dispatch"
	"github.com/rampantspark/gohwrng/internal/hwrng"
	"github.com/rampantspark/gohwrng/internal/version"
)

const demoDraws = 10

type rangeDraw struct {
	lower, upper, value int32
	err                 error
}

// demo prints the version and availability, then synchronous draws, range
// draws with randomly chosen bounds and unbounded draws made on the
// dispatcher, and finally the correction count.
func demo(ctx context.Context, gen *hwrng.Generator, workers int, w io.Writer, logger *slog.Logger) error {
	fmt.Fprintf(w, "version: %s\n", version.String())
	fmt.Fprintf(w, "source: %s\n", sourceSummary(gen))
	if !gen.IsAvailable() {
		return hwrng.ErrUnavailable
	}

	fmt.Fprintln(w, "\nsynchronous draws:")
	for i := range demoDraws {
		v, _, err := gen.Random32()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %2d: %d\n", i, v)
	}

	disp := dispatch.New(gen, workers, logger)
	defer disp.Close()

	ranges := make([]rangeDraw, demoDraws)
	var wg sync.WaitGroup
	for i := range ranges {
		lower, _, err := gen.RandomRange32(-10, 10)
		if err != nil {
			return err
		}
		width, _, err := gen.RandomRange32(1, 10)
		if err != nil {
			return err
		}

		wg.Add(1)
		err = disp.RandomRange32Async(lower, lower+width, func(lower, upper, value int32, err error) {
			defer wg.Done()
			ranges[i] = rangeDraw{lower, upper, value, err}
		})
		if err != nil {
			wg.Done()
			return err
		}
	}

	words := make([]uint32, demoDraws)
	errs := make([]error, demoDraws)
	for i := range words {
		wg.Add(1)
		err := disp.Random32Async(func(v uint32, err error) {
			defer wg.Done()
			words[i], errs[i] = v, err
		})
		if err != nil {
			wg.Done()
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	fmt.Fprintln(w, "\nasynchronous range draws:")
	for i, r := range ranges {
		if r.err != nil {
			return r.err
		}
		fmt.Fprintf(w, "  %2d: [%d, %d] -> %d\n", i, r.lower, r.upper, r.value)
	}

	fmt.Fprintln(w, "\nasynchronous draws:")
	for i, v := range words {
		if errs[i] != nil {
			return errs[i]
		}
		fmt.Fprintf(w, "  %2d: %d\n", i, v)
	}

	fmt.Fprintf(w, "\ncorrections: %d\n", gen.Corrections())
	return nil
}
