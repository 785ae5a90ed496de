// Command gohwrng serves the processor's hardware random number generator.
//
// By default it runs an HTTP API with an admin dashboard. -stream writes raw
// random words to stdout and -demo prints a short tour of the generator.
//
// Usage:
//
//	gohwrng -p 8000 -w wordlist.txt
//	gohwrng -stream -count 1000000 > words.bin
//	gohwrng -demo
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rampantspark/gohwrng/internal/config"
	"github.com/rampantspark/gohwrng/internal/hwrng"
	"github.com/rampantspark/gohwrng/internal/logging"
	"github.com/rampantspark/gohwrng/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], hwrng.Platform(), os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is main without the process globals. It draws from hw, or the platform
// hardware when hw is nil, and returns the exit code.
func run(ctx context.Context, args []string, hw hwrng.Hardware, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		ui.PrintError(stderr, "invalid configuration", err)
		return 2
	}

	logger, err := logging.New(cfg.LogFormat, cfg.LogLevel, stderr)
	if err != nil {
		ui.PrintError(stderr, "failed to create logger", err)
		return 2
	}
	slog.SetDefault(logger)

	genCfg := cfg.Generator()
	genCfg.Hardware = hw
	gen, err := hwrng.New(genCfg, logger)
	if err != nil {
		ui.PrintError(stderr, "failed to create generator", err)
		return 1
	}
	defer gen.Close()

	if !gen.IsAvailable() {
		if cfg.RequireHardware {
			ui.PrintError(stderr, "hardware random source required", hwrng.ErrUnavailable)
			return 1
		}
		logger.Warn("No hardware random source; draws will fail or return zero",
			"mode", cfg.Mode().String())
	}

	switch cfg.Mode() {
	case config.ModeStream:
		err = stream(ctx, gen, stdout, cfg.Count)
		if errors.Is(err, syscall.EPIPE) {
			err = nil
		}
	case config.ModeDemo:
		err = demo(ctx, gen, cfg.Workers, stdout, logger)
	default:
		err = serve(ctx, cfg, gen, stdout, logger)
	}

	if err != nil {
		logger.Error("Exiting", "mode", cfg.Mode().String(), "error", err)
		return 1
	}
	logger.Debug("Exiting", "mode", cfg.Mode().String(), "corrections", gen.Corrections())
	return 0
}

// sourceSummary is how the banner and demo name the random source.
func sourceSummary(gen *hwrng.Generator) string {
	if gen.IsAvailable() {
		return fmt.Sprintf("%s (available)", gen.Source())
	}
	return fmt.Sprintf("%s (unavailable)", gen.Source())
}
