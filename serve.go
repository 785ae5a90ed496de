package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rampantspark/gohwrng/internal/admin"
	"github.com/rampantspark/gohwrng/internal/config"
	"github.com/rampantspark/gohwrng/internal/dispatch"
	"github.com/rampantspark/gohwrng/internal/handler"
	"github.com/rampantspark/gohwrng/internal/hwrng"
	"github.com/rampantspark/gohwrng/internal/metrics"
	"github.com/rampantspark/gohwrng/internal/middleware"
	"github.com/rampantspark/gohwrng/internal/phrase"
	"github.com/rampantspark/gohwrng/internal/ratelimit"
	"github.com/rampantspark/gohwrng/internal/server"
	"github.com/rampantspark/gohwrng/internal/stats"
	"github.com/rampantspark/gohwrng/internal/ui"
	"github.com/rampantspark/gohwrng/internal/version"
	"go.opentelemetry.io/otel"
)

// meterName is the instrumentation scope for the OpenTelemetry exporter.
const meterName = "gohwrng"

// app is the assembled HTTP service.
type app struct {
	handler http.Handler
	disp    *dispatch.Dispatcher
	stats   *stats.Manager
	limiter *ratelimit.Limiter
	otel    *metrics.OTelExporter
	admin   *admin.Handler
	words   int
	logger  *slog.Logger
}

// newApp wires the API, dashboard, metrics and middleware around gen.
func newApp(ctx context.Context, cfg *config.Config, gen *hwrng.Generator, logger *slog.Logger) (*app, error) {
	var words []string
	if cfg.Wordlist != "" {
		w, err := phrase.LoadWordlist(cfg.Wordlist)
		if err != nil {
			return nil, err
		}
		words = w
		logger.Info("Loaded wordlist", "file", cfg.Wordlist, "entries", len(words))
	}

	sm, err := stats.Open(cfg.DBPath, cfg.TrustProxy, logger)
	if err != nil {
		return nil, fmt.Errorf("open stats: %w", err)
	}
	if err := sm.StartRun(ctx, gen.Source().String()); err != nil {
		logger.Warn("Failed to record generator run", "error", err)
	}

	a := &app{
		disp:    dispatch.New(gen, cfg.Workers, logger),
		stats:   sm,
		limiter: ratelimit.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		words:   len(words),
		logger:  logger,
	}

	reg := metrics.New(gen, a.disp)
	a.otel, err = metrics.RegisterOTel(otel.Meter(meterName), reg)
	if err != nil {
		a.close(gen)
		return nil, fmt.Errorf("register otel metrics: %w", err)
	}

	mux := http.NewServeMux()
	handler.New(handler.Deps{
		Generator:  gen,
		Dispatcher: a.disp,
		Stats:      sm,
		Metrics:    reg,
		Words:      words,
		Charset:    cfg.Charset,
		MaxBytes:   cfg.MaxBytes,
		Logger:     logger,
	}).Register(mux)
	if cfg.Metrics {
		mux.Handle("GET /metrics", reg.Handler())
	}

	if cfg.Admin {
		auth, err := admin.NewAuthenticator(cfg.HTTPSCookies, cfg.AdminToken)
		if err != nil {
			a.close(gen)
			return nil, fmt.Errorf("create admin authenticator: %w", err)
		}
		a.admin = admin.NewHandler(auth, sm, func() admin.Status {
			limits := a.limiter.Stats()
			return admin.Status{
				Version:      version.String(),
				Source:       gen.Source().String(),
				Available:    gen.IsAvailable(),
				Corrections:  gen.Corrections(),
				UniformRange: gen.UniformRange(),
				Workers:      a.disp.Workers(),
				QueueDepth:   a.disp.Pending(),
				RateLimited:  limits.Rejected,
				Clients:      limits.TrackedIPs,
			}
		}, logger)
		a.admin.Register(mux)
	}

	a.handler = middleware.Chain(mux,
		middleware.RequestID(),
		middleware.RecoverPanic(logger),
		middleware.AccessLog(logger, func(*http.Request, int) { reg.Inc(metrics.Requests) }),
		middleware.RateLimit(a.limiter, sm.GetClientIP, func(*http.Request) { reg.Inc(metrics.RateLimited) }),
		middleware.LimitRequestBody(cfg.BodyLimit),
	)
	return a, nil
}

// close releases everything newApp created. Queued draws finish before the
// generator run is closed so its correction count is final.
func (a *app) close(gen *hwrng.Generator) {
	if a.otel != nil {
		a.otel.Close()
	}
	a.limiter.Stop()
	a.disp.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.stats.FinishRun(ctx, gen.Corrections()); err != nil {
		a.logger.Warn("Failed to finish generator run", "error", err)
	}
	if err := a.stats.Close(); err != nil {
		a.logger.Warn("Failed to close stats", "error", err)
	}
}

// displayHost is the host:port printed in dashboard links.
func displayHost(cfg *config.Config) string {
	host := cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(cfg.Port))
}

// serve runs the HTTP service until ctx is done.
func serve(ctx context.Context, cfg *config.Config, gen *hwrng.Generator, stdout io.Writer, logger *slog.Logger) error {
	a, err := newApp(ctx, cfg, gen, logger)
	if err != nil {
		return err
	}
	defer a.close(gen)

	mode := "modulo"
	if gen.UniformRange() {
		mode = "uniform"
	}
	info := ui.StartupInfo{
		Version:     version.String(),
		Source:      gen.Source().String(),
		Available:   gen.IsAvailable(),
		RangeMode:   mode,
		Workers:     a.disp.Workers(),
		ListenAddr:  cfg.Server().Addr(),
		RateLimit:   ui.RateLimitSummary(cfg.RateLimit, cfg.RateBurst),
		MaxBytes:    cfg.MaxBytes,
		Wordlist:    ui.WordlistSummary(cfg.Wordlist, a.words),
		PersistMode: ui.PersistModeSummary(cfg.DBPath),
	}
	if cfg.Metrics {
		info.Metrics = "/metrics"
	}
	if a.admin != nil {
		info.AdminLoginURL = a.admin.LoginURL(displayHost(cfg))
		info.AdminURL = a.admin.AdminURL(displayHost(cfg))
	}
	ui.PrintBanner(stdout)
	ui.PrintStartupInfo(stdout, info)
	logger.Info("Serving hardware random API", "addr", cfg.Server().Addr(), "source", sourceSummary(gen))

	srv := server.New(cfg.Server(), a.handler, logger)
	err = srv.Run(ctx)
	ui.PrintShutdown(stdout)
	if err != nil {
		ui.PrintError(stdout, "server stopped with an error", err)
		return err
	}
	ui.PrintShutdownComplete(stdout, gen.Corrections())
	return nil
}
