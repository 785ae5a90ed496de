// Package config loads gohwrng settings from GOHWRNG_* environment
// variables and command-line flags. Flags win over the environment.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rampantspark/gohwrng/internal/admin"
	"github.com/rampantspark/gohwrng/internal/hwrng"
	"github.com/rampantspark/gohwrng/internal/logging"
	"github.com/rampantspark/gohwrng/internal/server"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Mode selects what the process does.
type Mode int

const (
	ModeServe Mode = iota
	ModeStream
	ModeDemo
)

func (m Mode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeDemo:
		return "demo"
	default:
		return "serve"
	}
}

// Config holds every setting. Zero Workers means one per CPU.
type Config struct {
	// HTTP server
	Host            string        `env:"GOHWRNG_HOST"`
	Port            int           `env:"GOHWRNG_PORT" envDefault:"8000"`
	ReadTimeout     time.Duration `env:"GOHWRNG_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"GOHWRNG_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"GOHWRNG_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"GOHWRNG_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	MaxHeaderBytes  int           `env:"GOHWRNG_MAX_HEADER_BYTES" envDefault:"1048576"`
	BodyLimit       int64         `env:"GOHWRNG_BODY_LIMIT" envDefault:"4096"`

	// Generator
	Workers         int  `env:"GOHWRNG_WORKERS" envDefault:"0"`
	RetryLimit      int  `env:"GOHWRNG_RETRY_LIMIT" envDefault:"0"`
	UniformRange    bool `env:"GOHWRNG_UNIFORM_RANGE"`
	RequireHardware bool `env:"GOHWRNG_REQUIRE_HARDWARE"`

	// API
	RateLimit  float64 `env:"GOHWRNG_RATE_LIMIT" envDefault:"10"`
	RateBurst  int     `env:"GOHWRNG_RATE_BURST" envDefault:"20"`
	MaxBytes   int     `env:"GOHWRNG_MAX_BYTES" envDefault:"1048576"`
	Wordlist   string  `env:"GOHWRNG_WORDLIST"`
	Charset    string  `env:"GOHWRNG_CHARSET"`
	TrustProxy bool    `env:"GOHWRNG_TRUST_PROXY"`
	Metrics    bool    `env:"GOHWRNG_METRICS" envDefault:"true"`

	// Statistics and dashboard
	DBPath       string `env:"GOHWRNG_DB"`
	Admin        bool   `env:"GOHWRNG_ADMIN" envDefault:"true"`
	AdminToken   string `env:"GOHWRNG_ADMIN_TOKEN"`
	HTTPSCookies bool   `env:"GOHWRNG_HTTPS_COOKIES"`

	// Logging
	LogFormat string `env:"GOHWRNG_LOG_FORMAT" envDefault:"human"`
	LogLevel  string `env:"GOHWRNG_LOG_LEVEL" envDefault:"info"`

	// Alternative modes
	Stream bool   `env:"GOHWRNG_STREAM"`
	Count  uint64 `env:"GOHWRNG_COUNT"`
	Demo   bool   `env:"GOHWRNG_DEMO"`
}

// Load reads the environment, then parses args on top of it. Flag usage
// and errors are written to output. flag.ErrHelp is returned unwrapped
// when -h is given.
func Load(args []string, output io.Writer) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("gohwrng", flag.ContinueOnError)
	fs.SetOutput(output)
	cfg.bind(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments %q", ErrInvalid, fs.Args())
	}

	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bind registers a flag for each setting, defaulting to the value already
// loaded from the environment.
func (c *Config) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.Host, "host", c.Host, "interface to listen on (empty for all)")
	fs.IntVar(&c.Port, "p", c.Port, "port to listen on")
	fs.DurationVar(&c.ReadTimeout, "read-timeout", c.ReadTimeout, "HTTP read timeout")
	fs.DurationVar(&c.WriteTimeout, "write-timeout", c.WriteTimeout, "HTTP write timeout")
	fs.DurationVar(&c.IdleTimeout, "idle-timeout", c.IdleTimeout, "HTTP keep-alive idle timeout")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "grace period for in-flight requests")
	fs.Int64Var(&c.BodyLimit, "body-limit", c.BodyLimit, "maximum request body size in bytes")

	fs.IntVar(&c.Workers, "workers", c.Workers, "draw workers (0 for one per CPU)")
	fs.IntVar(&c.RetryLimit, "retry-limit", c.RetryLimit, "consecutive invalid draws tolerated per call (0 for unbounded)")
	fs.BoolVar(&c.UniformRange, "uniform", c.UniformRange, "use unbiased rejection sampling for ranges")
	fs.BoolVar(&c.RequireHardware, "require-hardware", c.RequireHardware, "refuse to start without a hardware random source")

	fs.Float64Var(&c.RateLimit, "rate", c.RateLimit, "requests per second per client (0 disables)")
	fs.IntVar(&c.RateBurst, "burst", c.RateBurst, "rate limiter burst size")
	fs.IntVar(&c.MaxBytes, "max-bytes", c.MaxBytes, "largest /bytes response")
	fs.StringVar(&c.Wordlist, "w", c.Wordlist, "passphrase wordlist file, one word per line")
	fs.StringVar(&c.Charset, "charset", c.Charset, "token alphabet")
	fs.BoolVar(&c.TrustProxy, "trust-proxy", c.TrustProxy, "trust X-Forwarded-For and X-Real-IP")
	fs.BoolVar(&c.Metrics, "metrics", c.Metrics, "serve Prometheus metrics at /metrics")

	fs.StringVar(&c.DBPath, "db", c.DBPath, "SQLite statistics database (empty keeps stats in memory)")
	fs.BoolVar(&c.Admin, "admin", c.Admin, "serve the admin dashboard")
	fs.StringVar(&c.AdminToken, "admin-token", c.AdminToken, "fixed admin token (random if empty)")
	fs.BoolVar(&c.HTTPSCookies, "https-cookies", c.HTTPSCookies, "mark the admin cookie Secure")

	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: human, text or json")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn or error")

	fs.BoolVar(&c.Stream, "stream", c.Stream, "write raw little-endian 32-bit words to stdout")
	fs.Uint64Var(&c.Count, "count", c.Count, "stop streaming after this many words (0 for no limit)")
	fs.BoolVar(&c.Demo, "demo", c.Demo, "print a short demonstration of the generator and exit")
}

// Mode reports which mode the settings select.
func (c *Config) Mode() Mode {
	switch {
	case c.Stream:
		return ModeStream
	case c.Demo:
		return ModeDemo
	default:
		return ModeServe
	}
}

// Validate checks every setting.
func (c *Config) Validate() error {
	if err := c.Server().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	gen := c.Generator()
	if err := gen.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	switch {
	case c.Stream && c.Demo:
		return fmt.Errorf("%w: -stream and -demo are mutually exclusive", ErrInvalid)
	case c.Count > 0 && !c.Stream:
		return fmt.Errorf("%w: -count requires -stream", ErrInvalid)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalid, c.Workers)
	case c.RateLimit < 0:
		return fmt.Errorf("%w: rate must not be negative, got %g", ErrInvalid, c.RateLimit)
	case c.RateLimit > 0 && c.RateBurst < 1:
		return fmt.Errorf("%w: burst must be positive when rate limiting, got %d", ErrInvalid, c.RateBurst)
	case c.MaxBytes < 1:
		return fmt.Errorf("%w: max bytes must be positive, got %d", ErrInvalid, c.MaxBytes)
	case c.BodyLimit < 0:
		return fmt.Errorf("%w: body limit must not be negative, got %d", ErrInvalid, c.BodyLimit)
	case c.AdminToken != "" && len(c.AdminToken) < admin.MinTokenLength:
		return fmt.Errorf("%w: admin token must be at least %d characters", ErrInvalid, admin.MinTokenLength)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch c.LogFormat {
	case logging.FormatHuman, logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("%w: log format %q (must be human, text or json)", ErrInvalid, c.LogFormat)
	}
	return nil
}

// Server returns the HTTP server settings.
func (c *Config) Server() *server.Config {
	return &server.Config{
		Host:            c.Host,
		Port:            c.Port,
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		IdleTimeout:     c.IdleTimeout,
		ShutdownTimeout: c.ShutdownTimeout,
		MaxHeaderBytes:  c.MaxHeaderBytes,
	}
}

// Generator returns the generator settings for the platform hardware.
func (c *Config) Generator() hwrng.Config {
	return hwrng.Config{
		RetryLimit:   c.RetryLimit,
		UniformRange: c.UniformRange,
	}
}
