// Package handler serves the hardware generator over HTTP as a small JSON
// API.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rampantspark/gohwrng/internal/dispatch"
	"github.com/rampantspark/gohwrng/internal/hwrng"
	"github.com/rampantspark/gohwrng/internal/metrics"
	"github.com/rampantspark/gohwrng/internal/phrase"
	"github.com/rampantspark/gohwrng/internal/random"
	"github.com/rampantspark/gohwrng/internal/stats"
	"github.com/rampantspark/gohwrng/internal/version"
)

// Prefix is the path every API route is mounted under.
const Prefix = "/api/v1"

// DefaultMaxBytes bounds /bytes when Deps.MaxBytes is not set.
const DefaultMaxBytes = 1 << 20

const (
	defaultBytes  = 32
	maxSeparator  = 16
	bytesPerDraw  = 8
	errRangeArity = "expected two arguments"
	errRangeType  = "both arguments should be integers"
)

// Generator is the part of hwrng.Generator the API reports on.
type Generator interface {
	IsAvailable() bool
	Source() hwrng.SourceType
	Corrections() uint64
}

// Deps are the collaborators of an API.
type Deps struct {
	Generator  Generator
	Dispatcher *dispatch.Dispatcher
	Stats      *stats.Manager    // optional
	Metrics    *metrics.Registry // optional
	Words      []string          // passphrase wordlist; empty uses generated words
	Charset    string            // token alphabet; empty uses phrase.DefaultCharset
	MaxBytes   int               // upper bound for /bytes
	Logger     *slog.Logger
}

// API serves generator draws. Every draw goes through the dispatcher.
type API struct {
	gen      Generator
	disp     *dispatch.Dispatcher
	stats    *stats.Manager
	metrics  *metrics.Registry
	words    []string
	charset  string
	maxBytes int
	logger   *slog.Logger
}

// New creates an API from deps.
func New(deps Deps) *API {
	charset := deps.Charset
	if charset == "" {
		charset = phrase.DefaultCharset
	}
	maxBytes := deps.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		gen:      deps.Generator,
		disp:     deps.Dispatcher,
		stats:    deps.Stats,
		metrics:  deps.Metrics,
		words:    deps.Words,
		charset:  charset,
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// Register mounts the API routes on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+Prefix+"/available", a.track(a.handleAvailable))
	mux.HandleFunc("GET "+Prefix+"/corrections", a.track(a.handleCorrections))
	mux.HandleFunc("GET "+Prefix+"/version", a.track(a.handleVersion))
	mux.HandleFunc("GET "+Prefix+"/random", a.track(a.handleRandom32))
	mux.HandleFunc("GET "+Prefix+"/random64", a.track(a.handleRandom64))
	mux.HandleFunc("GET "+Prefix+"/range", a.track(a.handleRange))
	mux.HandleFunc("GET "+Prefix+"/bytes", a.track(a.handleBytes))
	mux.HandleFunc("GET "+Prefix+"/token", a.track(a.handleToken))
	mux.HandleFunc("GET "+Prefix+"/passphrase", a.track(a.handlePassphrase))
}

// endpoint writes a response and reports the status it sent and the number
// of values it drew from the generator.
type endpoint func(w http.ResponseWriter, r *http.Request) (status, draws int)

// track records draws in metrics and the request in stats once fn returns.
func (a *API) track(fn endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, draws := fn(w, r)
		if draws > 0 {
			a.metrics.Add(metrics.Draws, uint64(draws))
		}
		if a.stats != nil {
			a.stats.RecordRequest(context.WithoutCancel(r.Context()), r, status, draws)
		}
	}
}

// fail maps err to a status code and writes it as a JSON error.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) int {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, hwrng.ErrInvalidRange):
		status = http.StatusBadRequest
	case errors.Is(err, hwrng.ErrUnavailable),
		errors.Is(err, hwrng.ErrRetryLimit),
		errors.Is(err, hwrng.ErrClosed),
		errors.Is(err, dispatch.ErrStopped):
		status = http.StatusServiceUnavailable
		a.metrics.Inc(metrics.Unavailable)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		a.logger.Error("Draw failed", "path", r.URL.Path, "error", err)
	} else {
		a.logger.Debug("Draw rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeError(w, status, err.Error())
	return status
}

func (a *API) handleAvailable(w http.ResponseWriter, r *http.Request) (int, int) {
	writeJSON(w, http.StatusOK, availableResponse{
		Available: a.gen.IsAvailable(),
		Source:    a.gen.Source().String(),
	})
	return http.StatusOK, 0
}

func (a *API) handleCorrections(w http.ResponseWriter, r *http.Request) (int, int) {
	writeJSON(w, http.StatusOK, correctionsResponse{Corrections: a.gen.Corrections()})
	return http.StatusOK, 0
}

func (a *API) handleVersion(w http.ResponseWriter, r *http.Request) (int, int) {
	writeJSON(w, http.StatusOK, versionResponse{Version: version.String()})
	return http.StatusOK, 0
}

func (a *API) handleRandom32(w http.ResponseWriter, r *http.Request) (int, int) {
	v, corrected, err := a.disp.Random32(r.Context())
	if err != nil {
		return a.fail(w, r, err), 0
	}
	writeJSON(w, http.StatusOK, valueResponse[uint32]{Value: v, Corrected: corrected})
	return http.StatusOK, 1
}

func (a *API) handleRandom64(w http.ResponseWriter, r *http.Request) (int, int) {
	v, corrected, err := a.disp.Random64(r.Context())
	if err != nil {
		return a.fail(w, r, err), 0
	}
	writeJSON(w, http.StatusOK, random64Response{
		Value:     v,
		Hex:       fmt.Sprintf("%016x", v),
		Corrected: corrected,
	})
	return http.StatusOK, 1
}

// parseRange reads the lower and upper query parameters as int32.
func parseRange(r *http.Request) (lower, upper int32, msg string) {
	q := r.URL.Query()
	ls, us := q.Get("lower"), q.Get("upper")
	if ls == "" || us == "" {
		return 0, 0, errRangeArity
	}
	l, err := strconv.ParseInt(ls, 10, 32)
	if err != nil {
		return 0, 0, errRangeType
	}
	u, err := strconv.ParseInt(us, 10, 32)
	if err != nil {
		return 0, 0, errRangeType
	}
	return int32(l), int32(u), ""
}

func (a *API) handleRange(w http.ResponseWriter, r *http.Request) (int, int) {
	lower, upper, msg := parseRange(r)
	if msg != "" {
		a.metrics.Inc(metrics.RangeRejected)
		writeError(w, http.StatusBadRequest, msg)
		return http.StatusBadRequest, 0
	}

	v, corrected, err := a.disp.RandomRange32(r.Context(), lower, upper)
	if err != nil {
		if errors.Is(err, hwrng.ErrInvalidRange) {
			a.metrics.Inc(metrics.RangeRejected)
			writeError(w, http.StatusBadRequest, hwrng.ErrInvalidRange.Error())
			return http.StatusBadRequest, 0
		}
		return a.fail(w, r, err), 0
	}
	writeJSON(w, http.StatusOK, rangeResponse{
		Lower:     lower,
		Upper:     upper,
		Value:     v,
		Corrected: corrected,
	})
	return http.StatusOK, 1
}

// intParam parses an optional integer query parameter within [lo, hi].
func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", name, lo, hi)
	}
	return n, nil
}

func (a *API) handleBytes(w http.ResponseWriter, r *http.Request) (int, int) {
	n, err := intParam(r, "n", min(defaultBytes, a.maxBytes), 1, a.maxBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return http.StatusBadRequest, 0
	}

	b, err := a.disp.Read(r.Context(), n)
	if err != nil {
		return a.fail(w, r, err), 0
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	w.Write(b)
	return http.StatusOK, (n + bytesPerDraw - 1) / bytesPerDraw
}

// drawer adapts the dispatcher to random.RangeDrawer for one request and
// counts the draws made through it. It is not safe for concurrent use.
type drawer struct {
	ctx   context.Context
	gen   Generator
	disp  *dispatch.Dispatcher
	draws int
}

func (d *drawer) IsAvailable() bool {
	return d.gen.IsAvailable()
}

func (d *drawer) RandomRange32(lower, upper int32) (int32, bool, error) {
	v, corrected, err := d.disp.RandomRange32(d.ctx, lower, upper)
	if err == nil {
		d.draws++
	}
	return v, corrected, err
}

func (a *API) phrases(ctx context.Context) (*phrase.Generator, *drawer) {
	d := &drawer{ctx: ctx, gen: a.gen, disp: a.disp}
	return phrase.NewGenerator(a.words, random.NewSource(a.charset, d)), d
}

func (a *API) handleToken(w http.ResponseWriter, r *http.Request) (int, int) {
	length, err := intParam(r, "length", phrase.DefaultTokenLength, 1, phrase.MaxTokenLength)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return http.StatusBadRequest, 0
	}

	gen, d := a.phrases(r.Context())
	token, err := gen.Token(length)
	if err != nil {
		return a.fail(w, r, err), d.draws
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token, Length: length})
	return http.StatusOK, d.draws
}

func (a *API) handlePassphrase(w http.ResponseWriter, r *http.Request) (int, int) {
	count, err := intParam(r, "words", phrase.DefaultWords, 1, phrase.MaxWords)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return http.StatusBadRequest, 0
	}
	sep := phrase.DefaultSeparator
	if q := r.URL.Query(); q.Has("sep") {
		sep = q.Get("sep")
	}
	if len(sep) > maxSeparator {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("sep must be at most %d bytes", maxSeparator))
		return http.StatusBadRequest, 0
	}

	gen, d := a.phrases(r.Context())
	p, err := gen.Passphrase(count, sep)
	if err != nil {
		return a.fail(w, r, err), d.draws
	}
	writeJSON(w, http.StatusOK, passphraseResponse{Passphrase: p, Words: count})
	return http.StatusOK, d.draws
}
