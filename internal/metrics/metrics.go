// Package metrics counts API and generator activity and exports it as
// Prometheus text or OpenTelemetry observable instruments.
//
// Counters live here; gauges are read on demand from the generator and the
// dispatcher so there is one source of truth for each value.
package metrics

import "sync/atomic"

// CounterID identifies a counter.
type CounterID int

// Counters.
const (
	Requests CounterID = iota
	Draws
	RangeRejected
	RateLimited
	Unavailable
	numCounters
)

type def struct {
	name string
	help string
}

var counterDefs = [numCounters]def{
	Requests:      {"gohwrng_requests_total", "API requests served."},
	Draws:         {"gohwrng_draws_total", "Values drawn from the hardware generator."},
	RangeRejected: {"gohwrng_range_rejected_total", "Range requests rejected for invalid bounds."},
	RateLimited:   {"gohwrng_rate_limited_total", "Requests rejected by the rate limiter."},
	Unavailable:   {"gohwrng_unavailable_total", "Requests answered 503 because the hardware source could not serve them."},
}

var (
	correctionsDef = def{"gohwrng_corrections_total", "Invalid hardware draws that were retried."}
	availableDef   = def{"gohwrng_hardware_available", "1 if the hardware random source is available."}
	queueDef       = def{"gohwrng_dispatch_queue_depth", "Draws waiting for a dispatcher worker."}
)

// GeneratorSource is the part of hwrng.Generator read by the exporters.
type GeneratorSource interface {
	IsAvailable() bool
	Corrections() uint64
}

// QueueSource is the part of dispatch.Dispatcher read by the exporters.
type QueueSource interface {
	Pending() int
}

// Snapshot is a point-in-time copy of every metric.
type Snapshot struct {
	Counters    [numCounters]uint64
	Corrections uint64
	Available   bool
	QueueDepth  int
}

// Counter returns the value of one counter.
func (s Snapshot) Counter(id CounterID) uint64 {
	if id < 0 || id >= numCounters {
		return 0
	}
	return s.Counters[id]
}

// Registry holds the counters and the gauge sources. The zero value is not
// usable; call New.
type Registry struct {
	counters [numCounters]atomic.Uint64
	gen      GeneratorSource
	queue    QueueSource
}

// New creates a registry. Either source may be nil, in which case its
// gauges read as zero.
func New(gen GeneratorSource, queue QueueSource) *Registry {
	return &Registry{gen: gen, queue: queue}
}

// Inc adds one to a counter.
func (r *Registry) Inc(id CounterID) {
	r.Add(id, 1)
}

// Add adds n to a counter.
func (r *Registry) Add(id CounterID, n uint64) {
	if r == nil || id < 0 || id >= numCounters {
		return
	}
	r.counters[id].Add(n)
}

// Snapshot reads every counter and gauge.
func (r *Registry) Snapshot() Snapshot {
	var s Snapshot
	if r == nil {
		return s
	}
	for i := range r.counters {
		s.Counters[i] = r.counters[i].Load()
	}
	if r.gen != nil {
		s.Corrections = r.gen.Corrections()
		s.Available = r.gen.IsAvailable()
	}
	if r.queue != nil {
		s.QueueDepth = r.queue.Pending()
	}
	return s
}
