// Package ratelimit throttles API draws per client IP.
package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	// maxTrackedIPs caps the number of clients tracked at once. New clients
	// beyond the cap are rejected until idle entries are swept.
	maxTrackedIPs = 10000

	defaultIdleTimeout = 3 * time.Minute
	sweepInterval      = time.Minute
)

// client is one tracked IP.
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter provides per-IP token-bucket rate limiting.
//
// A Limiter created with a non-positive rate allows every request and
// tracks nothing.
type Limiter struct {
	mu          sync.Mutex
	clients     map[string]*client
	rate        rate.Limit
	burst       int
	idleTimeout time.Duration
	now         func() time.Time

	rejected atomic.Uint64
	stopOnce sync.Once
	stopChan chan struct{}
}

// Stats is a snapshot of limiter state.
type Stats struct {
	TrackedIPs int
	Rejected   uint64
}

// NewLimiter creates a new rate limiter and starts its sweeper.
//
// Parameters:
//   - requestsPerSecond: sustained requests per second per IP; <= 0 disables limiting
//   - burst: maximum burst size per IP
//
// Returns a new Limiter instance. Call Stop when done.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{
		clients:     make(map[string]*client),
		rate:        rate.Limit(requestsPerSecond),
		burst:       burst,
		idleTimeout: defaultIdleTimeout,
		now:         time.Now,
		stopChan:    make(chan struct{}),
	}
	if l.Enabled() {
		go l.sweepLoop(sweepInterval)
	}
	return l
}

// Enabled reports whether requests are actually limited.
func (l *Limiter) Enabled() bool {
	return l.rate > 0
}

// Allow reports whether a request from ip may proceed now.
func (l *Limiter) Allow(ip string) bool {
	if !l.Enabled() {
		return true
	}

	now := l.now()
	l.mu.Lock()
	c, ok := l.clients[ip]
	if !ok {
		if len(l.clients) >= maxTrackedIPs {
			l.mu.Unlock()
			l.rejected.Add(1)
			return false
		}
		c = &client{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.clients[ip] = c
	}
	c.lastSeen = now
	l.mu.Unlock()

	if !c.limiter.AllowN(now, 1) {
		l.rejected.Add(1)
		return false
	}
	return true
}

func (l *Limiter) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopChan:
			return
		}
	}
}

// sweep forgets clients idle for longer than idleTimeout.
func (l *Limiter) sweep() int {
	cutoff := l.now().Add(-l.idleTimeout)
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for ip, c := range l.clients {
		if c.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
			removed++
		}
	}
	return removed
}

// Stop stops the sweeper. Safe to call multiple times.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopChan) })
}

// Stats returns current limiter statistics.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		TrackedIPs: len(l.clients),
		Rejected:   l.rejected.Load(),
	}
}
