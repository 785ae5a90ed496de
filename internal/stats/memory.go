package stats

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Memory limits for the in-memory store.
const (
	maxTrackedIPs        = 10000 // Maximum number of unique IP addresses to track
	maxTrackedUserAgents = 1000  // Maximum number of unique user agents to track
	maxRecentRequests    = 100   // Request log entries kept
	maxRuns              = 100   // Generator runs kept
)

// MemoryStore keeps statistics in process memory. Everything is lost on
// exit. It is safe for concurrent use.
type MemoryStore struct {
	mu             sync.RWMutex
	startTime      time.Time
	totalRequests  int64
	totalDraws     int64
	ipCounts       map[string]int
	userAgents     map[string]int
	recentRequests []RequestInfo // oldest first
	runs           []GeneratorRun
	nextRunID      int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		startTime:  time.Now(),
		ipCounts:   make(map[string]int),
		userAgents: make(map[string]int),
		nextRunID:  1,
	}
}

// RecordRequest implements Store. New IPs and user agents beyond the
// tracking caps are counted in the totals only.
func (m *MemoryStore) RecordRequest(_ context.Context, req RequestInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalRequests++
	m.totalDraws += int64(req.Draws)

	if _, exists := m.ipCounts[req.IP]; exists || len(m.ipCounts) < maxTrackedIPs {
		m.ipCounts[req.IP]++
	}
	if _, exists := m.userAgents[req.UserAgent]; exists || len(m.userAgents) < maxTrackedUserAgents {
		m.userAgents[req.UserAgent]++
	}

	m.recentRequests = append(m.recentRequests, req)
	if len(m.recentRequests) > maxRecentRequests {
		m.recentRequests = m.recentRequests[1:]
	}
	return nil
}

// Summary implements Store.
func (m *MemoryStore) Summary(_ context.Context) (Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Summary{
		StartTime:        m.startTime,
		TotalRequests:    m.totalRequests,
		TotalDraws:       m.totalDraws,
		UniqueIPs:        len(m.ipCounts),
		UniqueUserAgents: len(m.userAgents),
	}, nil
}

// RecentRequests implements Store.
func (m *MemoryStore) RecentRequests(_ context.Context, limit int) ([]RequestInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := len(m.recentRequests)
	count := total
	if limit >= 0 && limit < total {
		count = limit
	}
	result := make([]RequestInfo, count)
	for i := 0; i < count; i++ {
		result[i] = m.recentRequests[total-1-i]
	}
	return result, nil
}

// TopIPs implements Store.
func (m *MemoryStore) TopIPs(_ context.Context, limit int) ([]CountEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return topN(m.ipCounts, limit), nil
}

// TopUserAgents implements Store.
func (m *MemoryStore) TopUserAgents(_ context.Context, limit int) ([]CountEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return topN(m.userAgents, limit), nil
}

// topN sorts counts descending, ties broken by label.
func topN(counts map[string]int, limit int) []CountEntry {
	entries := make([]CountEntry, 0, len(counts))
	for label, count := range counts {
		entries = append(entries, CountEntry{Label: label, Count: count})
	}
	slices.SortFunc(entries, func(a, b CountEntry) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	if limit >= 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

// StartRun implements Store.
func (m *MemoryStore) StartRun(_ context.Context, source string, start time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextRunID
	m.nextRunID++
	m.runs = append(m.runs, GeneratorRun{ID: id, Start: start, Source: source})
	if len(m.runs) > maxRuns {
		m.runs = m.runs[1:]
	}
	return id, nil
}

// FinishRun implements Store.
func (m *MemoryStore) FinishRun(_ context.Context, id int64, end time.Time, corrections uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.runs {
		if m.runs[i].ID == id {
			m.runs[i].End = end
			m.runs[i].Corrections = corrections
			return nil
		}
	}
	return fmt.Errorf("generator run %d not found", id)
}

// Runs implements Store.
func (m *MemoryStore) Runs(_ context.Context, limit int) ([]GeneratorRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := len(m.runs)
	count := total
	if limit >= 0 && limit < total {
		count = limit
	}
	result := make([]GeneratorRun, count)
	for i := 0; i < count; i++ {
		result[i] = m.runs[total-1-i]
	}
	return result, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
