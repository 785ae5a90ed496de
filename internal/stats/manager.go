package stats

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Manager records API requests and generator runs against a Store.
//
// It owns client IP resolution and keeps the ID of the current generator
// run so the composition root only has to call StartRun and FinishRun.
type Manager struct {
	store      Store
	ipResolver *IPResolver
	logger     *slog.Logger

	mu    sync.Mutex
	runID int64
}

// Open returns a Manager backed by SQLite at dbPath, or by memory when
// dbPath is empty.
func Open(dbPath string, trustProxy bool, logger *slog.Logger) (*Manager, error) {
	if dbPath == "" {
		logger.Debug("Statistics kept in memory")
		return NewManager(NewMemoryStore(), trustProxy, logger), nil
	}
	db, err := NewDatabase(dbPath, logger)
	if err != nil {
		return nil, err
	}
	return NewManager(db, trustProxy, logger), nil
}

// NewManager creates a new stats manager.
//
// Parameters:
//   - store: statistics backend
//   - trustProxy: whether to trust proxy headers for IP resolution
//   - logger: structured logger instance
//
// Returns a new Manager instance.
func NewManager(store Store, trustProxy bool, logger *slog.Logger) *Manager {
	return &Manager{
		store:      store,
		ipResolver: NewIPResolver(trustProxy),
		logger:     logger,
	}
}

// RecordRequest records a finished API request.
//
// Parameters:
//   - ctx: context for cancellation and timeout control
//   - r: the HTTP request
//   - status: the status code returned
//   - draws: hardware draws made while serving it
//
// Returns an error if the store rejects the write.
func (m *Manager) RecordRequest(ctx context.Context, r *http.Request, status, draws int) error {
	userAgent := r.Header.Get("User-Agent")
	if userAgent == "" {
		userAgent = "Unknown"
	}
	if len(userAgent) > 512 {
		userAgent = userAgent[:512]
	}
	path := r.URL.Path
	if len(path) > 2048 {
		path = path[:2048]
	}

	err := m.store.RecordRequest(ctx, RequestInfo{
		IP:        m.ipResolver.GetClientIP(r),
		UserAgent: userAgent,
		Path:      path,
		Status:    status,
		Draws:     draws,
		Timestamp: time.Now(),
	})
	if err != nil {
		m.logger.Warn("Failed to record request", "error", err)
		return err
	}
	return nil
}

// StartRun records the start of this process's generator run.
func (m *Manager) StartRun(ctx context.Context, source string) error {
	id, err := m.store.StartRun(ctx, source, time.Now())
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.runID = id
	m.mu.Unlock()
	return nil
}

// FinishRun closes the run opened by StartRun. It is a no-op when no run
// is open.
func (m *Manager) FinishRun(ctx context.Context, corrections uint64) error {
	m.mu.Lock()
	id := m.runID
	m.runID = 0
	m.mu.Unlock()
	if id == 0 {
		return nil
	}
	return m.store.FinishRun(ctx, id, time.Now(), corrections)
}

// Summary returns the headline counters, or a zero Summary if the store
// cannot be read.
func (m *Manager) Summary(ctx context.Context) Summary {
	s, err := m.store.Summary(ctx)
	if err != nil {
		m.logger.Warn("Failed to read stats summary", "error", err)
		return Summary{}
	}
	return s
}

// Uptime returns the time since statistics began.
func (m *Manager) Uptime(ctx context.Context) time.Duration {
	s := m.Summary(ctx)
	if s.StartTime.IsZero() {
		return 0
	}
	return time.Since(s.StartTime)
}

// GetChartData retrieves chart data for the admin UI.
//
// Parameters:
//   - ctx: context for cancellation and timeout control
//   - topItemsCount: number of top items to retrieve
//   - maxUserAgentLength: maximum length of user agent strings
//
// Returns chart data including top IPs and top user agents.
func (m *Manager) GetChartData(ctx context.Context, topItemsCount, maxUserAgentLength int) ChartData {
	var data ChartData

	topIPs, err := m.store.TopIPs(ctx, topItemsCount)
	if err != nil {
		m.logger.Warn("Failed to get top IPs", "error", err)
		return data
	}
	topUAs, err := m.store.TopUserAgents(ctx, topItemsCount)
	if err != nil {
		m.logger.Warn("Failed to get top user agents", "error", err)
		return data
	}

	for _, entry := range topIPs {
		data.TopIPs.Labels = append(data.TopIPs.Labels, entry.Label)
		data.TopIPs.Data = append(data.TopIPs.Data, entry.Count)
	}
	for _, entry := range topUAs {
		data.TopUserAgents.Labels = append(data.TopUserAgents.Labels, truncate(entry.Label, maxUserAgentLength))
		data.TopUserAgents.Data = append(data.TopUserAgents.Data, entry.Count)
	}
	return data
}

// GetRecentRequests returns recent requests, newest first.
func (m *Manager) GetRecentRequests(ctx context.Context, limit int) []RequestInfo {
	requests, err := m.store.RecentRequests(ctx, limit)
	if err != nil {
		m.logger.Warn("Failed to get recent requests", "error", err)
		return nil
	}
	return requests
}

// GetRuns returns recent generator runs, newest first.
func (m *Manager) GetRuns(ctx context.Context, limit int) []GeneratorRun {
	runs, err := m.store.Runs(ctx, limit)
	if err != nil {
		m.logger.Warn("Failed to get generator runs", "error", err)
		return nil
	}
	return runs
}

// GetClientIP extracts the client IP from a request.
func (m *Manager) GetClientIP(r *http.Request) string {
	return m.ipResolver.GetClientIP(r)
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

func truncate(s string, n int) string {
	if n <= 3 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
