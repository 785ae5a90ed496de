// Package stats records API usage and generator runs, in SQLite or in memory.
package stats

import (
	"context"
	"time"
)

// RequestInfo holds information about a single API request.
type RequestInfo struct {
	IP        string    // Client IP address
	UserAgent string    // Client User-Agent header
	Path      string    // Requested path
	Status    int       // HTTP status returned
	Draws     int       // Hardware draws made for the request
	Timestamp time.Time // Request timestamp
}

// Summary holds the headline counters.
type Summary struct {
	StartTime        time.Time
	TotalRequests    int64
	TotalDraws       int64
	UniqueIPs        int
	UniqueUserAgents int
}

// GeneratorRun is one process lifetime of the hardware generator.
type GeneratorRun struct {
	ID          int64
	Start       time.Time
	End         time.Time // zero while the run is active
	Source      string
	Corrections uint64
}

// Active reports whether the run has not been finished.
func (r GeneratorRun) Active() bool {
	return r.End.IsZero()
}

// CountEntry represents a label and count pair in sorted order.
type CountEntry struct {
	Label string
	Count int
}

// ChartData holds data for rendering charts in the admin UI.
type ChartData struct {
	TopIPs struct {
		Labels []string `json:"labels"`
		Data   []int    `json:"data"`
	} `json:"topIPs"`
	TopUserAgents struct {
		Labels []string `json:"labels"`
		Data   []int    `json:"data"`
	} `json:"topUserAgents"`
}

// Store is a statistics backend.
type Store interface {
	RecordRequest(ctx context.Context, req RequestInfo) error
	Summary(ctx context.Context) (Summary, error)
	RecentRequests(ctx context.Context, limit int) ([]RequestInfo, error)
	TopIPs(ctx context.Context, limit int) ([]CountEntry, error)
	TopUserAgents(ctx context.Context, limit int) ([]CountEntry, error)

	// StartRun inserts an active run and returns its ID.
	StartRun(ctx context.Context, source string, start time.Time) (int64, error)
	// FinishRun stamps the end time and final correction count on a run.
	FinishRun(ctx context.Context, id int64, end time.Time, corrections uint64) error
	// Runs returns the most recent runs, newest first.
	Runs(ctx context.Context, limit int) ([]GeneratorRun, error)

	Close() error
}
