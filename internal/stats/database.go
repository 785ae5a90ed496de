package stats

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Database is the SQLite Store.
type Database struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *slog.Logger
}

var _ Store = (*Database)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS stats (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    start_time TIMESTAMP NOT NULL,
    total_requests INTEGER NOT NULL DEFAULT 0,
    total_draws INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ip_counts (
    ip TEXT PRIMARY KEY CHECK(length(ip) <= 45 AND length(ip) > 0),
    count INTEGER NOT NULL DEFAULT 1 CHECK(count > 0),
    first_seen TIMESTAMP NOT NULL,
    last_seen TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ip_count ON ip_counts(count DESC);

CREATE TABLE IF NOT EXISTS user_agent_counts (
    user_agent TEXT PRIMARY KEY CHECK(length(user_agent) <= 512 AND length(user_agent) > 0),
    count INTEGER NOT NULL DEFAULT 1 CHECK(count > 0),
    first_seen TIMESTAMP NOT NULL,
    last_seen TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ua_count ON user_agent_counts(count DESC);

CREATE TABLE IF NOT EXISTS request_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ip TEXT NOT NULL CHECK(length(ip) <= 45 AND length(ip) > 0),
    user_agent TEXT CHECK(user_agent IS NULL OR length(user_agent) <= 512),
    path TEXT CHECK(path IS NULL OR length(path) <= 2048),
    status INTEGER NOT NULL DEFAULT 0,
    draws INTEGER NOT NULL DEFAULT 0 CHECK(draws >= 0),
    timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_request_timestamp ON request_log(timestamp DESC);

CREATE TABLE IF NOT EXISTS generator_runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP,
    source TEXT NOT NULL,
    corrections INTEGER NOT NULL DEFAULT 0 CHECK(corrections >= 0)
);
CREATE INDEX IF NOT EXISTS idx_runs_start ON generator_runs(start_time DESC);
`

// NewDatabase opens the SQLite file at dbPath and initializes the schema.
//
// Parameters:
//   - dbPath: path to the SQLite database file
//   - logger: structured logger instance
//
// Returns a new Database instance or an error if initialization fails.
func NewDatabase(dbPath string, logger *slog.Logger) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	_, err = db.Exec(`
		INSERT OR IGNORE INTO stats (id, start_time, total_requests, total_draws)
		VALUES (1, ?, 0, 0)
	`, time.Now())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize stats: %w", err)
	}

	logger.Debug("Database initialized", "path", dbPath)

	return &Database{
		db:     db,
		logger: logger,
	}, nil
}

// RecordRequest updates the request log, the per-IP and per-agent counts
// and the totals in one transaction.
func (d *Database) RecordRequest(ctx context.Context, req RequestInfo) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO request_log (ip, user_agent, path, status, draws, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`, req.IP, req.UserAgent, req.Path, req.Status, req.Draws, req.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert request log: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ip_counts (ip, count, first_seen, last_seen)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(ip) DO UPDATE SET
			count = count + 1,
			last_seen = excluded.last_seen
	`, req.IP, req.Timestamp, req.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to update IP count: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_agent_counts (user_agent, count, first_seen, last_seen)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(user_agent) DO UPDATE SET
			count = count + 1,
			last_seen = excluded.last_seen
	`, req.UserAgent, req.Timestamp, req.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to update user agent count: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE stats
		SET total_requests = total_requests + 1,
		    total_draws = total_draws + ?,
		    updated_at = ?
		WHERE id = 1
	`, req.Draws, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Summary returns the totals and distinct client counts.
func (d *Database) Summary(ctx context.Context) (Summary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var s Summary
	err := d.db.QueryRowContext(ctx, `
		SELECT start_time, total_requests, total_draws,
		       (SELECT COUNT(*) FROM ip_counts),
		       (SELECT COUNT(*) FROM user_agent_counts)
		FROM stats
		WHERE id = 1
	`).Scan(&s.StartTime, &s.TotalRequests, &s.TotalDraws, &s.UniqueIPs, &s.UniqueUserAgents)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to query stats: %w", err)
	}
	return s, nil
}

// RecentRequests returns the most recent requests, newest first.
func (d *Database) RecentRequests(ctx context.Context, limit int) ([]RequestInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, `
		SELECT ip, user_agent, path, status, draws, timestamp
		FROM request_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent requests: %w", err)
	}
	defer rows.Close()

	var requests []RequestInfo
	for rows.Next() {
		var req RequestInfo
		if err := rows.Scan(&req.IP, &req.UserAgent, &req.Path, &req.Status, &req.Draws, &req.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requests: %w", err)
	}
	return requests, nil
}

// TopIPs returns the busiest client IPs.
func (d *Database) TopIPs(ctx context.Context, limit int) ([]CountEntry, error) {
	return d.topCounts(ctx, `SELECT ip, count FROM ip_counts ORDER BY count DESC, ip LIMIT ?`, limit)
}

// TopUserAgents returns the most common user agents.
func (d *Database) TopUserAgents(ctx context.Context, limit int) ([]CountEntry, error) {
	return d.topCounts(ctx, `SELECT user_agent, count FROM user_agent_counts ORDER BY count DESC, user_agent LIMIT ?`, limit)
}

func (d *Database) topCounts(ctx context.Context, query string, limit int) ([]CountEntry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query counts: %w", err)
	}
	defer rows.Close()

	var result []CountEntry
	for rows.Next() {
		var entry CountEntry
		if err := rows.Scan(&entry.Label, &entry.Count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}
	return result, nil
}

// StartRun records the start of a generator run.
func (d *Database) StartRun(ctx context.Context, source string, start time.Time) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.db.ExecContext(ctx, `
		INSERT INTO generator_runs (start_time, source, corrections)
		VALUES (?, ?, 0)
	`, start, source)
	if err != nil {
		return 0, fmt.Errorf("failed to insert generator run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read generator run id: %w", err)
	}
	return id, nil
}

// FinishRun closes a generator run.
func (d *Database) FinishRun(ctx context.Context, id int64, end time.Time, corrections uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.db.ExecContext(ctx, `
		UPDATE generator_runs
		SET end_time = ?, corrections = ?
		WHERE id = ?
	`, end, int64(corrections), id)
	if err != nil {
		return fmt.Errorf("failed to finish generator run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("generator run %d not found", id)
	}
	return nil
}

// Runs returns the most recent generator runs, newest first.
func (d *Database) Runs(ctx context.Context, limit int) ([]GeneratorRun, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, start_time, end_time, source, corrections
		FROM generator_runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query generator runs: %w", err)
	}
	defer rows.Close()

	var runs []GeneratorRun
	for rows.Next() {
		var (
			run         GeneratorRun
			end         sql.NullTime
			corrections int64
		)
		if err := rows.Scan(&run.ID, &run.Start, &end, &run.Source, &corrections); err != nil {
			return nil, fmt.Errorf("failed to scan generator run: %w", err)
		}
		if end.Valid {
			run.End = end.Time
		}
		run.Corrections = uint64(corrections)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating generator runs: %w", err)
	}
	return runs, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
