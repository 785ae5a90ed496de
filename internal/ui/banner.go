// Package ui prints the console banner and lifecycle messages for serve mode.
package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Banner is the ASCII art banner for gohwrng.
const Banner = `
              _
  __ _  ___  | |____ __ ___ __ _ _  __ _
 / _' |/ _ \ | '_ \ V  V / '_| ' \/ _' |
 \__, |\___/ |_| |_\_/\_/|_| |_||_\__, |
 |___/                            |___/
`

const rule = "------------------------------------------------------------------"

// StartupInfo holds what serve mode reports at startup.
type StartupInfo struct {
	Version       string
	Source        string
	Available     bool
	RangeMode     string
	Workers       int
	ListenAddr    string
	RateLimit     string
	MaxBytes      int
	Wordlist      string
	PersistMode   string
	Metrics       string
	AdminLoginURL string
	AdminURL      string
	StartedAt     time.Time
}

// PrintBanner writes the ASCII banner to w.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, Banner)
}

// PrintStartupInfo writes a summary of the server configuration to w.
func PrintStartupInfo(w io.Writer, info StartupInfo) {
	started := info.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  gohwrng %s started at %s\n", info.Version, started.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  GENERATOR")
	fmt.Fprintf(w, "     Source:          %s\n", info.Source)
	if !info.Available {
		fmt.Fprintln(w, "     Status:          UNAVAILABLE, draws return zero")
	} else {
		fmt.Fprintln(w, "     Status:          available")
	}
	fmt.Fprintf(w, "     Range mode:      %s\n", info.RangeMode)
	fmt.Fprintf(w, "     Workers:         %d\n", info.Workers)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "  SERVER")
	fmt.Fprintf(w, "     Listen:          %s\n", info.ListenAddr)
	fmt.Fprintf(w, "     Rate limiting:   %s\n", info.RateLimit)
	fmt.Fprintf(w, "     Max bytes:       %s\n", humanize.IBytes(uint64(max(info.MaxBytes, 0))))
	fmt.Fprintf(w, "     Wordlist:        %s\n", orDefault(info.Wordlist, "generated words"))
	fmt.Fprintf(w, "     Statistics:      %s\n", info.PersistMode)
	fmt.Fprintf(w, "     Metrics:         %s\n", orDefault(info.Metrics, "disabled"))
	fmt.Fprintln(w)

	if info.AdminURL != "" {
		fmt.Fprintln(w, "  ADMIN ACCESS")
		fmt.Fprintf(w, "     Login URL:       %s\n", info.AdminLoginURL)
		fmt.Fprintf(w, "     Dashboard:       %s\n", info.AdminURL)
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  The login URL carries the admin token. Keep it out of shared logs.")
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "  Press Ctrl+C to stop the server")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
}

// PrintShutdown writes the shutdown notice.
func PrintShutdown(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "  Server shutting down gracefully...")
	fmt.Fprintln(w, rule)
}

// PrintShutdownComplete writes the final message, including the total
// number of corrections made during the run.
func PrintShutdownComplete(w io.Writer, corrections uint64) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Server stopped (%s corrections)\n", humanize.Comma(int64(corrections)))
	fmt.Fprintln(w)
}

// PrintError writes a formatted error message.
func PrintError(w io.Writer, message string, err error) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  ERROR: %s\n", message)
	if err != nil {
		fmt.Fprintf(w, "     %v\n", err)
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
}

// RateLimitSummary describes the rate limit setting.
func RateLimitSummary(requestsPerSec float64, burst int) string {
	if requestsPerSec <= 0 {
		return "disabled"
	}
	return fmt.Sprintf("%s req/sec (burst: %d)", humanize.Ftoa(requestsPerSec), burst)
}

// WordlistSummary describes a loaded wordlist.
func WordlistSummary(filename string, entries int) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf("%s (%s entries)", filename, humanize.Comma(int64(entries)))
}

// PersistModeSummary describes where statistics are kept.
func PersistModeSummary(dbPath string) string {
	if dbPath != "" {
		return "SQLite database - " + dbPath
	}
	return "in memory"
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
