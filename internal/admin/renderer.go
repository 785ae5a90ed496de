package admin

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rampantspark/gohwrng/internal/stats"
)

// refreshInterval is how often the dashboard reloads itself.
const refreshInterval = 30 * time.Second

// Page holds everything one dashboard render needs.
type Page struct {
	Generator Status
	Summary   stats.Summary
	Uptime    time.Duration
	Charts    stats.ChartData
	Runs      []stats.GeneratorRun
	Recent    []stats.RequestInfo
	Now       time.Time
	Nonce     string
}

// Renderer builds the dashboard HTML.
type Renderer struct {
	adminPath string
}

// NewRenderer creates a renderer for the dashboard mounted at adminPath.
func NewRenderer(adminPath string) *Renderer {
	return &Renderer{adminPath: adminPath}
}

// Render returns the complete dashboard document for p.
func (r *Renderer) Render(p Page) string {
	var sb strings.Builder

	r.writeHeader(&sb)
	r.writeGenerator(&sb, p.Generator)
	r.writeUsage(&sb, p)
	r.writeRuns(&sb, p.Runs, p.Now)
	r.writeCounts(&sb, "Top IP Addresses", "IP Address", p.Charts.TopIPs.Labels, p.Charts.TopIPs.Data)
	r.writeCounts(&sb, "Top User Agents", "User Agent", p.Charts.TopUserAgents.Labels, p.Charts.TopUserAgents.Data)
	r.writeRecent(&sb, p.Recent, p.Now)
	if p.Nonce != "" {
		fmt.Fprintf(&sb, "<script nonce=\"%s\">setTimeout(function(){location.reload();}, %d);</script>\n",
			html.EscapeString(p.Nonce), refreshInterval.Milliseconds())
	}
	sb.WriteString("</body>\n</html>")

	return sb.String()
}

func (r *Renderer) writeHeader(sb *strings.Builder) {
	sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	sb.WriteString("<meta charset=\"utf-8\">\n")
	sb.WriteString("<title>gohwrng - dashboard</title>\n")
	sb.WriteString("<style>\n")
	sb.WriteString("body { font-family: monospace; margin: 20px; background: #f4f4f2; }\n")
	sb.WriteString(".box { background: white; padding: 15px; margin: 10px 0; border-radius: 5px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }\n")
	sb.WriteString("table { width: 100%; border-collapse: collapse; margin-top: 10px; }\n")
	sb.WriteString("th, td { padding: 6px 8px; text-align: left; border-bottom: 1px solid #ddd; }\n")
	sb.WriteString("th { background-color: #2f5d8a; color: white; }\n")
	sb.WriteString(".bar { background: #2f5d8a; height: 10px; }\n")
	sb.WriteString(".ok { color: #2e7d32; } .bad { color: #c62828; }\n")
	sb.WriteString("</style>\n")
	sb.WriteString("</head>\n<body>\n")
	fmt.Fprintf(sb, "<h1><a href=\"%s\">gohwrng</a></h1>\n", html.EscapeString(r.adminPath))
}

func (r *Renderer) writeGenerator(sb *strings.Builder, s Status) {
	avail := "<span class=\"bad\">unavailable</span>"
	if s.Available {
		avail = "<span class=\"ok\">available</span>"
	}
	mode := "modulo"
	if s.UniformRange {
		mode = "uniform"
	}

	sb.WriteString("<div class=\"box\">\n<h2>Generator</h2>\n")
	writeField(sb, "Version", html.EscapeString(s.Version))
	writeField(sb, "Source", html.EscapeString(s.Source)+" ("+avail+")")
	writeField(sb, "Corrections", humanize.Comma(int64(s.Corrections)))
	writeField(sb, "Range mode", mode)
	writeField(sb, "Workers", strconv.Itoa(s.Workers))
	writeField(sb, "Queued tasks", humanize.Comma(int64(s.QueueDepth)))
	writeField(sb, "Tracked clients", humanize.Comma(int64(s.Clients)))
	writeField(sb, "Rate-limited requests", humanize.Comma(int64(s.RateLimited)))
	sb.WriteString("</div>\n")
}

func (r *Renderer) writeUsage(sb *strings.Builder, p Page) {
	sb.WriteString("<div class=\"box\">\n<h2>Usage</h2>\n")
	writeField(sb, "Uptime", html.EscapeString(p.Uptime.Round(time.Second).String()))
	if !p.Summary.StartTime.IsZero() {
		writeField(sb, "Tracking since", html.EscapeString(humanize.RelTime(p.Summary.StartTime, p.Now, "ago", "from now")))
	}
	writeField(sb, "Total requests", humanize.Comma(p.Summary.TotalRequests))
	writeField(sb, "Total draws", humanize.Comma(p.Summary.TotalDraws))
	writeField(sb, "Unique IPs", humanize.Comma(int64(p.Summary.UniqueIPs)))
	writeField(sb, "Unique user agents", humanize.Comma(int64(p.Summary.UniqueUserAgents)))
	sb.WriteString("</div>\n")
}

func (r *Renderer) writeRuns(sb *strings.Builder, runs []stats.GeneratorRun, now time.Time) {
	sb.WriteString("<div class=\"box\">\n<h2>Generator Runs</h2>\n")
	if len(runs) == 0 {
		sb.WriteString("<p>No runs recorded.</p>\n</div>\n")
		return
	}
	sb.WriteString("<table>\n<tr><th>#</th><th>Source</th><th>Started</th><th>Duration</th><th>Corrections</th></tr>\n")
	for _, run := range runs {
		end, duration := run.End, ""
		if run.Active() {
			end = now
			duration = " (active)"
		}
		fmt.Fprintf(sb, "<tr><td>%d</td><td>%s</td><td>%s</td><td>%s%s</td><td>%s</td></tr>\n",
			run.ID,
			html.EscapeString(run.Source),
			html.EscapeString(humanize.RelTime(run.Start, now, "ago", "from now")),
			html.EscapeString(end.Sub(run.Start).Round(time.Second).String()),
			duration,
			humanize.Comma(int64(run.Corrections)))
	}
	sb.WriteString("</table>\n</div>\n")
}

// writeCounts renders a ranked table with a proportional bar per row.
func (r *Renderer) writeCounts(sb *strings.Builder, title, column string, labels []string, counts []int) {
	fmt.Fprintf(sb, "<div class=\"box\">\n<h2>%s</h2>\n", html.EscapeString(title))
	if len(labels) == 0 {
		sb.WriteString("<p>No requests yet.</p>\n</div>\n")
		return
	}
	peak := 1
	for _, c := range counts {
		peak = max(peak, c)
	}
	fmt.Fprintf(sb, "<table>\n<tr><th>%s</th><th>Requests</th><th></th></tr>\n", html.EscapeString(column))
	for i, label := range labels {
		if i >= len(counts) {
			break
		}
		fmt.Fprintf(sb, "<tr><td>%s</td><td>%s</td><td><div class=\"bar\" style=\"width: %d%%\"></div></td></tr>\n",
			html.EscapeString(label),
			humanize.Comma(int64(counts[i])),
			counts[i]*100/peak)
	}
	sb.WriteString("</table>\n</div>\n")
}

func (r *Renderer) writeRecent(sb *strings.Builder, recent []stats.RequestInfo, now time.Time) {
	sb.WriteString("<div class=\"box\">\n<h2>Recent Requests</h2>\n")
	if len(recent) == 0 {
		sb.WriteString("<p>No requests yet.</p>\n</div>\n")
		return
	}
	sb.WriteString("<table>\n<tr><th>When</th><th>IP</th><th>Path</th><th>Status</th><th>Draws</th><th>User Agent</th></tr>\n")
	for _, req := range recent {
		fmt.Fprintf(sb, "<tr><td title=\"%s\">%s</td><td>%s</td><td>%s</td><td>%d</td><td>%d</td><td>%s</td></tr>\n",
			html.EscapeString(req.Timestamp.Format(time.RFC3339)),
			html.EscapeString(humanize.RelTime(req.Timestamp, now, "ago", "from now")),
			html.EscapeString(req.IP),
			html.EscapeString(req.Path),
			req.Status,
			req.Draws,
			html.EscapeString(req.UserAgent))
	}
	sb.WriteString("</table>\n</div>\n")
}

func writeField(sb *strings.Builder, name, value string) {
	fmt.Fprintf(sb, "<p><strong>%s:</strong> %s</p>\n", name, value)
}
