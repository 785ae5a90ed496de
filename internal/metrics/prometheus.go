package metrics

import (
	"net/http"
	"strconv"
	"strings"
)

// Handler serves the registry in Prometheus text exposition format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(Render(r.Snapshot())))
	})
}

// Render formats a snapshot in Prometheus text exposition format.
func Render(s Snapshot) string {
	var b strings.Builder
	b.Grow(1024)

	for id, d := range counterDefs {
		writeMetric(&b, d, "counter", strconv.FormatUint(s.Counters[id], 10))
	}
	writeMetric(&b, correctionsDef, "counter", strconv.FormatUint(s.Corrections, 10))

	available := "0"
	if s.Available {
		available = "1"
	}
	writeMetric(&b, availableDef, "gauge", available)
	writeMetric(&b, queueDef, "gauge", strconv.Itoa(s.QueueDepth))
	return b.String()
}

func writeMetric(b *strings.Builder, d def, kind, value string) {
	b.WriteString("# HELP ")
	b.WriteString(d.name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(d.help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(d.name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
	b.WriteString(d.name)
	b.WriteByte(' ')
	b.WriteString(value)
	b.WriteByte('\n')
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}
