package admin

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/rampantspark/gohwrng/internal/stats"
)

const (
	topItems          = 10
	maxUserAgentLabel = 50
	recentLimit       = 50
	runsLimit         = 20
)

// Status describes the generator as shown on the dashboard.
type Status struct {
	Version      string `json:"version"`
	Source       string `json:"source"`
	Available    bool   `json:"available"`
	Corrections  uint64 `json:"corrections"`
	UniformRange bool   `json:"uniformRange"`
	Workers      int    `json:"workers"`
	QueueDepth   int    `json:"queueDepth"`
	RateLimited  uint64 `json:"rateLimited"`
	Clients      int    `json:"trackedClients"`
}

// StatusFunc reports the current generator status.
type StatusFunc func() Status

// Handler serves the admin dashboard.
type Handler struct {
	auth     *Authenticator
	stats    *stats.Manager
	status   StatusFunc
	renderer *Renderer
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler creates a dashboard handler.
//
// Parameters:
//   - auth: authenticator guarding every route
//   - statsManager: source of usage statistics and generator runs
//   - status: reports live generator state; may be nil
//   - logger: structured logger instance
func NewHandler(auth *Authenticator, statsManager *stats.Manager, status StatusFunc, logger *slog.Logger) *Handler {
	if status == nil {
		status = func() Status { return Status{} }
	}
	return &Handler{
		auth:     auth,
		stats:    statsManager,
		status:   status,
		renderer: NewRenderer(auth.Path()),
		logger:   logger,
		now:      time.Now,
	}
}

// Register mounts the dashboard, login and data routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	p := h.auth.Path()
	mux.HandleFunc("GET "+p, h.HandleUI)
	mux.HandleFunc("GET "+p+"/login", h.HandleLogin)
	mux.HandleFunc("GET "+p+"/data", h.HandleData)
}

// Path returns the secret dashboard path.
func (h *Handler) Path() string {
	return h.auth.Path()
}

// LoginURL returns the one-click login link for host.
func (h *Handler) LoginURL(host string) string {
	return h.auth.LoginURL(host)
}

// AdminURL returns the dashboard URL for host.
func (h *Handler) AdminURL(host string) string {
	return h.auth.AdminURL(host)
}

// HandleLogin checks the token query parameter, sets the session cookie
// and redirects to the dashboard so the token leaves the address bar.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.auth.ValidateToken(r.URL.Query().Get("token")) {
		h.logger.Warn("Failed admin login attempt",
			"ip", h.stats.GetClientIP(r),
			"user_agent", r.Header.Get("User-Agent"))
		h.forbidden(w)
		return
	}

	h.logger.Info("Successful admin login", "ip", h.stats.GetClientIP(r))
	h.auth.SetCookie(w)
	http.Redirect(w, r, h.auth.Path(), http.StatusSeeOther)
}

// dataResponse is the JSON document served by HandleData.
type dataResponse struct {
	Generator Status               `json:"generator"`
	Uptime    string               `json:"uptime"`
	Summary   stats.Summary        `json:"summary"`
	Charts    stats.ChartData      `json:"charts"`
	Runs      []stats.GeneratorRun `json:"runs"`
}

// HandleData returns the dashboard contents as JSON.
func (h *Handler) HandleData(w http.ResponseWriter, r *http.Request) {
	h.setSecurityHeaders(w, "")
	if !h.auth.IsAuthenticated(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid or missing admin token"})
		return
	}

	ctx := r.Context()
	resp := dataResponse{
		Generator: h.status(),
		Uptime:    h.stats.Uptime(ctx).Round(time.Second).String(),
		Summary:   h.stats.Summary(ctx),
		Charts:    h.stats.GetChartData(ctx, topItems, maxUserAgentLabel),
		Runs:      h.stats.GetRuns(ctx, runsLimit),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Debug("Failed to write admin data", "error", err)
	}
}

// HandleUI renders the dashboard. A valid token in the query string is
// accepted once and upgraded to a cookie.
func (h *Handler) HandleUI(w http.ResponseWriter, r *http.Request) {
	if !h.auth.IsAuthenticated(r) {
		h.forbidden(w)
		return
	}
	if _, err := r.Cookie(cookieName); err != nil {
		h.auth.SetCookie(w)
	}

	ctx := r.Context()
	if ctx.Err() != nil {
		return
	}

	page := Page{
		Generator: h.status(),
		Summary:   h.stats.Summary(ctx),
		Uptime:    h.stats.Uptime(ctx),
		Charts:    h.stats.GetChartData(ctx, topItems, maxUserAgentLabel),
		Runs:      h.stats.GetRuns(ctx, runsLimit),
		Recent:    h.stats.GetRecentRequests(ctx, recentLimit),
		Now:       h.now(),
		Nonce:     h.generateNonce(),
	}

	h.setSecurityHeaders(w, page.Nonce)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, h.renderer.Render(page))
}

func (h *Handler) forbidden(w http.ResponseWriter) {
	h.setSecurityHeaders(w, "")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	io.WriteString(w, "<!DOCTYPE html>\n<html>\n<head><title>Access Denied</title></head>\n<body>\n<h1>403 Forbidden</h1>\n<p>Invalid or missing admin token.</p>\n</body>\n</html>")
}

// generateNonce returns a base64 CSP nonce, or "" if the system CSPRNG
// fails, in which case inline scripts are simply blocked.
func (h *Handler) generateNonce() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		h.logger.Error("Failed to generate CSP nonce", "error", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(b)
}

func (h *Handler) setSecurityHeaders(w http.ResponseWriter, nonce string) {
	scriptSrc := "script-src 'none'"
	if nonce != "" {
		scriptSrc = "script-src 'nonce-" + nonce + "'"
	}
	hdr := w.Header()
	hdr.Set("Content-Security-Policy",
		"default-src 'self'; "+scriptSrc+"; style-src 'self' 'unsafe-inline'; frame-ancestors 'none'")
	hdr.Set("X-Frame-Options", "DENY")
	hdr.Set("X-Content-Type-Options", "nosniff")
	hdr.Set("Referrer-Policy", "no-referrer")
	hdr.Set("Cache-Control", "no-store")
}
