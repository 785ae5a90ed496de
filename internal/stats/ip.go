package stats

import (
	"net"
	"net/http"
	"strings"
)

// IPResolver works out which client address a request belongs to.
type IPResolver struct {
	trustProxy bool
}

// NewIPResolver creates a new IP resolver. With trustProxy set the
// X-Forwarded-For and X-Real-IP headers are honoured.
func NewIPResolver(trustProxy bool) *IPResolver {
	return &IPResolver{trustProxy: trustProxy}
}

// GetClientIP returns the client address of r.
//
// When proxies are trusted the first X-Forwarded-For hop wins, then
// X-Real-IP. Header values that do not parse as IPs are ignored. Otherwise
// the host part of RemoteAddr is used.
func (resolver *IPResolver) GetClientIP(r *http.Request) string {
	if resolver.trustProxy {
		first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		for _, candidate := range []string{first, r.Header.Get("X-Real-IP")} {
			candidate = strings.TrimSpace(candidate)
			if net.ParseIP(candidate) != nil {
				return candidate
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	return r.RemoteAddr
}
