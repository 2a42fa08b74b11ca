package netutil

import (
	"net/http"
	"net/netip"
	"strings"
)

// NormalizeIP returns the canonical IP portion of a bare address or
// host:port pair, without zone identifiers. The bool reports whether raw
// parsed as an IP.
func NormalizeIP(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return ap.Addr().WithZone("").String(), true
	}
	if addr, err := netip.ParseAddr(strings.Trim(raw, "[]")); err == nil {
		return addr.WithZone("").String(), true
	}
	return raw, false
}

// ClientIP returns the IP of RemoteAddr. Forwarding headers are not read
// here; the router's RealIP middleware has already applied them.
func ClientIP(r *http.Request) string {
	if ip, ok := NormalizeIP(r.RemoteAddr); ok {
		return ip
	}
	return ""
}
