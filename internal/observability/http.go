package observability

import (
	"net"
	"net/http"
	"strings"
)

// RequestIDFromRequest reads the caller's request id. Browsers cannot set
// headers on a websocket upgrade, so the request_id query parameter is
// accepted as well. Empty when the caller sent neither.
func RequestIDFromRequest(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get("request_id"))
}

// ClientIP returns the first non-empty X-Forwarded-For hop, then X-Real-IP,
// then the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	for _, hop := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if hop = strings.TrimSpace(hop); hop != "" {
			return hop
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
