package shared

import (
	"net"
	"net/http"
)

// ClientInfo captures the request origin recorded with auth activity.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// ClientInfoFromRequest reads the caller's address and user agent. RemoteAddr
// has already been rewritten by the RealIP middleware when the request came
// through a trusted proxy.
func ClientInfoFromRequest(r *http.Request) ClientInfo {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	if ip == "" {
		ip = "unknown"
	}
	ua := r.UserAgent()
	if ua == "" {
		ua = "unknown"
	}
	return ClientInfo{IPAddress: ip, UserAgent: ua}
}
