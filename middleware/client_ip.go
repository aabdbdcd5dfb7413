package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	goCaptcha "github.com/MrEthical07/goCaptcha"
)

// ClientIP stores the caller address in the request context. With
// trustProxy the right-most X-Forwarded-For entry wins, which is the hop
// appended by the proxy in front of the server. Entries to its left are
// client supplied and never consulted.
func ClientIP(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := RequestIP(r, trustProxy)
			next.ServeHTTP(w, r.WithContext(goCaptcha.WithClientIP(r.Context(), ip)))
		})
	}
}

// RequestIP returns the textual caller address of r, or "" when it cannot
// be determined.
func RequestIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if values := r.Header.Values("X-Forwarded-For"); len(values) > 0 {
			hops := strings.Split(values[len(values)-1], ",")
			last := strings.TrimSpace(hops[len(hops)-1])
			if addr, err := netip.ParseAddr(last); err == nil {
				return addr.Unmap().WithZone("").String()
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return ""
	}
	return addr.Unmap().WithZone("").String()
}
