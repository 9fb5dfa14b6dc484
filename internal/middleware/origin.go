package middleware

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// OriginChecker applies the CORS allow-list to websocket upgrades. Requests
// without an Origin header and same-host pages are always accepted, so the
// page served by this process can reach its own socket.
func OriginChecker(allowed []string) func(*http.Request) bool {
	wildcard := slices.Contains(allowed, "*")

	return func(r *http.Request) bool {
		if wildcard {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}
