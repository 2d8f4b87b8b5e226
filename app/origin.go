package projecthub

import (
	"net/http"
	"slices"
	"strings"
)

// originChecker accepts requests whose Origin header is in allowed.
// A "*" entry accepts every origin and requests without an Origin header are always accepted.
func originChecker(allowed []string) func(r *http.Request) bool {
	if slices.Contains(allowed, "*") {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.ContainsFunc(allowed, func(o string) bool {
			return strings.EqualFold(strings.TrimSuffix(o, "/"), origin)
		})
	}
}
