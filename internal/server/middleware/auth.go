package middleware

import (
	"crypto/subtle"
	"net/http"
	"slices"
	"strings"
)

// wsPath accepts the key as an api_key query parameter, since browsers
// cannot set headers on a WebSocket handshake.
const wsPath = "/ws"

// Auth requires the configured API key as a Bearer token or an X-API-Key
// header. An empty apiKey disables the check. Paths listed in public skip it.
func Auth(apiKey string, public ...string) func(http.Handler) http.Handler {
	want := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" || slices.Contains(public, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			switch token := requestToken(r); {
			case token == "":
				writeJSONError(w, http.StatusUnauthorized, "missing authentication token")
			case subtle.ConstantTimeCompare([]byte(token), want) != 1:
				writeJSONError(w, http.StatusUnauthorized, "invalid authentication token")
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func requestToken(r *http.Request) string {
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	if r.URL.Path == wsPath {
		return r.URL.Query().Get("api_key")
	}
	return ""
}
