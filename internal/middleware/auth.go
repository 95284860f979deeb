package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/agentforge/agentforge/internal/models"
)

var publicPaths = map[string]bool{
	"/":       true,
	"/health": true,
}

// Auth rejects requests without a configured API key. The key is read
// from headerName, then a bearer token, then the api_key cookie.
func Auth(apiKeys []string, headerName string) func(http.Handler) http.Handler {
	keys := make([][]byte, 0, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			keys = append(keys, []byte(k))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			key := requestKey(r, headerName)
			if key == "" {
				models.WriteError(w, http.StatusUnauthorized, "API key required")
				return
			}
			if !knownKey(keys, key) {
				models.WriteError(w, http.StatusForbidden, "invalid API key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requestKey(r *http.Request, headerName string) string {
	if key := r.Header.Get(headerName); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if c, err := r.Cookie("api_key"); err == nil {
		return c.Value
	}
	return ""
}

func knownKey(keys [][]byte, key string) bool {
	for _, k := range keys {
		if subtle.ConstantTimeCompare(k, []byte(key)) == 1 {
			return true
		}
	}
	return false
}
