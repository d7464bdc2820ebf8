package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyHeader is the header the REST backend expects the anon key in.
const APIKeyHeader = "apikey"

// APIKey rejects requests that do not present the shared key both in the
// apikey header and as an Authorization bearer token. An empty key disables
// the check, which is how the local development store runs.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			if !keyMatches(r.Header.Get(APIKeyHeader), key) {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid apikey header")
				return
			}

			scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
			if !found || !strings.EqualFold(scheme, "bearer") || !keyMatches(token, key) {
				writeJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid bearer token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func keyMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
