package api

import (
	"crypto/subtle"
	"net/http"
)

// RequireAPIKey wraps next so that every request must carry key in header.
//
// If mode != "apikey" or key == "", all requests pass through. A missing or
// wrong key gets 401.
func RequireAPIKey(mode, header, key string, next http.Handler) http.Handler {
	if mode != "apikey" || key == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(header)
		if got == "" {
			jsonErr(w, http.StatusUnauthorized, "missing api key")
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			jsonErr(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
