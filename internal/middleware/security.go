package middleware

import (
	"fmt"
	"net/http"
)

// SecurityHeaders sets the browser hardening headers the web front end is
// served with. uploadDomain is allowed as a connect and media source.
func SecurityHeaders(uploadDomain string) func(http.Handler) http.Handler {
	csp := fmt.Sprintf("default-src 'self'; img-src 'self' data:; "+
		"connect-src 'self' https://api.tixte.com https://%[1]s; media-src 'self' https://%[1]s; frame-src 'self';",
		uploadDomain)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", csp)
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
			next.ServeHTTP(w, r)
		})
	}
}
