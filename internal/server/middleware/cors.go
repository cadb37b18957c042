package middleware

import (
	"net/http"
	"strings"
)

// CORS preflight values for the chat endpoint.
const (
	CORSAllowMethods = "GET, POST, OPTIONS"
	CORSAllowHeaders = "Content-Type, Authorization"
	CORSMaxAge       = "86400"
)

// CORS stamps Access-Control-Allow-Origin on every response and answers
// OPTIONS preflights with 200 and an empty body.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	origin := strings.TrimSpace(allowedOrigin)
	if origin == "" {
		origin = "*"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", CORSAllowMethods)
				w.Header().Set("Access-Control-Allow-Headers", CORSAllowHeaders)
				w.Header().Set("Access-Control-Max-Age", CORSMaxAge)
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
