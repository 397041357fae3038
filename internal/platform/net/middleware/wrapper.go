// Package middleware holds the HTTP middleware stack: chi adapters plus in house access log, recovery and client scoping
package middleware

import (
	"net/http"
	"time"

	pstrings "nexuscalc/internal/platform/strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

// RequestID propagates X-Request-ID or mints one
func RequestID() func(http.Handler) http.Handler { return chimw.RequestID }

// RealIP trusts X-Forwarded-For and X-Real-IP for RemoteAddr
func RealIP() func(http.Handler) http.Handler { return chimw.RealIP }

// Timeout cancels the request context after d
func Timeout(d time.Duration) func(http.Handler) http.Handler { return chimw.Timeout(d) }

// NoCache disables client and proxy caching
func NoCache() func(http.Handler) http.Handler { return chimw.NoCache }

// Compress gzips/deflates responses at level
func Compress(level int) func(http.Handler) http.Handler {
	return chimw.NewCompressor(level).Handler
}

// StripSlashes drops a trailing slash before routing
func StripSlashes() func(http.Handler) http.Handler { return chimw.StripSlashes }

// CORSOptions is the subset of go-chi/cors we configure
type CORSOptions struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// CORS applies o with GET/POST and the request/client id headers by default
func CORS(o CORSOptions) func(http.Handler) http.Handler {
	return chicors.Handler(chicors.Options{
		AllowedOrigins: o.AllowedOrigins,
		AllowedMethods: pstrings.IfEmpty(o.AllowedMethods, []string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		AllowedHeaders: pstrings.IfEmpty(o.AllowedHeaders, []string{"Accept", "Content-Type", "X-Request-ID", ClientHeader}),
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         o.MaxAge,
	})
}
