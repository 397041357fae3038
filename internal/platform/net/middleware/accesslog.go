package middleware

import (
	"net/http"
	"time"

	"nexuscalc/internal/platform/logger"
)

// DefaultSlow is the elapsed time that turns an access log line into a warning
const DefaultSlow = 500 * time.Millisecond

type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *recorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// AccessLog writes one line per request through the request scoped logger.
// Requests at or over slow log at warn; slow <= 0 uses DefaultSlow
func AccessLog(slow time.Duration) func(http.Handler) http.Handler {
	if slow <= 0 {
		slow = DefaultSlow
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &recorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rw, r)
			elapsed := time.Since(start)

			log := logger.C(r.Context())
			evt := log.Info()
			switch {
			case rw.status >= http.StatusInternalServerError:
				evt = log.Error()
			case elapsed >= slow:
				evt = log.Warn()
			}
			evt.Int("status", rw.status).
				Dur("elapsed", elapsed).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("bytes", rw.bytes).
				Msg("request done")
		})
	}
}
