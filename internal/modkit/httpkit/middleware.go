package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	perr "nexuscalc/internal/platform/errors"
	phttp "nexuscalc/internal/platform/net/http"
	"nexuscalc/internal/platform/net/middleware"

	"github.com/google/uuid"
)

// StackOptions tunes CommonStackWith; zero values pick the defaults
type StackOptions struct {
	CORSOrigins []string
	Timeout     time.Duration // default 30s
	Slow        time.Duration // default middleware.DefaultSlow
}

// CommonStack is the API middleware stack with defaults
func CommonStack() []func(http.Handler) http.Handler {
	return CommonStackWith(StackOptions{})
}

// CommonStackWith orders ids first, then recovery, client scoping and logging, then transport concerns
func CommonStackWith(o StackOptions) []func(http.Handler) http.Handler {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.RecoverJSON,
		middleware.NoCache(),
		ClientScope(),
		middleware.AccessLog(o.Slow),
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: o.CORSOrigins}),
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes(),
		middleware.Timeout(o.Timeout),
	}
}

// ClientScope requires X-Client-ID, when sent, to be a uuid
func ClientScope() func(http.Handler) http.Handler {
	return middleware.ClientScope(validClientID, phttp.JSON)
}

func validClientID(s string) error {
	if _, err := uuid.Parse(s); err != nil {
		return perr.WithField(perr.InvalidArgf("%s must be a uuid", middleware.ClientHeader), "client_id")
	}
	return nil
}
