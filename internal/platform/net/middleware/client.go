package middleware

import (
	"net/http"
	"strings"

	"nexuscalc/internal/platform/logger"
	pnet "nexuscalc/internal/platform/net"
)

// ClientHeader carries the client whose ledger a request reads
const ClientHeader = "X-Client-ID"

// ClientScope copies X-Client-ID onto the request context and tags the request logger
// with request_id and client_id. validate may be nil; a validation error is written
// through write and stops the chain
func ClientScope(validate func(string) error, write func(w http.ResponseWriter, status int, body any)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := pnet.RequestID(r.Context())
			cid := strings.TrimSpace(r.Header.Get(ClientHeader))
			if cid != "" && validate != nil {
				if err := validate(cid); err != nil {
					status, body := pnet.Failure(err, reqID)
					write(w, status, body)
					return
				}
			}
			ctx := pnet.WithRequest(r.Context(), "", cid)
			ctx = logger.WithRequest(ctx, reqID, cid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
