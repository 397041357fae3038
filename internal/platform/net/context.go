// Package net carries request scoped ids and the response envelope shared by transports
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const keyClientID ctxKey = "client_id"

// WithRequest stores a request id and client scope on ctx; blank values are skipped
func WithRequest(ctx context.Context, reqID, clientID string) context.Context {
	if reqID != "" {
		// chi's key so chimw.GetReqID sees ids set outside its middleware
		ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	}
	if clientID != "" {
		ctx = context.WithValue(ctx, keyClientID, clientID)
	}
	return ctx
}

// RequestID returns the request id on ctx or ""
func RequestID(ctx context.Context) string { return chimw.GetReqID(ctx) }

// ClientID returns the client whose ledger the request reads, or "" when unscoped
func ClientID(ctx context.Context) string {
	v, _ := ctx.Value(keyClientID).(string)
	return v
}
