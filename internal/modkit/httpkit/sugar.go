package httpkit

import (
	"net/http"

	phttp "nexuscalc/internal/platform/net/http"
	"nexuscalc/internal/platform/net/http/bind"
)

// Get mounts a body-less handler under GET
func Get(r Router, path string, h func(*http.Request) (any, error)) {
	r.Get(path, phttp.NoBodyHandler(h))
}

// Post mounts a body-less handler under POST
func Post(r Router, path string, h func(*http.Request) (any, error)) {
	r.Post(path, phttp.NoBodyHandler(h))
}

// PostValidated mounts a strict JSON handler under POST; maxBytes <= 0 keeps the 1MB default
func PostValidated[T any](r Router, path string, maxBytes int64, h func(*http.Request, T) (any, error)) {
	opts := bind.DefaultJSONOptions()
	if maxBytes > 0 {
		opts.MaxBytes = maxBytes
	}
	r.Post(path, phttp.JSONHandler(h, opts))
}
