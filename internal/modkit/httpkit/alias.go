// Package httpkit is what service handlers import for routing and responses.
// It re-exports the platform http seam so modules never touch chi or the envelope writer
package httpkit

import (
	"net/http"

	phttp "nexuscalc/internal/platform/net/http"
)

type (
	// Router is the platform router seam
	Router = phttp.Router
	// Handler is the platform handler func
	Handler = phttp.Handler
	// Response is a return-style handler result
	Response = phttp.Response
)

// OK is a 200 with data
func OK(data any) Response { return phttp.OK(data) }

// Created is a 201 with data
func Created(data any) Response { return phttp.Created(data) }

// Error maps err to its status and failure envelope
func Error(err error) Response { return phttp.Error(err) }

// Param returns a path parameter such as {id}
func Param(r *http.Request, name string) string { return phttp.URLParam(r, name) }
