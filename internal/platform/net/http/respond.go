// Package http is the transport seam: a router interface over chi, return-style handlers and the JSON envelope writer
package http

import (
	"encoding/json"
	stdhttp "net/http"

	pnet "nexuscalc/internal/platform/net"
)

// JSON writes v as application/json with status
func JSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Response is what return-style handlers produce. An error Body is written as a failure envelope
type Response struct {
	Status int
	Body   any
	Header stdhttp.Header
}

// Handle adapts a Response returning func to a platform Handler
func Handle(h func(r *stdhttp.Request) Response) Handler {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		h(r).write(w, r)
	}
}

func (resp Response) write(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	status := resp.Status
	if status == 0 {
		status = stdhttp.StatusOK
	}
	if status == stdhttp.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	reqID := pnet.RequestID(r.Context())
	if err, ok := resp.Body.(error); ok && err != nil {
		status, env := pnet.Failure(err, reqID)
		JSON(w, status, env)
		return
	}
	JSON(w, status, pnet.Success(status, resp.Body, reqID))
}

// OK is a 200 with data
func OK(data any) Response { return Response{Status: stdhttp.StatusOK, Body: data} }

// Created is a 201 with data
func Created(data any) Response { return Response{Status: stdhttp.StatusCreated, Body: data} }

// NoContent is an empty 204
func NoContent() Response { return Response{Status: stdhttp.StatusNoContent} }

// Error maps err to its status and failure envelope
func Error(err error) Response { return Response{Body: err} }
