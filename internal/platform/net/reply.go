package net

import (
	"net/http"

	perr "nexuscalc/internal/platform/errors"
)

// Envelope is the body every endpoint writes.
// Code and Field are set only for failures
type Envelope struct {
	StatusCode int    `json:"status_code"`
	Status     string `json:"status"`
	Code       string `json:"code,omitempty"`
	Field      string `json:"field,omitempty"`
	Error      string `json:"error,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Data       any    `json:"data,omitempty"`
}

// Success wraps data with status
func Success(status int, data any, reqID string) Envelope {
	return Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		RequestID:  reqID,
		Data:       data,
	}
}

// Failure maps err to its http status and envelope; a nil err is a 200
func Failure(err error, reqID string) (int, Envelope) {
	if err == nil {
		return http.StatusOK, Success(http.StatusOK, nil, reqID)
	}
	status := perr.HTTPStatus(err)
	w := perr.WireFrom(err)
	return status, Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		Code:       w.Kind,
		Field:      w.Field,
		Error:      w.Message,
		RequestID:  reqID,
	}
}
