// Package errors is the structured error used across services, imported as perr.
// Every error that reaches a client or a report carries an ErrorCode that fixes its
// kind label and HTTP status.
package errors

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies an error. Values are part of the wire format; append only
type ErrorCode uint16

const (
	ErrorCodeUnknown         ErrorCode = iota
	ErrorCodePanic                     // recovered by middleware
	ErrorCodeUnavailable               // backend not configured or not ready
	ErrorCodeConflict                  // transaction contention that outlived its retries
	ErrorCodeInvalidArgument           // well formed but unacceptable input
	ErrorCodeValidation                // malformed transaction rows and request bodies
	ErrorCodeJSON                      // undecodable body
	ErrorCodeNotFound
	ErrorCodeDuplicateKey
	ErrorCodeDB
	ErrorCodeReferenceData // missing or inconsistent jurisdiction data
	ErrorCodeInconsistent  // amounts that do not add up; flagged, never corrected
)

type codeInfo struct {
	name   string
	status int
}

var codes = map[ErrorCode]codeInfo{
	ErrorCodeUnknown:         {"unknown", http.StatusInternalServerError},
	ErrorCodePanic:           {"panic", http.StatusInternalServerError},
	ErrorCodeUnavailable:     {"unavailable", http.StatusServiceUnavailable},
	ErrorCodeConflict:        {"conflict", http.StatusConflict},
	ErrorCodeInvalidArgument: {"invalid_argument", http.StatusUnprocessableEntity},
	ErrorCodeValidation:      {"validation", http.StatusBadRequest},
	ErrorCodeJSON:            {"json", http.StatusBadRequest},
	ErrorCodeNotFound:        {"not_found", http.StatusNotFound},
	ErrorCodeDuplicateKey:    {"duplicate_key", http.StatusConflict},
	ErrorCodeDB:              {"db", http.StatusInternalServerError},
	ErrorCodeReferenceData:   {"reference_data", http.StatusUnprocessableEntity},
	ErrorCodeInconsistent:    {"arithmetic_inconsistency", http.StatusUnprocessableEntity},
}

// String returns the stable label used on the wire, in logs and in metrics
func (c ErrorCode) String() string {
	if ci, ok := codes[c]; ok {
		return ci.name
	}
	return fmt.Sprintf("code_%d", uint16(c))
}

// Status is the HTTP status for c; unmapped codes are 500
func (c ErrorCode) Status() int {
	if ci, ok := codes[c]; ok {
		return ci.status
	}
	return http.StatusInternalServerError
}

// ErrNotFound is a sentinel not found error for convenience
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error is the structured error type with wrapping and metadata
// msg is human facing; code is machine facing
// field names the offending input, if any
type Error struct {
	orig  error
	msg   string
	code  ErrorCode
	field string
}

// Wire is the JSON-serializable form returned by the API and embedded in reports
type Wire struct {
	Code    ErrorCode `json:"code"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// ToWire converts an *Error to a Wire payload
// the message carries the wrapped cause so reports stay human readable
func (e *Error) ToWire() Wire {
	return Wire{Code: e.code, Kind: e.code.String(), Message: e.Error(), Field: e.field}
}

// WireFrom converts any error into a Wire payload with best-effort mapping
// If err is nil, returns the zero-value Wire
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Code: ErrorCodeUnknown, Kind: ErrorCodeUnknown.String(), Message: err.Error()}
}

// WirePtr is WireFrom returning nil for a nil error
func WirePtr(err error) *Wire {
	if err == nil {
		return nil
	}
	w := WireFrom(err)
	return &w
}

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// HTTPStatus returns the mapped HTTP status for any error
func HTTPStatus(err error) int { return CodeOf(err).Status() }

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// WithField attaches a field to an *Error (copy-on-write). Foreign errors pass through
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// NotFoundf returns a not found error
func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }

// InvalidArgf returns an invalid argument error
func InvalidArgf(format string, a ...any) error { return Newf(ErrorCodeInvalidArgument, format, a...) }

// Validationf returns a validation error
func Validationf(format string, a ...any) error { return Newf(ErrorCodeValidation, format, a...) }

// ReferenceDataf returns a reference data error
func ReferenceDataf(format string, a ...any) error { return Newf(ErrorCodeReferenceData, format, a...) }

// Inconsistentf returns an arithmetic inconsistency error
func Inconsistentf(format string, a ...any) error { return Newf(ErrorCodeInconsistent, format, a...) }

// DBf returns a general database error
func DBf(format string, a ...any) error { return Newf(ErrorCodeDB, format, a...) }

// JSONErrf returns a JSON error
func JSONErrf(format string, a ...any) error { return Newf(ErrorCodeJSON, format, a...) }

// PanicErrf returns a panic error
func PanicErrf(format string, a ...any) error { return Newf(ErrorCodePanic, format, a...) }

// Unavailablef returns an unavailable error
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }
