package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	perr "nexuscalc/internal/platform/errors"
	pnet "nexuscalc/internal/platform/net"
	"nexuscalc/internal/platform/net/middleware"
)

func writeStub(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
}

func TestClientScope_NoHeaderPassesThrough(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = pnet.ClientID(r.Context())
		w.WriteHeader(200)
	})
	mw := middleware.ClientScope(func(string) error { return errors.New("never") }, writeStub)

	rr := httptest.NewRecorder()
	mw(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != 200 || seen != "" {
		t.Fatalf("code=%d client=%q", rr.Code, seen)
	}
}

func TestClientScope_SetsClientOnContext(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = pnet.ClientID(r.Context())
	})
	mw := middleware.ClientScope(nil, writeStub)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.ClientHeader, " 0b7f1f3e-2d7b-4c1e-9a8e-2f1c3b4d5e6f ")
	mw(next).ServeHTTP(httptest.NewRecorder(), req)
	if seen != "0b7f1f3e-2d7b-4c1e-9a8e-2f1c3b4d5e6f" {
		t.Fatalf("client = %q", seen)
	}
}

func TestClientScope_RejectsInvalid(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	mw := middleware.ClientScope(func(string) error { return perr.InvalidArgf("bad client id") }, writeStub)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.ClientHeader, "nope")
	rr := httptest.NewRecorder()
	mw(next).ServeHTTP(rr, req)
	if called || rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("called=%v code=%d", called, rr.Code)
	}
}
