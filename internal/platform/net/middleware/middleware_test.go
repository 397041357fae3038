package middleware_test

import (
	"compress/flate"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pnet "nexuscalc/internal/platform/net"
	"nexuscalc/internal/platform/net/middleware"
)

func TestAccessLog_PassesThrough(t *testing.T) {
	for _, slow := range []time.Duration{0, time.Nanosecond} {
		h := middleware.AccessLog(slow)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, "imported")
			_, _ = io.WriteString(w, " 3")
		}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/analysis/transactions", nil))
		if rr.Code != 201 || rr.Body.String() != "imported 3" {
			t.Fatalf("slow=%v: code=%d body=%q", slow, rr.Code, rr.Body.String())
		}
	}
}

func TestRecoverJSON(t *testing.T) {
	h := middleware.RequestID()(middleware.RecoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil dataset")
	})))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/refdata/", nil)
	req.Header.Set("X-Request-ID", "req-77")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != 500 || rr.Header().Get("X-Request-ID") != "req-77" {
		t.Fatalf("code=%d headers=%v", rr.Code, rr.Header())
	}
	var env pnet.Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Code != "panic" || env.RequestID != "req-77" || env.Error != "internal error" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestRecoverJSON_RepanicsAbort(t *testing.T) {
	h := middleware.RecoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if recover() != http.ErrAbortHandler {
			t.Fatal("ErrAbortHandler should propagate")
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestCORS_Preflight(t *testing.T) {
	h := middleware.CORS(middleware.CORSOptions{AllowedOrigins: []string{"https://app.example.com"}})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) }))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/analysis/nexus", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", middleware.ClientHeader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unlisted origin allowed")
	}
}

func TestChiAdapters(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, r.URL.Path)
	})
	stack := []func(http.Handler) http.Handler{
		middleware.RealIP(),
		middleware.NoCache(),
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes(),
		middleware.Timeout(time.Second),
	}
	var h http.Handler = ok
	for i := len(stack) - 1; i >= 0; i-- {
		h = stack[i](h)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/meta/version/", nil))
	if rr.Body.String() != "/api/v1/meta/version" {
		t.Fatalf("path = %q", rr.Body.String())
	}
	if rr.Header().Get("Cache-Control") == "" {
		t.Fatal("no cache headers missing")
	}
}
