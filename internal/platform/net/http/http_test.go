package http_test

import (
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "nexuscalc/internal/platform/errors"
	pnet "nexuscalc/internal/platform/net"
	phttp "nexuscalc/internal/platform/net/http"
	"nexuscalc/internal/platform/net/http/bind"

	"github.com/go-chi/chi/v5"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) pnet.Envelope {
	t.Helper()
	var env pnet.Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return env
}

func serve(h phttp.Handler, req *stdhttp.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestHandle_Success(t *testing.T) {
	h := phttp.Handle(func(*stdhttp.Request) phttp.Response {
		resp := phttp.Created(map[string]int{"imported": 2})
		resp.Header = stdhttp.Header{"Location": {"/api/v1/analysis/runs/1"}}
		return resp
	})
	req := httptest.NewRequest(stdhttp.MethodPost, "/", nil)
	req = req.WithContext(pnet.WithRequest(req.Context(), "req-9", ""))
	rr := serve(h, req)

	if rr.Code != 201 || rr.Header().Get("Location") == "" {
		t.Fatalf("code=%d headers=%v", rr.Code, rr.Header())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type = %q", ct)
	}
	env := decode(t, rr)
	if env.StatusCode != 201 || env.RequestID != "req-9" || env.Error != "" {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestHandle_ErrorAndNoContent(t *testing.T) {
	rr := serve(phttp.Handle(func(*stdhttp.Request) phttp.Response {
		return phttp.Error(perr.NotFoundf("run not found"))
	}), httptest.NewRequest(stdhttp.MethodGet, "/", nil))
	if rr.Code != 404 {
		t.Fatalf("code = %d", rr.Code)
	}
	if env := decode(t, rr); env.Code != "not_found" || env.Error != "run not found" {
		t.Fatalf("envelope = %+v", env)
	}

	rr = serve(phttp.Handle(func(*stdhttp.Request) phttp.Response { return phttp.NoContent() }),
		httptest.NewRequest(stdhttp.MethodPost, "/", nil))
	if rr.Code != 204 || rr.Body.Len() != 0 {
		t.Fatalf("code=%d body=%q", rr.Code, rr.Body.String())
	}

	rr = serve(phttp.Handle(func(*stdhttp.Request) phttp.Response { return phttp.Response{Body: "x"} }),
		httptest.NewRequest(stdhttp.MethodGet, "/", nil))
	if rr.Code != 200 {
		t.Fatalf("zero status should default to 200, got %d", rr.Code)
	}
}

type lookback struct {
	Months int `json:"months" validate:"required,max=120"`
}

func TestJSONHandler(t *testing.T) {
	h := phttp.JSONHandler(func(_ *stdhttp.Request, in lookback) (any, error) {
		if in.Months == 13 {
			return nil, errors.New("unlucky")
		}
		if in.Months == 12 {
			return phttp.Created(in), nil
		}
		return in, nil
	}, bind.DefaultJSONOptions())

	cases := []struct {
		body string
		code int
	}{
		{`{"months":36}`, 200},
		{`{"months":12}`, 201},
		{`{"months":13}`, 500},
		{`{"months":240}`, 400},
		{`{"months":`, 400},
	}
	for _, tc := range cases {
		rr := serve(h, httptest.NewRequest(stdhttp.MethodPost, "/", strings.NewReader(tc.body)))
		if rr.Code != tc.code {
			t.Errorf("%s: code = %d, want %d", tc.body, rr.Code, tc.code)
		}
	}
}

func TestNoBodyHandler(t *testing.T) {
	rr := serve(phttp.NoBodyHandler(func(*stdhttp.Request) (any, error) {
		return []string{"CO", "TX"}, nil
	}), httptest.NewRequest(stdhttp.MethodGet, "/", nil))
	env := decode(t, rr)
	if rr.Code != 200 || len(env.Data.([]any)) != 2 {
		t.Fatalf("code=%d env=%+v", rr.Code, env)
	}
}

func TestAdaptChi_RoutesAndParams(t *testing.T) {
	mux := chi.NewRouter()
	r := phttp.AdaptChi(mux)

	var order []string
	r.Use(func(next stdhttp.Handler) stdhttp.Handler {
		return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
			order = append(order, "root")
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/refdata", func(sub phttp.Router) {
		sub.Get("/jurisdictions/{code}/rules", func(w stdhttp.ResponseWriter, req *stdhttp.Request) {
			phttp.JSON(w, 200, phttp.URLParam(req, "code"))
		})
		sub.Post("/reload", func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.WriteHeader(202) })
	})
	r.Handle("/metrics", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) { w.WriteHeader(200) }))

	rr := httptest.NewRecorder()
	r.Mux().ServeHTTP(rr, httptest.NewRequest(stdhttp.MethodGet, "/refdata/jurisdictions/CO/rules", nil))
	if rr.Code != 200 || strings.TrimSpace(rr.Body.String()) != `"CO"` {
		t.Fatalf("code=%d body=%q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(stdhttp.MethodPost, "/refdata/reload", nil))
	if rr.Code != 202 {
		t.Fatalf("post code = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(stdhttp.MethodGet, "/refdata/reload", nil))
	if rr.Code != stdhttp.StatusMethodNotAllowed {
		t.Fatalf("wrong method code = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(stdhttp.MethodGet, "/metrics", nil))
	if rr.Code != 200 || len(order) != 4 {
		t.Fatalf("code=%d middleware calls=%d", rr.Code, len(order))
	}
}

func TestMountProfiler(t *testing.T) {
	off := chi.NewRouter()
	phttp.MountProfiler(phttp.AdaptChi(off), "/debug", false)
	rr := httptest.NewRecorder()
	off.ServeHTTP(rr, httptest.NewRequest(stdhttp.MethodGet, "/debug/pprof/", nil))
	if rr.Code != 404 {
		t.Fatalf("disabled profiler served %d", rr.Code)
	}

	on := chi.NewRouter()
	phttp.MountProfiler(phttp.AdaptChi(on), "/debug", true)
	rr = httptest.NewRecorder()
	on.ServeHTTP(rr, httptest.NewRequest(stdhttp.MethodGet, "/debug/pprof/cmdline", nil))
	if rr.Code != 200 {
		t.Fatalf("enabled profiler code = %d", rr.Code)
	}
}
