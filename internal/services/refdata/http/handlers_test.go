package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	phttp "nexuscalc/internal/platform/net/http"
	"nexuscalc/internal/services/refdata/domain"
	refhttp "nexuscalc/internal/services/refdata/http"
	refsvc "nexuscalc/internal/services/refdata/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dataset = `
version: http-1
jurisdictions:
  CO:
    name: Colorado
    rate: 0.029
    rules:
      - effective_from: 2019-06-01
        revenue_threshold: 100000
`

type envelope[T any] struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Data       T      `json:"data"`
}

func serve(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	p := filepath.Join(t.TempDir(), "refdata.yaml")
	require.NoError(t, os.WriteFile(p, []byte(dataset), 0o600))

	r := phttp.AdaptChi(chi.NewRouter())
	refhttp.Register(r, refsvc.New(nil, nil, refsvc.Options{Source: domain.SourceFile, File: p}))

	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestInfo(t *testing.T) {
	rec := serve(t, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope[domain.SnapshotInfo]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "http-1", env.Data.Version)
	assert.Equal(t, domain.SourceFile, env.Data.Source)
}

func TestJurisdictions(t *testing.T) {
	rec := serve(t, http.MethodGet, "/jurisdictions")
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope[[]domain.JurisdictionView]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, "CO", env.Data[0].Code)
}

func TestRules(t *testing.T) {
	rec := serve(t, http.MethodGet, "/jurisdictions/co/rules")
	require.Equal(t, http.StatusOK, rec.Code)

	var env envelope[[]domain.RuleView]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Len(t, env.Data, 1)
	assert.Equal(t, "2019-06-01", env.Data[0].EffectiveFrom)
}

func TestRules_UnknownJurisdiction(t *testing.T) {
	rec := serve(t, http.MethodGet, "/jurisdictions/ZZ/rules")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReload(t *testing.T) {
	rec := serve(t, http.MethodPost, "/reload")
	assert.Equal(t, http.StatusOK, rec.Code)
}
