package swaggerkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	phttp "nexuscalc/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doc = `{
  "swagger": "2.0",
  "info": {"title": "Nexus API", "version": "0.1.0"},
  "paths": {
    "/analyses": {"post": {"responses": {"200": {"description": "OK"}, "422": {"description": "custom"}}}},
    "/healthz": {"get": {}}
  }
}`

func decode(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestPatchSpec(t *testing.T) {
	b, err := patchSpec(doc, "/api/v1", "(staging)")
	require.NoError(t, err)
	spec := decode(t, b)

	assert.Equal(t, "3.0.3", spec["openapi"])
	assert.NotContains(t, spec, "swagger")
	assert.Equal(t, "Nexus API (staging)", spec["info"].(map[string]any)["title"])
	assert.Equal(t, "/api/v1", spec["servers"].([]any)[0].(map[string]any)["url"])
	assert.Contains(t, spec["components"].(map[string]any)["schemas"], "Envelope")

	paths := spec["paths"].(map[string]any)
	post := paths["/analyses"].(map[string]any)["post"].(map[string]any)["responses"].(map[string]any)
	assert.Equal(t, "custom", post["422"].(map[string]any)["description"], "existing responses are kept")
	assert.Contains(t, post, "500")

	health := paths["/healthz"].(map[string]any)["get"].(map[string]any)["responses"].(map[string]any)
	assert.Contains(t, health, "422")
	assert.Contains(t, health, "500")
}

func TestPatchSpecKeepsOAS30(t *testing.T) {
	b, err := patchSpec(`{"openapi":"3.0.1","servers":[{"url":"/x"}]}`, "/api/v1", "")
	require.NoError(t, err)
	spec := decode(t, b)
	assert.Equal(t, "3.0.1", spec["openapi"])
	assert.Equal(t, "/x", spec["servers"].([]any)[0].(map[string]any)["url"])

	_, err = patchSpec("{", "/api/v1", "")
	assert.Error(t, err)
}

func TestMount(t *testing.T) {
	mux := chi.NewRouter()
	Mount(phttp.AdaptChi(mux), true)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs/doc.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Contains(t, decode(t, rec.Body.Bytes()), "servers")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs", nil))
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)

	off := chi.NewRouter()
	Mount(phttp.AdaptChi(off), false)
	rec = httptest.NewRecorder()
	off.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs/doc.json", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
