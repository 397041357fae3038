package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	phttp "nexuscalc/internal/platform/net/http"
	"nexuscalc/internal/services/analysis/domain"
	anahttp "nexuscalc/internal/services/analysis/http"
	anasvc "nexuscalc/internal/services/analysis/service"
	refdomain "nexuscalc/internal/services/refdata/domain"
	refsvc "nexuscalc/internal/services/refdata/service"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope[T any] struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Data       T      `json:"data"`
}

func serve(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	ref := refsvc.New(nil, nil, refsvc.Options{Source: refdomain.SourceEmbedded})
	svc := anasvc.New(anasvc.Deps{Refdata: ref}, anasvc.Options{})

	r := phttp.AdaptChi(chi.NewRouter())
	anahttp.Register(r, svc, 1<<20)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, req)
	return rec
}

const analyzeBody = `{
  "as_of": "2025-06-30",
  "transactions": [
    {"date": "2023-02-01", "jurisdiction": "CO", "gross_amount": "150000"},
    {"date": "2024-02-01", "jurisdiction": "CO", "gross_amount": "oops"},
    {"date": "2024-03-01", "jurisdiction": "co", "gross_amount": "20000", "channel": "marketplace"}
  ]
}`

func TestAnalyze_OK(t *testing.T) {
	// one of three rows is rejected, so allow it through the limit
	ref := refsvc.New(nil, nil, refsvc.Options{Source: refdomain.SourceEmbedded})
	halfRejected := 0.5
	svc := anasvc.New(anasvc.Deps{Refdata: ref}, anasvc.Options{MaxRejectRate: &halfRejected})
	r := phttp.AdaptChi(chi.NewRouter())
	anahttp.Register(r, svc, 0)

	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/nexus", strings.NewReader(analyzeBody)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env envelope[domain.AnalyzeResult]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.NotEmpty(t, env.Data.RunID)
	assert.False(t, env.Data.Persisted)
	assert.Equal(t, 3, env.Data.Batch.Total)
	require.Len(t, env.Data.Batch.Rejected, 1)
	assert.Equal(t, 1, env.Data.Batch.Rejected[0].Row)
	assert.Equal(t, "gross_amount", env.Data.Batch.Rejected[0].Field)

	require.NotNil(t, env.Data.Report)
	require.Len(t, env.Data.Report.Jurisdictions, 1)
	assert.Equal(t, "CO", env.Data.Report.Jurisdictions[0].Jurisdiction)
}

func TestAnalyze_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing as_of", `{"transactions": []}`, http.StatusBadRequest},
		{"bad as_of", `{"as_of": "June"}`, http.StatusBadRequest},
		{"unknown field", `{"as_of": "2025-06-30", "colour": "red"}`, http.StatusBadRequest},
		{"bad exposure", `{"as_of": "2025-06-30", "exposure_from": "yesterday"}`, http.StatusBadRequest},
		{"not json", `{`, http.StatusBadRequest},
		{"nothing to analyze", `{"as_of": "2025-06-30"}`, http.StatusUnprocessableEntity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, http.MethodPost, "/nexus", tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestVDA_Inline(t *testing.T) {
	body := `{
	  "jurisdictions": ["co"],
	  "lookback_months": 24,
	  "analysis": {"as_of": "2025-06-30", "transactions": [
	    {"date": "2023-02-01", "jurisdiction": "CO", "gross_amount": "150000"}
	  ]}
	}`
	rec := serve(t, http.MethodPost, "/vda", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var env envelope[domain.VDAResult]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, []string{"CO"}, env.Data.Scenario.SelectedJurisdictions)
	assert.Equal(t, 24, env.Data.Scenario.LookbackMonths)
}

func TestVDA_RequiresJurisdictions(t *testing.T) {
	rec := serve(t, http.MethodPost, "/vda", `{"run_id": "0b8e0f0e-3d55-4c38-9a58-52f1d2b0f3c4"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImport_WithoutPostgres(t *testing.T) {
	body := `{"client_id": "6f1c3a52-8f7e-4a86-9c55-1f0c2e7b9d11", "transactions": [
	  {"date": "2024-01-01", "jurisdiction": "CO", "gross_amount": "10"}
	]}`
	rec := serve(t, http.MethodPost, "/transactions", body)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
}

func TestRun_BadID(t *testing.T) {
	rec := serve(t, http.MethodGet, "/runs/not-a-uuid", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
}
