// Package swaggerkit serves the swagger UI and the generated OpenAPI document
package swaggerkit

import (
	"net/http"

	"nexuscalc/internal/platform/config"
	phttp "nexuscalc/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Mount serves /api/docs when enabled
func Mount(r phttp.Router, enabled bool) {
	if !enabled {
		return
	}
	r.Get("/api/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/docs/", http.StatusPermanentRedirect)
	})
	r.Get("/api/docs/doc.json", serveDocJSON)
	r.Handle("/api/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName("api"),
		httpSwagger.URL("/api/docs/doc.json"),
	))
}

func serveDocJSON(w http.ResponseWriter, _ *http.Request) {
	suffix := config.New().Prefix("CORE_API_").MayString("DOCS_TITLE_SUFFIX", "")
	body, err := patchSpec(docReader(), "/api/v1", suffix)
	if err != nil {
		http.Error(w, "spec parse error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}
