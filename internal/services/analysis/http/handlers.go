// Package http provides http transport for nexus analysis
package http

import (
	stdhttp "net/http"

	"nexuscalc/internal/modkit/httpkit"
	"nexuscalc/internal/services/analysis/domain"
	svc "nexuscalc/internal/services/analysis/service"
)

// Register mounts analysis endpoints; maxBody bounds request bodies carrying transactions
func Register(r httpkit.Router, s svc.Service, maxBody int64) {
	h := &handlers{svc: s}

	// full nexus + liability analysis
	httpkit.PostValidated[domain.AnalyzeInput](r, "/nexus", maxBody, h.analyze)

	// voluntary disclosure model over a run or a fresh analysis
	httpkit.PostValidated[domain.VDAInput](r, "/vda", maxBody, h.vda)

	// store ledger rows for later analysis
	httpkit.PostValidated[domain.ImportInput](r, "/transactions", maxBody, h.importTransactions)

	// stored run with determinations
	httpkit.Get(r, "/runs/{id}", h.run)
}

type handlers struct{ svc svc.Service }

// swagger:route POST /analysis/nexus Analysis analysisNexus
// @Summary Determine nexus, obligation dates and liability per jurisdiction
// @Tags Analysis
// @Accept json
// @Produce json
// @Param X-Client-ID header string false "Client scope (uuid)"
// @Param payload body domain.AnalyzeInput true "Analysis request"
// @Success 200 {object} domain.AnalyzeResult "ok"
// @Router /analysis/nexus [post]
func (h *handlers) analyze(r *stdhttp.Request, in domain.AnalyzeInput) (any, error) {
	return h.svc.Analyze(r.Context(), in)
}

// swagger:route POST /analysis/vda Analysis analysisVDA
// @Summary Model a voluntary disclosure agreement for selected jurisdictions
// @Tags Analysis
// @Accept json
// @Produce json
// @Param X-Client-ID header string false "Client scope (uuid)"
// @Param payload body domain.VDAInput true "VDA request"
// @Success 200 {object} domain.VDAResult "ok"
// @Router /analysis/vda [post]
func (h *handlers) vda(r *stdhttp.Request, in domain.VDAInput) (any, error) {
	return h.svc.VDA(r.Context(), in)
}

// swagger:route POST /analysis/transactions Analysis analysisImport
// @Summary Import ledger transactions for a client
// @Tags Analysis
// @Accept json
// @Produce json
// @Param X-Client-ID header string false "Client scope (uuid)"
// @Param payload body domain.ImportInput true "Transactions"
// @Success 200 {object} domain.ImportResult "ok"
// @Router /analysis/transactions [post]
func (h *handlers) importTransactions(r *stdhttp.Request, in domain.ImportInput) (any, error) {
	return h.svc.Import(r.Context(), in)
}

// swagger:route GET /analysis/runs/{id} Analysis analysisRun
// @Summary Fetch a stored analysis run and its determinations
// @Tags Analysis
// @Produce json
// @Param X-Client-ID header string false "Client scope (uuid)"
// @Param id path string true "Run id"
// @Success 200 {object} domain.Run "ok"
// @Router /analysis/runs/{id} [get]
func (h *handlers) run(r *stdhttp.Request) (any, error) {
	return h.svc.Run(r.Context(), httpkit.Param(r, "id"))
}
