// Package http provides http transport for reference data
package http

import (
	stdhttp "net/http"

	"nexuscalc/internal/modkit/httpkit"
	svc "nexuscalc/internal/services/refdata/service"
)

// Register mounts reference data endpoints on the given router
func Register(r httpkit.Router, s svc.Service) {
	h := &handlers{svc: s}

	httpkit.Get(r, "/", h.info)
	httpkit.Get(r, "/jurisdictions", h.jurisdictions)
	httpkit.Get(r, "/jurisdictions/{code}/rules", h.rules)
	httpkit.Post(r, "/reload", h.reload)
}

type handlers struct{ svc svc.Service }

// swagger:route GET /refdata Refdata refdataInfo
// @Summary Describe the reference data snapshot in use
// @Tags Refdata
// @Produce json
// @Success 200 {object} domain.SnapshotInfo "ok"
// @Router /refdata [get]
func (h *handlers) info(r *stdhttp.Request) (any, error) {
	return h.svc.Info(r.Context())
}

// swagger:route GET /refdata/jurisdictions Refdata refdataJurisdictions
// @Summary List jurisdictions
// @Tags Refdata
// @Produce json
// @Success 200 {array} domain.JurisdictionView "ok"
// @Router /refdata/jurisdictions [get]
func (h *handlers) jurisdictions(r *stdhttp.Request) (any, error) {
	return h.svc.Jurisdictions(r.Context())
}

// swagger:route GET /refdata/jurisdictions/{code}/rules Refdata refdataRules
// @Summary List threshold rule versions for a jurisdiction
// @Tags Refdata
// @Produce json
// @Param code path string true "Jurisdiction code"
// @Success 200 {array} domain.RuleView "ok"
// @Router /refdata/jurisdictions/{code}/rules [get]
func (h *handlers) rules(r *stdhttp.Request) (any, error) {
	return h.svc.Rules(r.Context(), httpkit.Param(r, "code"))
}

// swagger:route POST /refdata/reload Refdata refdataReload
// @Summary Reload the reference data snapshot from its source
// @Tags Refdata
// @Produce json
// @Success 200 {object} domain.SnapshotInfo "ok"
// @Router /refdata/reload [post]
func (h *handlers) reload(r *stdhttp.Request) (any, error) {
	return h.svc.Reload(r.Context())
}
