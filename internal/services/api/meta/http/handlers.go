// Package http provides meta endpoints
package http

import (
	stdctx "context"
	"net/http"
	"time"

	"nexuscalc/internal/core/version"
	"nexuscalc/internal/modkit/httpkit"
	refdomain "nexuscalc/internal/services/refdata/domain"
)

// Pinger is a store handle that can report connectivity
type Pinger interface {
	Ping(stdctx.Context) error
}

// RefdataInfo reports the reference data snapshot in use
type RefdataInfo interface {
	Info(stdctx.Context) (refdomain.SnapshotInfo, error)
}

// Deps are the handler dependencies
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	// PG and CH are nil when the store is not configured; the check is then skipped
	PG           Pinger
	CH           Pinger
	Refdata      RefdataInfo
	ReadyTimeout time.Duration
}

type handlers struct {
	deps Deps
}

// Register mounts the meta routes
func Register(r httpkit.Router, d Deps) {
	if d.ReadyTimeout <= 0 {
		d.ReadyTimeout = 2 * time.Second
	}
	h := &handlers{deps: d}

	httpkit.Get(r, "/health", h.health)
	httpkit.Get(r, "/ready", h.ready)
	httpkit.Get(r, "/version", h.version)
	httpkit.Get(r, "/service", h.service)
}

// HealthResponse is the health payload
// swagger:model
type HealthResponse struct {
	OK      bool   `json:"ok"       example:"true"`
	Service string `json:"service"  example:"nexus-api"`
	Started string `json:"started"  example:"2025-09-03T13:00:00Z"`
	Now     string `json:"now"      example:"2025-09-03T13:05:00Z"`
}

// ReadyCheck describes a single dependency check
type ReadyCheck struct {
	Name   string `json:"name"   example:"pg"`
	Status string `json:"status" example:"ok"` // ok fail skipped
	Detail string `json:"detail,omitempty" example:"2025.2"`
	Error  string `json:"error,omitempty" example:"dial tcp 127.0.0.1:5432 connect: connection refused"`
}

// ReadyResponse summarizes readiness; storage that is not configured is skipped, not failed
type ReadyResponse struct {
	Status string       `json:"status" example:"ok"` // ok fail
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"    example:"2025-09-03T13:05:00Z"`
}

// ServiceResponse describes service info
type ServiceResponse struct {
	Name    string `json:"name"    example:"nexus-api"`
	Started string `json:"started" example:"2025-09-03T13:00:00Z"`
	Uptime  int64  `json:"uptime"  example:"300"`
}

// swagger:route GET /meta/health Meta metaHealth
// @Summary Health check
// @Tags Meta
// @Produce json
// @Success 200 {object} HealthResponse "ok"
// @Router /meta/health [get]
func (h *handlers) health(_ *http.Request) (any, error) {
	return HealthResponse{
		OK:      true,
		Service: h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Now:     time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// swagger:route GET /meta/ready Meta metaReady
// @Summary Readiness probe with dependency and reference data checks
// @Tags Meta
// @Produce json
// @Success 200 {object} ReadyResponse "ok"
// @Failure 503 {object} ReadyResponse "a dependency check failed"
// @Router /meta/ready [get]
func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := stdctx.WithTimeout(r.Context(), h.deps.ReadyTimeout)
	defer cancel()

	ping := func(name string, p Pinger) ReadyCheck {
		if p == nil {
			return ReadyCheck{Name: name, Status: "skipped"}
		}
		if err := p.Ping(ctx); err != nil {
			return ReadyCheck{Name: name, Status: "fail", Error: err.Error()}
		}
		return ReadyCheck{Name: name, Status: "ok"}
	}

	checks := []ReadyCheck{ping("pg", h.deps.PG), ping("ch", h.deps.CH), h.refdata(ctx)}

	overall := "ok"
	for _, c := range checks {
		if c.Status == "fail" {
			overall = "fail"
		}
	}
	resp := ReadyResponse{
		Status: overall,
		Checks: checks,
		Now:    time.Now().UTC().Format(time.RFC3339),
	}
	if overall == "fail" {
		return httpkit.Response{Status: http.StatusServiceUnavailable, Body: resp}, nil
	}
	return resp, nil
}

func (h *handlers) refdata(ctx stdctx.Context) ReadyCheck {
	if h.deps.Refdata == nil {
		return ReadyCheck{Name: "refdata", Status: "skipped"}
	}
	info, err := h.deps.Refdata.Info(ctx)
	if err != nil {
		return ReadyCheck{Name: "refdata", Status: "fail", Error: err.Error()}
	}
	return ReadyCheck{Name: "refdata", Status: "ok", Detail: info.Version}
}

// swagger:route GET /meta/version Meta metaVersion
// @Summary Build and version info
// @Tags Meta
// @Produce json
// @Success 200 {object} version.BuildInfo "ok"
// @Router /meta/version [get]
func (h *handlers) version(_ *http.Request) (any, error) {
	return version.WithService(h.deps.ServiceName), nil
}

// swagger:route GET /meta/service Meta metaService
// @Summary Service info and uptime
// @Tags Meta
// @Produce json
// @Success 200 {object} ServiceResponse "ok"
// @Router /meta/service [get]
func (h *handlers) service(_ *http.Request) (any, error) {
	uptime := time.Since(h.deps.StartedAt)
	return ServiceResponse{
		Name:    h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(uptime / time.Second),
	}, nil
}
