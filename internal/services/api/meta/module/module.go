// Package module wires meta endpoints into the API
package module

import (
	"time"

	modkit "nexuscalc/internal/modkit"
	"nexuscalc/internal/modkit/httpkit"
	metahttp "nexuscalc/internal/services/api/meta/http"
)

// ServiceName identifies the API in meta payloads
const ServiceName = "nexus-api"

// Ports are the cross module ports meta consumes
type Ports struct {
	Refdata metahttp.RefdataInfo
}

// Module serves health, readiness, version and service info
type Module struct {
	modkit.Built

	handlers metahttp.Deps
}

// New constructs the meta module; pass Ports through modkit.WithPorts for the refdata check
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("meta"), modkit.WithPrefix("/meta")}, opts...)...)

	d := metahttp.Deps{
		ServiceName:  ServiceName,
		StartedAt:    time.Now(),
		ReadyTimeout: deps.Cfg.Prefix("CORE_META_").MayDuration("READY_TIMEOUT", 2*time.Second),
	}
	if p, ok := deps.PG.(metahttp.Pinger); ok {
		d.PG = p
	}
	if p, ok := deps.CH.(metahttp.Pinger); ok {
		d.CH = p
	}
	if p, ok := b.Cross().(Ports); ok {
		d.Refdata = p.Refdata
	}
	return &Module{Built: b, handlers: d}
}

// MountRoutes mounts /health, /ready, /version and /service
func (m *Module) MountRoutes(r httpkit.Router) {
	m.Mount(r, func(rr httpkit.Router) { metahttp.Register(rr, m.handlers) })
}

// Ports returns nil; meta exposes nothing to other modules
func (m *Module) Ports() any { return nil }
