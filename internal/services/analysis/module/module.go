// Package module wires analysis into the API using modkit
package module

import (
	"context"

	modkit "nexuscalc/internal/modkit"
	"nexuscalc/internal/modkit/httpkit"
	anahttp "nexuscalc/internal/services/analysis/http"
	"nexuscalc/internal/services/analysis/metrics"
	anarepo "nexuscalc/internal/services/analysis/repo"
	anasvc "nexuscalc/internal/services/analysis/service"
	"nexuscalc/internal/services/analysis/sink"
	refdomain "nexuscalc/internal/services/refdata/domain"
)

// Deps are the ports analysis consumes from other modules
type Deps struct {
	Refdata refdomain.GatewayPort
	Metrics *metrics.Metrics
}

// Module implements the analysis module
type Module struct {
	modkit.Built

	svc     anasvc.Service
	ports   Ports
	maxBody int64
	migrate bool
}

// New constructs the analysis module. Postgres and ClickHouse are optional
func New(deps modkit.Deps, cross Deps, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("analysis"), modkit.WithPrefix("/analysis")}, opts...)...)

	sd := anasvc.Deps{Refdata: cross.Refdata, Sink: sink.New(deps.CH), Metrics: cross.Metrics}
	if deps.PG != nil {
		sd.PG, sd.Binder = deps.PG, anarepo.NewPG()
	}
	svc := anasvc.New(sd, opt.Service)

	return &Module{
		Built:   b,
		svc:     svc,
		ports:   Ports{Runner: svc, Importer: svc},
		maxBody: int64(opt.MaxBodyMB) << 20,
		migrate: opt.Migrate,
	}
}

// Start runs schema migrations when enabled
func (m *Module) Start(ctx context.Context) error {
	if !m.migrate {
		return nil
	}
	return m.svc.Migrate(ctx)
}

// MountRoutes mounts /nexus, /vda, /transactions and /runs/{id}
func (m *Module) MountRoutes(r httpkit.Router) {
	m.Mount(r, func(rr httpkit.Router) { anahttp.Register(rr, m.svc, m.maxBody) })
}
