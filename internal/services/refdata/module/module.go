// Package module wires reference data into the API using modkit
package module

import (
	modkit "nexuscalc/internal/modkit"
	"nexuscalc/internal/modkit/httpkit"
	refhttp "nexuscalc/internal/services/refdata/http"
	refrepo "nexuscalc/internal/services/refdata/repo"
	refsvc "nexuscalc/internal/services/refdata/service"
)

// Module implements the refdata module
type Module struct {
	modkit.Built

	svc   refsvc.Service
	ports Ports
}

// New constructs the refdata module. A pg source without a postgres handle panics
func New(deps modkit.Deps, opt Options, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("refdata"), modkit.WithPrefix("/refdata")}, opts...)...)

	var svc *refsvc.Svc
	if deps.PG != nil {
		svc = refsvc.New(deps.PG, refrepo.NewPG(), opt.Service())
	} else {
		svc = refsvc.New(nil, nil, opt.Service())
	}
	return &Module{Built: b, svc: svc, ports: Ports{Gateway: svc, Seeder: svc}}
}

// MountRoutes mounts the dataset, jurisdiction and reload routes
func (m *Module) MountRoutes(r httpkit.Router) {
	m.Mount(r, func(rr httpkit.Router) { refhttp.Register(rr, m.svc) })
}
