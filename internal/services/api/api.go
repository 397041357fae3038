// Package api provides the HTTP API for the application
package api

import (
	"context"
	"fmt"

	"nexuscalc/internal/platform/config"
	"nexuscalc/internal/platform/logger"
	phttp "nexuscalc/internal/platform/net/http"
	"nexuscalc/internal/platform/store"

	"nexuscalc/internal/modkit"
	"nexuscalc/internal/modkit/httpkit"
	"nexuscalc/internal/modkit/module"
	"nexuscalc/internal/modkit/swaggerkit"

	anametrics "nexuscalc/internal/services/analysis/metrics"
	anamod "nexuscalc/internal/services/analysis/module"
	metamod "nexuscalc/internal/services/api/meta/module"
	refdomain "nexuscalc/internal/services/refdata/domain"
	refmod "nexuscalc/internal/services/refdata/module"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool

	// Registry receives the service metrics and is served on /metrics; nil disables both
	Registry *prometheus.Registry
}

// starter is a module with boot work such as schema migrations
type starter interface {
	Start(ctx context.Context) error
}

// Mount mounts the API service onto the given router and runs module boot hooks
func Mount(ctx context.Context, r phttp.Router, opt Options) error {
	root := config.New()

	// shared deps for modules; optional stores stay nil interfaces
	deps := modkit.Deps{Cfg: root}
	if opt.Store != nil {
		if opt.Store.PG != nil {
			deps.PG = opt.Store.PG
		}
		if opt.Store.CH != nil {
			deps.CH = opt.Store.CH
		}
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}

	// reference data first; analysis and meta consume its gateway
	refdata := refmod.New(deps, refmod.FromConfig(root))
	gateway := module.MustPortsOf[refdomain.GatewayPort](refdata)

	var metrics *anametrics.Metrics
	if opt.Registry != nil {
		metrics = anametrics.New(opt.Registry)
	}
	analysis := anamod.New(deps, anamod.Deps{Refdata: gateway, Metrics: metrics}, anamod.FromConfig(root))

	mods := []module.Module{
		metamod.New(deps, modkit.WithPorts(metamod.Ports{Refdata: gateway})),
		refdata,
		analysis,
	}

	for _, m := range mods {
		if s, ok := m.(starter); ok {
			if err := s.Start(ctx); err != nil {
				return fmt.Errorf("start %s: %w", m.Name(), err)
			}
		}
	}

	stack := httpkit.CommonStackWith(httpkit.StackOptions{
		CORSOrigins: opt.Config.MayCSV("CORS_ORIGINS", nil),
		Timeout:     opt.Config.MayDuration("REQUEST_TIMEOUT", 0),
	})

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, stack, func(api httpkit.Router) {
		// Swagger + profiler
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			m.MountRoutes(api)
		}
	})

	if opt.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opt.Registry, promhttp.HandlerOpts{Registry: opt.Registry}))
	}
	return nil
}
