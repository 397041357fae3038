// @title         Nexus API
// @version       0.1.0
// @description   Sales tax nexus determination, liability and voluntary disclosure modeling

//go:generate swag init --v3.1 -g main.go -d ./,../../internal/services -o ../../internal/services/api/docs

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"nexuscalc/internal/modkit/repokit"
	"nexuscalc/internal/platform/config"
	"nexuscalc/internal/platform/config/raw"
	"nexuscalc/internal/platform/logger"
	phttp "nexuscalc/internal/platform/net/http"
	"nexuscalc/internal/platform/store"

	"nexuscalc/internal/services/api"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// a local .env is optional; real env wins
	_ = raw.LoadDotenv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// service-scoped config for HTTP etc (CORE_API_*)
	root := config.New()
	apiCfg := root.Prefix("CORE_API_")

	// bring up logging early
	l := logger.Get()

	// postgres and clickhouse are optional; without them analyses run inline only
	st, err := store.Open(ctx, store.ConfigFrom(root, "api"), store.WithLogger(*l))
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	repokit.MustGuard(ctx, st)
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	var reg *prometheus.Registry
	if apiCfg.MayBool("METRICS", true) {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	// http server (reads CORE_API_PORT)
	srv := phttp.NewServer(root.Prefix("CORE_"))

	if err := api.Mount(ctx, srv.Router(), api.Options{
		Config:         apiCfg,
		Store:          st,
		Logger:         l,
		EnableSwagger:  apiCfg.MayBool("SWAGGER", true),
		EnableProfiler: apiCfg.MayBool("PROFILER", false),
		Registry:       reg,
	}); err != nil {
		l.Panic().Err(err).Msg("api mount failed")
	}

	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			l.Error().Err(err).Msg("http shutdown")
		}
	}()

	if err := srv.Run(ctx); err != nil {
		l.Panic().Err(err).Msg("http server stopped")
	}
}
