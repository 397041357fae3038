package main

import (
	"context"
	"errors"

	"nexuscalc/internal/modkit/repokit"
	"nexuscalc/internal/platform/config"
	"nexuscalc/internal/platform/logger"
	"nexuscalc/internal/platform/store"
	anamod "nexuscalc/internal/services/analysis/module"
	anarepo "nexuscalc/internal/services/analysis/repo"
	anasvc "nexuscalc/internal/services/analysis/service"
	"nexuscalc/internal/services/analysis/sink"
	refdomain "nexuscalc/internal/services/refdata/domain"
	refmod "nexuscalc/internal/services/refdata/module"
	refrepo "nexuscalc/internal/services/refdata/repo"
	refsvc "nexuscalc/internal/services/refdata/service"
)

var errNoPostgres = errors.New("SERVICE_PGSQL_DBURL is required for this command")

// env is the service graph a command runs against
type env struct {
	st  *store.Store
	db  repokit.TxRunner
	ref *refsvc.Svc
	ana *anasvc.Svc
}

// open wires the services; postgres and clickhouse are opened only when needStore is set
func open(ctx context.Context, g *globals, needStore bool) (*env, error) {
	root := config.New()
	e := &env{}

	if needStore {
		cfg := store.ConfigFrom(root, "cli")
		if !cfg.PG.Enabled {
			return nil, errNoPostgres
		}
		st, err := store.Open(ctx, cfg, store.WithLogger(*logger.Get()))
		if err != nil {
			return nil, err
		}
		e.st, e.db = st, st.PG
	}

	refOpts := refmod.FromConfig(root).Service()
	if g.refdata != "" {
		refOpts.Source, refOpts.File = refdomain.SourceFile, g.refdata
	}
	switch {
	case e.db != nil:
		e.ref = refsvc.New(e.db, refrepo.NewPG(), refOpts)
	case refOpts.Source == refdomain.SourcePG:
		e.Close()
		return nil, errors.New("CORE_REFDATA_SOURCE=pg needs SERVICE_PGSQL_DBURL; pass --refdata to run offline")
	default:
		e.ref = refsvc.New(nil, nil, refOpts)
	}

	d := anasvc.Deps{Refdata: e.ref}
	if e.db != nil {
		d.PG, d.Binder = e.db, anarepo.NewPG()
		if e.st.CH != nil {
			d.Sink = sink.New(e.st.CH)
		}
	}
	e.ana = anasvc.New(d, anamod.FromConfig(root).Service)
	return e, nil
}

// Close releases the store when one was opened
func (e *env) Close() {
	if e == nil || e.st == nil {
		return
	}
	if err := e.st.Close(context.Background()); err != nil {
		logger.Get().Error().Err(err).Msg("failed to close store")
	}
}
