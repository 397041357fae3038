// Package pg owns the pgx pool and the query tracing hook
package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the subset of pool settings the store exposes
type Config struct {
	URL      string
	MaxConns int32
	SlowMs   int // 0 disables slow query flagging
}

// PG is an open pool with its tracing settings
type PG struct {
	Pool   *pgxpool.Pool
	Tracer QueryTracer // nil disables tracing
	SlowMs int
}

// newPool is swapped in tests
var newPool = pgxpool.NewWithConfig

// Open parses cfg.URL and starts a pool. mutate, when set, sees the parsed pool config
// last and may override anything. The pool connects lazily; callers ping.
func Open(ctx context.Context, cfg Config, tracer QueryTracer, mutate func(*pgxpool.Config)) (*PG, error) {
	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if mutate != nil {
		mutate(pc)
	}
	pool, err := newPool(ctx, pc)
	if err != nil {
		return nil, err
	}
	return &PG{Pool: pool, Tracer: tracer, SlowMs: cfg.SlowMs}, nil
}

// Close closes the pool; nil safe
func (p *PG) Close() {
	if p == nil || p.Pool == nil {
		return
	}
	p.Pool.Close()
}
