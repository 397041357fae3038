package store

import (
	"context"
	"fmt"
	"time"

	chx "nexuscalc/internal/platform/store/ch"
	"nexuscalc/internal/platform/store/pg"
)

const (
	defaultConnectRetries = 20
	defaultPingTimeout    = 3 * time.Second
	backoffStart          = 150 * time.Millisecond
	backoffCeiling        = 2 * time.Second
)

// openPG opens pg and wraps it with our sql adapter
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	var tracer pg.QueryTracer
	if cfg.PG.LogSQL {
		tracer = pg.Tracer(s.Log)
	}

	p, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		SlowMs:   cfg.PG.SlowQueryMs,
	}, tracer, nil)
	if err != nil {
		return nil, err
	}

	attempts := cfg.PG.ConnectRetries
	if attempts <= 0 {
		attempts = defaultConnectRetries
	}
	pingTimeout := cfg.PG.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = defaultPingTimeout
	}

	// ping the pool directly so boot retries stay out of the sql trace
	var lastErr error
	backoff := backoffStart
	for i := 0; i < attempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = p.Pool.Ping(toCtx)
		cancel()

		if lastErr == nil {
			a := newPGAdapter(p)
			s.PG = a
			return a, nil
		}
		if ctx.Err() != nil {
			p.Close()
			return nil, ctx.Err()
		}
		s.Log.Debug().Int("attempt", i+1).Err(lastErr).Msg("postgres not ready")
		time.Sleep(backoff)
		if backoff < backoffCeiling {
			backoff = min(backoff*2, backoffCeiling)
		}
	}

	p.Close()
	return nil, fmt.Errorf("postgres ping failed after %d attempts: %w", attempts, lastErr)
}

func openCH(ctx context.Context, cfg Config, s *Store) (Clickhouse, error) {
	role := cfg.CH.ClientName
	if role == "" {
		role = cfg.AppName
	}
	c := chx.Config{URL: cfg.CH.URL, Role: role, Tag: cfg.CH.ClientTag}
	if cfg.CH.LogSQL && s != nil {
		log := s.Log
		c.Debugf = func(format string, v ...any) {
			log.Debug().Str("component", "clickhouse").Msgf(format, v...)
		}
	}
	cl, err := chx.Open(ctx, c)
	if err != nil {
		return nil, err
	}
	return newCHAdapter(cl), nil
}
