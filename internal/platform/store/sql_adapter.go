package store

import (
	"context"
	"time"

	"nexuscalc/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxQuerier is the statement surface shared by *pgxpool.Pool and pgx.Tx
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxTx is the part of pgx.Tx the adapter drives
type pgxTx interface {
	pgxQuerier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// traced runs statements on q and reports each one to tracer
type traced struct {
	q      pgxQuerier
	tracer pg.QueryTracer
	slowUS int64
}

func (t traced) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	start := time.Now()
	ct, err := t.q.Exec(ctx, sql, args...)
	t.emit(ctx, sql, args, start, err)
	return ct, err
}

func (t traced) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	rs, err := t.q.Query(ctx, sql, args...)
	// timed to first row, not to Close
	t.emit(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return rows{rs}, nil
}

// QueryRow reports once Scan returns so the scan error is on the trace
func (t traced) QueryRow(ctx context.Context, sql string, args ...any) Row {
	start := time.Now()
	return row{r: t.q.QueryRow(ctx, sql, args...), after: func(err error) {
		t.emit(ctx, sql, args, start, err)
	}}
}

func (t traced) emit(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if t.tracer == nil {
		return
	}
	us := time.Since(start).Microseconds()
	t.tracer.OnQuery(ctx, pg.QueryEvent{
		SQL:       sql,
		Args:      args,
		ElapsedUS: us,
		Err:       err,
		Slow:      t.slowUS > 0 && us >= t.slowUS,
	})
}

// pgAdapter is the TxRunner over a pg pool
type pgAdapter struct {
	traced
	p     *pg.PG
	begin func(ctx context.Context) (pgxTx, error)
}

func newPGAdapter(p *pg.PG) *pgAdapter {
	return &pgAdapter{
		traced: traced{q: p.Pool, tracer: p.Tracer, slowUS: int64(p.SlowMs) * 1000},
		p:      p,
		begin:  func(ctx context.Context) (pgxTx, error) { return p.Pool.Begin(ctx) },
	}
}

// Ping runs a traced SELECT 1
func (a *pgAdapter) Ping(ctx context.Context) error {
	var one int
	return a.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (a *pgAdapter) Close() error {
	a.p.Close()
	return nil
}

// Tx commits when fn returns nil and rolls back otherwise, panics included
func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op after Commit

	if err := fn(traced{q: tx, tracer: a.tracer, slowUS: a.slowUS}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type row struct {
	r     pgx.Row
	after func(error)
}

func (x row) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	x.after(err)
	return err
}

type rows struct{ pgx.Rows }

func (x rows) Columns() []string {
	fds := x.FieldDescriptions()
	out := make([]string, len(fds))
	for i, fd := range fds {
		out[i] = fd.Name
	}
	return out
}
