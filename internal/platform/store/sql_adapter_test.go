package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"nexuscalc/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type recTracer struct{ events []pg.QueryEvent }

func (r *recTracer) OnQuery(_ context.Context, ev pg.QueryEvent) { r.events = append(r.events, ev) }

type pgxRow struct{ err error }

func (r pgxRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int) = 1
	return nil
}

// pgxRows is an empty result set with two columns
type pgxRows struct{ pgx.Rows }

func (pgxRows) Next() bool        { return false }
func (pgxRows) Err() error        { return nil }
func (pgxRows) Close()            {}
func (pgxRows) Scan(...any) error { return nil }
func (pgxRows) FieldDescriptions() []pgconn.FieldDescription {
	return []pgconn.FieldDescription{{Name: "jurisdiction"}, {Name: "year"}}
}

// pgxFake stands in for both the pool and a tx
type pgxFake struct {
	sql       []string
	delay     time.Duration
	execErr   error
	scanErr   error
	committed bool
	rolled    bool
}

func (f *pgxFake) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	time.Sleep(f.delay)
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}
func (f *pgxFake) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.sql = append(f.sql, sql)
	return pgxRows{}, nil
}
func (f *pgxFake) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.sql = append(f.sql, sql)
	return pgxRow{err: f.scanErr}
}
func (f *pgxFake) Commit(context.Context) error { f.committed = true; return nil }
func (f *pgxFake) Rollback(context.Context) error {
	if !f.committed {
		f.rolled = true
	}
	return nil
}

func newFakeAdapter(pool, tx *pgxFake, tr pg.QueryTracer, slowUS int64) *pgAdapter {
	return &pgAdapter{
		traced: traced{q: pool, tracer: tr, slowUS: slowUS},
		p:      &pg.PG{},
		begin:  func(context.Context) (pgxTx, error) { return tx, nil },
	}
}

func TestTracedStatements(t *testing.T) {
	tr := &recTracer{}
	pool := &pgxFake{scanErr: errors.New("no rows")}
	a := newFakeAdapter(pool, nil, tr, 0)
	ctx := context.Background()

	tag, err := a.Exec(ctx, "insert into analysis_runs", 1)
	if err != nil || tag.RowsAffected() != 1 {
		t.Fatalf("exec: %v %v", tag, err)
	}
	rs, err := a.Query(ctx, "select jurisdiction, year from determinations")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if cols := rs.Columns(); strings.Join(cols, ",") != "jurisdiction,year" {
		t.Fatalf("columns %v", cols)
	}
	if err := a.Ping(ctx); err == nil {
		t.Fatal("scan error should surface from Ping")
	}

	if len(tr.events) != 3 {
		t.Fatalf("want 3 trace events, got %d", len(tr.events))
	}
	if ev := tr.events[2]; ev.SQL != "SELECT 1" || ev.Err == nil || ev.Slow {
		t.Fatalf("ping event %+v", ev)
	}
}

func TestSlowThreshold(t *testing.T) {
	cases := []struct {
		slowUS int64
		delay  time.Duration
		want   bool
	}{
		{slowUS: 0, delay: 2 * time.Millisecond, want: false}, // zero disables
		{slowUS: 1000, delay: 2 * time.Millisecond, want: true},
		{slowUS: int64(time.Hour / time.Microsecond), want: false},
	}
	for _, c := range cases {
		tr := &recTracer{}
		a := newFakeAdapter(&pgxFake{delay: c.delay}, nil, tr, c.slowUS)
		_, _ = a.Exec(context.Background(), "select 1")
		if got := tr.events[0].Slow; got != c.want {
			t.Errorf("slowUS %d delay %v: slow = %v", c.slowUS, c.delay, got)
		}
	}
}

func TestTxCommitAndRollback(t *testing.T) {
	ctx := context.Background()

	tx := &pgxFake{}
	tr := &recTracer{}
	a := newFakeAdapter(&pgxFake{}, tx, tr, 0)
	err := a.Tx(ctx, func(q RowQuerier) error {
		_, err := q.Exec(ctx, "delete from nexus_determinations")
		return err
	})
	if err != nil || !tx.committed || tx.rolled {
		t.Fatalf("commit path: err %v committed %v rolled %v", err, tx.committed, tx.rolled)
	}
	if len(tx.sql) != 1 || len(tr.events) != 1 {
		t.Fatalf("statement should run on the tx and be traced: %v %d", tx.sql, len(tr.events))
	}

	tx = &pgxFake{}
	a = newFakeAdapter(&pgxFake{}, tx, nil, 0)
	boom := errors.New("boom")
	if err := a.Tx(ctx, func(RowQuerier) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("fn error lost: %v", err)
	}
	if tx.committed || !tx.rolled {
		t.Fatal("failed fn should roll back")
	}
}

func TestTxRollsBackOnPanic(t *testing.T) {
	tx := &pgxFake{}
	a := newFakeAdapter(&pgxFake{}, tx, nil, 0)
	func() {
		defer func() { _ = recover() }()
		_ = a.Tx(context.Background(), func(RowQuerier) error { panic("bad row") })
	}()
	if !tx.rolled {
		t.Fatal("panic should roll back")
	}
}

func TestTxBeginError(t *testing.T) {
	a := &pgAdapter{begin: func(context.Context) (pgxTx, error) { return nil, errors.New("pool closed") }}
	called := false
	if err := a.Tx(context.Background(), func(RowQuerier) error { called = true; return nil }); err == nil || called {
		t.Fatalf("begin failure: err %v called %v", err, called)
	}
}

type pingTx struct {
	TxRunner
	err error
}

func (p pingTx) Ping(context.Context) error { return p.err }

func TestGuard(t *testing.T) {
	ctx := context.Background()

	var nilStore *Store
	if err := nilStore.Guard(ctx); err == nil {
		t.Fatal("nil store should fail")
	}
	if err := (&Store{}).Guard(ctx); err != nil {
		t.Fatalf("no backends: %v", err)
	}
	if err := (&Store{PG: pingTx{}}).Guard(ctx); err != nil {
		t.Fatalf("healthy pg: %v", err)
	}

	err := (&Store{
		PG: pingTx{err: errors.New("refused")},
		CH: newCHAdapter(&fakeCH{pingErr: errors.New("timeout")}),
	}).Guard(ctx)
	if err == nil || !strings.Contains(err.Error(), "pg: refused") || !strings.Contains(err.Error(), "ch: timeout") {
		t.Fatalf("want both failures joined, got %v", err)
	}
}
