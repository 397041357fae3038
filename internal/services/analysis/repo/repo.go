// Package repo provides postgres access for transactions, analysis runs and determinations
package repo

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nexuscalc/internal/core/ledger"
	"nexuscalc/internal/core/money"
	"nexuscalc/internal/modkit/repokit"
	perr "nexuscalc/internal/platform/errors"
	"nexuscalc/internal/platform/store"
	str "nexuscalc/internal/platform/strings"
	"nexuscalc/internal/services/analysis/domain"

	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schema string

// importChunk bounds the rows per multi-row insert; 8 params each stays well under the pg limit
const importChunk = 500

// Repo is the persistence surface for analysis
type Repo interface {
	Migrate(ctx context.Context) error

	// ImportTransactions upserts ledger rows by (client_id, id) and returns the rows written
	ImportTransactions(ctx context.Context, clientID string, txns []ledger.Transaction) (int, error)
	// StreamTransactions calls fn for every stored row of the client in date order
	StreamTransactions(ctx context.Context, clientID string, fn func(ledger.Transaction) error) error

	InsertRun(ctx context.Context, r domain.Run) error
	GetRun(ctx context.Context, id string) (domain.Run, error)

	// ReplaceDeterminations deletes every determination of the client then inserts rows stamped with runID
	ReplaceDeterminations(ctx context.Context, clientID, runID string, rows []domain.Determination) error
	Determinations(ctx context.Context, runID string) ([]domain.Determination, error)
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func (r *queries) Migrate(ctx context.Context) error {
	_, err := r.q.Exec(ctx, schema)
	return perr.FromPostgres(err, "migrate analysis schema")
}

func (r *queries) ImportTransactions(ctx context.Context, clientID string, txns []ledger.Transaction) (int, error) {
	written := 0
	for start := 0; start < len(txns); start += importChunk {
		end := min(start+importChunk, len(txns))
		n, err := r.importChunk(ctx, clientID, txns[start:end])
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

func (r *queries) importChunk(ctx context.Context, clientID string, txns []ledger.Transaction) (int, error) {
	var sb strings.Builder
	sb.WriteString(`insert into transactions
	(client_id, id, txn_date, jurisdiction, gross_amount, taxable_amount, exempt_amount, channel) values `)

	args := make([]any, 0, len(txns)*8)
	for i, t := range txns {
		if i > 0 {
			sb.WriteByte(',')
		}
		b := i*8 + 1
		fmt.Fprintf(&sb, "($%d::uuid,$%d,$%d,$%d,$%d::numeric,$%d::numeric,$%d::numeric,$%d)",
			b, b+1, b+2, b+3, b+4, b+5, b+6, b+7)
		args = append(args, clientID, t.ID, t.Date, t.Jurisdiction,
			t.Gross.String(), t.Taxable.String(), t.Exempt.String(), string(t.Channel))
	}
	sb.WriteString(`
on conflict (client_id, id) do update set
	txn_date = excluded.txn_date,
	jurisdiction = excluded.jurisdiction,
	gross_amount = excluded.gross_amount,
	taxable_amount = excluded.taxable_amount,
	exempt_amount = excluded.exempt_amount,
	channel = excluded.channel,
	imported_at = now()`)

	tag, err := r.q.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, perr.FromPostgres(err, "import transactions")
	}
	return int(tag.RowsAffected()), nil
}

func (r *queries) StreamTransactions(ctx context.Context, clientID string, fn func(ledger.Transaction) error) error {
	rows, err := r.q.Query(ctx, `
select id, txn_date, jurisdiction, gross_amount::text, exempt_amount::text, channel
from transactions
where client_id = $1::uuid
order by txn_date, id
`, clientID)
	if err != nil {
		return perr.FromPostgres(err, "stream transactions")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, jur, gross, exempt, ch string
			date                       time.Time
		)
		if err := rows.Scan(&id, &date, &jur, &gross, &exempt, &ch); err != nil {
			return err
		}
		g, err := money.Parse(gross)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeDB, "transaction %s gross", id)
		}
		ex, err := money.Parse(exempt)
		if err != nil {
			return perr.Wrapf(err, perr.ErrorCodeDB, "transaction %s exempt", id)
		}
		channel, ok := ledger.ParseChannel(ch)
		if !ok {
			return perr.DBf("transaction %s has unknown channel %q", id, ch)
		}
		if err := fn(ledger.New(id, date, jur, g, channel, nil, &ex)); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (r *queries) InsertRun(ctx context.Context, run domain.Run) error {
	physical, err := json.Marshal(run.Physical)
	if err != nil {
		return fmt.Errorf("encode physical presence: %w", err)
	}
	if run.Physical == nil {
		physical = []byte("{}")
	}
	err = store.ExecOne(ctx, r.q, `
insert into analysis_runs
	(id, client_id, as_of, dataset_version, exposure_from, band_basis, physical,
	 transactions, rejected, jurisdictions, failed, total_liability)
values ($1::uuid, $2::uuid, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12::numeric)
`, run.ID, run.ClientID, run.AsOf, run.DatasetVersion, run.ExposureFrom, run.BandBasis, string(physical),
		run.Transactions, run.Rejected, run.Jurisdictions, run.Failed, run.TotalLiability.String())
	return perr.FromPostgres(err, "insert analysis run")
}

func scanRun(row store.Row) (domain.Run, error) {
	var (
		run      domain.Run
		physical []byte
		total    string
	)
	if err := row.Scan(&run.ID, &run.ClientID, &run.AsOf, &run.DatasetVersion, &run.ExposureFrom, &run.BandBasis,
		&physical, &run.Transactions, &run.Rejected, &run.Jurisdictions, &run.Failed, &total, &run.CreatedAt); err != nil {
		return run, err
	}
	if len(physical) > 0 {
		if err := json.Unmarshal(physical, &run.Physical); err != nil {
			return run, fmt.Errorf("decode physical presence: %w", err)
		}
	}
	var err error
	run.TotalLiability, err = decimal.NewFromString(total)
	return run, err
}

func (r *queries) GetRun(ctx context.Context, id string) (domain.Run, error) {
	run, err := store.One(ctx, r.q, scanRun, `
select id::text, client_id::text, as_of, dataset_version, exposure_from, band_basis,
       physical, transactions, rejected, jurisdictions, failed, total_liability::text, created_at
from analysis_runs
where id = $1::uuid
`, id)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return run, perr.WithField(perr.NotFoundf("analysis run %s not found", id), "id")
	}
	return run, perr.FromPostgres(err, "get analysis run")
}

func (r *queries) ReplaceDeterminations(ctx context.Context, clientID, runID string, rows []domain.Determination) error {
	if _, err := r.q.Exec(ctx, `delete from nexus_determinations where client_id = $1::uuid`, clientID); err != nil {
		return perr.FromPostgres(err, "clear determinations")
	}
	if len(rows) == 0 {
		return nil
	}

	const cols = 18
	var sb strings.Builder
	sb.WriteString(`insert into nexus_determinations
	(client_id, jurisdiction, year, run_id, nexus_status, nexus_type, first_triggered_year, is_sticky,
	 obligation_start, gross_sales, taxable_sales, transaction_count, base_tax, interest, penalties, total,
	 error_code, error) values `)

	args := make([]any, 0, len(rows)*cols)
	for i, d := range rows {
		if i > 0 {
			sb.WriteByte(',')
		}
		b := i*cols + 1
		fmt.Fprintf(&sb, "($%d::uuid,$%d,$%d,$%d::uuid,$%d,$%d,$%d,$%d,$%d,$%d::numeric,$%d::numeric,$%d,$%d::numeric,$%d::numeric,$%d::numeric,$%d::numeric,$%d,$%d)",
			b, b+1, b+2, b+3, b+4, b+5, b+6, b+7, b+8, b+9, b+10, b+11, b+12, b+13, b+14, b+15, b+16, b+17)
		args = append(args,
			clientID, d.Jurisdiction, d.Year, runID, d.Status, d.Type, str.SQLNullInt(d.FirstTriggeredYear), d.IsSticky,
			d.ObligationStart, d.Gross.String(), d.Taxable.String(), d.Count,
			d.BaseTax.String(), d.Interest.String(), d.Penalties.String(), d.Total.String(),
			str.SQLNull(d.ErrorCode), str.SQLNull(d.Error),
		)
	}
	_, err := r.q.Exec(ctx, sb.String(), args...)
	return perr.FromPostgres(err, "insert determinations")
}

func (r *queries) Determinations(ctx context.Context, runID string) ([]domain.Determination, error) {
	out, err := store.Many(ctx, r.q, scanDetermination, `
select jurisdiction, year, nexus_status, nexus_type, coalesce(first_triggered_year, 0), is_sticky, obligation_start,
       gross_sales::text, taxable_sales::text, transaction_count,
       base_tax::text, interest::text, penalties::text, total::text,
       coalesce(error_code, ''), coalesce(error, '')
from nexus_determinations
where run_id = $1::uuid
order by jurisdiction, year
`, runID)
	return out, perr.FromPostgres(err, "list determinations")
}

func scanDetermination(row store.Row) (domain.Determination, error) {
	var (
		d                                          domain.Determination
		gross, taxable, base, interest, pen, total string
	)
	if err := row.Scan(&d.Jurisdiction, &d.Year, &d.Status, &d.Type, &d.FirstTriggeredYear, &d.IsSticky, &d.ObligationStart,
		&gross, &taxable, &d.Count, &base, &interest, &pen, &total, &d.ErrorCode, &d.Error); err != nil {
		return d, err
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{{&d.Gross, gross}, {&d.Taxable, taxable}, {&d.BaseTax, base}, {&d.Interest, interest}, {&d.Penalties, pen}, {&d.Total, total}} {
		v, err := decimal.NewFromString(f.src)
		if err != nil {
			return d, err
		}
		*f.dst = v
	}
	return d, nil
}
