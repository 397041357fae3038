// Package repo provides postgres access for reference data
package repo

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"nexuscalc/internal/core/liability"
	"nexuscalc/internal/core/money"
	"nexuscalc/internal/core/refdata"
	"nexuscalc/internal/core/threshold"
	"nexuscalc/internal/modkit/repokit"
	perr "nexuscalc/internal/platform/errors"
	"nexuscalc/internal/platform/store"

	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schema string

// Storage is the persistence surface for reference data
type Storage interface {
	// Load reads the latest dataset version with all jurisdictions and rules
	Load(ctx context.Context) (*refdata.Dataset, error)
	// Replace swaps every row for d; callers run it inside a transaction
	Replace(ctx context.Context, d *refdata.Dataset) error
	// Migrate creates the tables when missing
	Migrate(ctx context.Context) error
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Storage] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Storage { return &queries{q: q} }

func (r *queries) Migrate(ctx context.Context) error {
	_, err := store.Exec(ctx, r.q, schema)
	return perr.FromPostgres(err, "migrate refdata schema")
}

func (r *queries) Load(ctx context.Context) (*refdata.Dataset, error) {
	version, err := store.Scalar[string](ctx, r.q, `
select coalesce(max(dataset_version), '')
from jurisdictions
`)
	if err != nil {
		return nil, perr.FromPostgres(err, "read dataset version")
	}

	js, err := r.jurisdictions(ctx)
	if err != nil {
		return nil, err
	}
	if len(js) == 0 {
		return nil, perr.ReferenceDataf("no jurisdictions stored")
	}
	if err := r.rules(ctx, js); err != nil {
		return nil, err
	}

	list := make([]refdata.Jurisdiction, 0, len(js))
	for _, j := range js {
		list = append(list, *j)
	}
	return refdata.New(version, list...)
}

func (r *queries) jurisdictions(ctx context.Context) (map[string]*refdata.Jurisdiction, error) {
	const sql = `
select code, name, rate::text, interest_rate::text, interest_method, penalty_rate::text, physical_presence
from jurisdictions
order by code
`
	rows, err := r.q.Query(ctx, sql)
	if err != nil {
		return nil, perr.FromPostgres(err, "list jurisdictions")
	}
	defer rows.Close()

	out := map[string]*refdata.Jurisdiction{}
	for rows.Next() {
		var (
			j                            refdata.Jurisdiction
			rate, interest, penalty, mth string
			physical                     *time.Time
		)
		if err := rows.Scan(&j.Code, &j.Name, &rate, &interest, &mth, &penalty, &physical); err != nil {
			return nil, err
		}
		if j.Rate, err = num(j.Code, "rate", rate); err != nil {
			return nil, err
		}
		if j.InterestRate, err = num(j.Code, "interest_rate", interest); err != nil {
			return nil, err
		}
		if j.PenaltyRate, err = num(j.Code, "penalty_rate", penalty); err != nil {
			return nil, err
		}
		j.InterestMethod = liability.InterestMethod(mth)
		j.PhysicalPresence = physical
		out[j.Code] = &j
	}
	return out, rows.Err()
}

func (r *queries) rules(ctx context.Context, js map[string]*refdata.Jurisdiction) error {
	const sql = `
select jurisdiction, effective_from, effective_to, revenue_threshold::text, transaction_threshold,
       combine_operator, marketplace_counts_toward_threshold, marketplace_excluded_from_liability
from threshold_rules
order by jurisdiction, effective_from
`
	rows, err := r.q.Query(ctx, sql)
	if err != nil {
		return perr.FromPostgres(err, "list threshold rules")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			code, op string
			v        refdata.RuleVersion
			revenue  *string
		)
		if err := rows.Scan(&code, &v.EffectiveFrom, &v.EffectiveTo, &revenue, &v.Transactions,
			&op, &v.MarketplaceCountsTowardThreshold, &v.MarketplaceExcludedFromLiability); err != nil {
			return err
		}
		if revenue != nil {
			d, err := num(code, "revenue_threshold", *revenue)
			if err != nil {
				return err
			}
			v.Revenue = &d
		}
		v.Operator = threshold.Operator(op)
		j, ok := js[code]
		if !ok {
			return perr.ReferenceDataf("threshold rule for unknown jurisdiction %s", code)
		}
		j.Rules = append(j.Rules, v)
	}
	return rows.Err()
}

func num(code, field, s string) (decimal.Decimal, error) {
	d, err := money.Parse(s)
	if err != nil {
		return decimal.Zero, perr.Wrapf(err, perr.ErrorCodeReferenceData, "%s: bad %s %q", code, field, s)
	}
	return d, nil
}

func (r *queries) Replace(ctx context.Context, d *refdata.Dataset) error {
	if d.Empty() {
		return perr.ReferenceDataf("refusing to store an empty dataset")
	}
	version := strings.TrimSpace(d.Version)
	if version == "" {
		return perr.WithField(perr.InvalidArgf("dataset version is required"), "version")
	}

	if _, err := r.q.Exec(ctx, `delete from threshold_rules`); err != nil {
		return perr.FromPostgres(err, "clear threshold rules")
	}
	if _, err := r.q.Exec(ctx, `delete from jurisdictions`); err != nil {
		return perr.FromPostgres(err, "clear jurisdictions")
	}
	if _, err := r.q.Exec(ctx, `
insert into refdata_versions (version) values ($1)
on conflict (version) do update set loaded_at = now()
`, version); err != nil {
		return perr.FromPostgres(err, "record dataset version")
	}

	for _, j := range d.SortedJurisdictions() {
		if _, err := r.q.Exec(ctx, `
insert into jurisdictions (code, name, rate, interest_rate, interest_method, penalty_rate, physical_presence, dataset_version)
values ($1, $2, $3::numeric, $4::numeric, $5, $6::numeric, $7, $8)
`, j.Code, j.Name, j.Rate.String(), j.InterestRate.String(), string(j.InterestMethod),
			j.PenaltyRate.String(), j.PhysicalPresence, version); err != nil {
			return perr.FromPostgresf(err, "insert jurisdiction %s", j.Code)
		}
		if err := r.insertRules(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

func (r *queries) insertRules(ctx context.Context, j refdata.Jurisdiction) error {
	if len(j.Rules) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`insert into threshold_rules
	(jurisdiction, effective_from, effective_to, revenue_threshold, transaction_threshold,
	combine_operator, marketplace_counts_toward_threshold, marketplace_excluded_from_liability) values `)

	args := make([]any, 0, len(j.Rules)*8)
	for i, v := range j.Rules {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*8 + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d::numeric,$%d,$%d,$%d,$%d)",
			base, base+1, base+2, base+3, base+4, base+5, base+6, base+7)

		var revenue *string
		if v.Revenue != nil {
			s := v.Revenue.String()
			revenue = &s
		}
		args = append(args,
			j.Code, v.EffectiveFrom, v.EffectiveTo, revenue, v.Transactions,
			string(v.Operator), v.MarketplaceCountsTowardThreshold, v.MarketplaceExcludedFromLiability,
		)
	}
	_, err := r.q.Exec(ctx, sb.String(), args...)
	return perr.FromPostgresf(err, "insert threshold rules for %s", j.Code)
}
