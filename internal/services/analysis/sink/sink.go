// Package sink writes per year nexus facts to clickhouse for analytics
package sink

import (
	"context"
	"time"

	"nexuscalc/internal/core/engine"
	"nexuscalc/internal/platform/store"

	"github.com/google/uuid"
)

// Table is the clickhouse table facts land in
const Table = "nexus_year_facts"

const ddl = `
CREATE TABLE IF NOT EXISTS nexus_year_facts (
    run_id            UUID,
    client_id         UUID,
    jurisdiction      LowCardinality(String),
    year              UInt16,
    as_of             Date,
    dataset_version   LowCardinality(String),
    nexus_status      LowCardinality(String),
    nexus_type        LowCardinality(String),
    gross_sales       Decimal(18, 2),
    taxable_sales     Decimal(18, 2),
    marketplace_sales Decimal(18, 2),
    transaction_count UInt32,
    base_tax          Decimal(18, 2),
    interest          Decimal(18, 2),
    penalties         Decimal(18, 2),
    total             Decimal(18, 2),
    recorded_at       DateTime
) ENGINE = MergeTree
ORDER BY (client_id, jurisdiction, year, run_id)
`

// Sink writes facts; a nil Sink or nil clickhouse handle is a no-op
type Sink struct {
	ch  store.Clickhouse
	now func() time.Time
}

// New returns a sink over ch; nil ch yields a sink that skips every write
func New(ch store.Clickhouse) *Sink { return &Sink{ch: ch, now: time.Now} }

// Enabled reports whether writes reach clickhouse
func (s *Sink) Enabled() bool { return s != nil && s.ch != nil }

// Migrate creates the facts table
func (s *Sink) Migrate(ctx context.Context) error {
	if !s.Enabled() {
		return nil
	}
	return s.ch.Exec(ctx, ddl)
}

// Rows flattens a report into one row per (jurisdiction, year); failed jurisdictions are skipped
func Rows(runID, clientID uuid.UUID, rep *engine.Report, at time.Time) [][]any {
	var out [][]any
	for _, jr := range rep.Jurisdictions {
		if jr.Failed() {
			continue
		}
		for _, y := range jr.Years {
			out = append(out, []any{
				runID, clientID, jr.Jurisdiction, uint16(y.Year), rep.AsOf, rep.DatasetVersion,
				string(y.Determination.Status), string(y.Determination.Type),
				y.Aggregate.Gross, y.Aggregate.Taxable, y.Aggregate.Marketplace, uint32(y.Aggregate.Count),
				y.Liability.BaseTax, y.Liability.Interest, y.Liability.Penalties, y.Liability.Total,
				at.UTC(),
			})
		}
	}
	return out
}

// Write inserts the report facts for a run
func (s *Sink) Write(ctx context.Context, runID, clientID uuid.UUID, rep *engine.Report) (int, error) {
	if !s.Enabled() || rep == nil {
		return 0, nil
	}
	rows := Rows(runID, clientID, rep, s.now())
	if err := s.ch.Insert(ctx, Table, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}
