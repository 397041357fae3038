package threshold

import (
	"testing"

	"nexuscalc/internal/core/aggregate"
	"nexuscalc/internal/core/money"

	"github.com/shopspring/decimal"
)

func rev(s string) *decimal.Decimal {
	d := money.MustParse(s)
	return &d
}

func cnt(n int) *int { return &n }

func agg(gross, marketplace string, count, mpCount int) aggregate.Aggregate {
	g := money.MustParse(gross)
	m := money.MustParse(marketplace)
	return aggregate.Aggregate{
		Jurisdiction: "CA", Year: 2023,
		Gross: g, Taxable: g, Direct: g.Sub(m), Marketplace: m,
		Count: count, MarketplaceCount: mpCount,
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name string
		a    aggregate.Aggregate
		r    Rule
		opts Options
		want Status
	}{
		{
			name: "revenue over threshold, OR",
			a:    agg("120000", "0", 10, 0),
			r:    Rule{Revenue: rev("100000"), Transactions: cnt(200), Operator: OpOR, MarketplaceCountsTowardThreshold: true},
			want: StatusHasNexus,
		},
		{
			name: "count alone triggers under OR",
			a:    agg("5000", "0", 250, 0),
			r:    Rule{Revenue: rev("100000"), Transactions: cnt(200), Operator: OpOR, MarketplaceCountsTowardThreshold: true},
			want: StatusHasNexus,
		},
		{
			name: "exactly at threshold meets it",
			a:    agg("100000", "0", 1, 0),
			r:    Rule{Revenue: rev("100000"), Operator: OpOR, MarketplaceCountsTowardThreshold: true},
			want: StatusHasNexus,
		},
		{
			name: "AND with failing count never has nexus",
			a:    agg("150000", "0", 10, 0),
			r:    Rule{Revenue: rev("100000"), Transactions: cnt(200), Operator: OpAND, MarketplaceCountsTowardThreshold: true},
			want: StatusNone,
		},
		{
			name: "AND with missing count test is satisfied by revenue",
			a:    agg("150000", "0", 10, 0),
			r:    Rule{Revenue: rev("100000"), Operator: OpAND, MarketplaceCountsTowardThreshold: true},
			want: StatusHasNexus,
		},
		{
			name: "approaching at 90%",
			a:    agg("90000", "0", 10, 0),
			r:    Rule{Revenue: rev("100000"), Operator: OpOR, MarketplaceCountsTowardThreshold: true},
			want: StatusApproaching,
		},
		{
			name: "just below band",
			a:    agg("89999.99", "0", 10, 0),
			r:    Rule{Revenue: rev("100000"), Operator: OpOR, MarketplaceCountsTowardThreshold: true},
			want: StatusNone,
		},
		{
			name: "marketplace excluded from basis",
			a:    agg("150000", "60000", 10, 4),
			r:    Rule{Revenue: rev("100000"), Operator: OpOR},
			want: StatusApproaching,
		},
		{
			name: "gross band basis ignores marketplace exclusion",
			a:    agg("99000", "20000", 10, 4),
			r:    Rule{Revenue: rev("100000"), Operator: OpOR},
			opts: Options{BandBasis: BandGross},
			want: StatusApproaching,
		},
		{
			name: "threshold band basis sees the reduced amount",
			a:    agg("99000", "20000", 10, 4),
			r:    Rule{Revenue: rev("100000"), Operator: OpOR},
			want: StatusNone,
		},
		{
			name: "count only rule has no approaching band",
			a:    agg("1000000", "0", 190, 0),
			r:    Rule{Transactions: cnt(200), Operator: OpOR, MarketplaceCountsTowardThreshold: true},
			want: StatusNone,
		},
		{
			name: "marketplace transactions dropped from count",
			a:    agg("1000", "500", 210, 20),
			r:    Rule{Transactions: cnt(200), Operator: OpOR},
			want: StatusNone,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.a, tc.r, tc.opts)
			if got.Status != tc.want {
				t.Fatalf("status = %s, want %s (%+v)", got.Status, tc.want, got)
			}
			if got.BandBasis == "" {
				t.Fatalf("band basis should always be recorded")
			}
		})
	}
}

func TestEvaluate_ReportsTestsIndependently(t *testing.T) {
	got := Evaluate(agg("150000", "0", 10, 0),
		Rule{Revenue: rev("100000"), Transactions: cnt(200), Operator: OpAND, MarketplaceCountsTowardThreshold: true},
		Options{})
	if !got.RevenueMet || got.CountMet {
		t.Fatalf("revenue=%v count=%v", got.RevenueMet, got.CountMet)
	}
	if !got.Basis.Equal(money.MustParse("150000")) || got.Count != 10 {
		t.Fatalf("basis = %s/%d", got.Basis, got.Count)
	}
}

func TestRule_Validate(t *testing.T) {
	tests := []struct {
		name string
		r    Rule
		ok   bool
	}{
		{"revenue only", Rule{Revenue: rev("100000"), Operator: OpOR}, true},
		{"both", Rule{Revenue: rev("100000"), Transactions: cnt(200), Operator: OpAND}, true},
		{"neither", Rule{Operator: OpOR}, false},
		{"zero revenue", Rule{Revenue: rev("0"), Operator: OpOR}, false},
		{"negative count", Rule{Transactions: cnt(-1), Operator: OpOR}, false},
		{"bad operator", Rule{Revenue: rev("1"), Operator: "XOR"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.r.Validate(); (err == nil) != tc.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tc.ok)
			}
		})
	}
}

func TestParseOperatorAndBand(t *testing.T) {
	if op, err := ParseOperator("and"); err != nil || op != OpAND {
		t.Fatalf("ParseOperator(and) = %v %v", op, err)
	}
	if op, _ := ParseOperator(""); op != OpOR {
		t.Fatalf("blank operator should default to OR")
	}
	if _, err := ParseOperator("nand"); err == nil {
		t.Fatalf("expected error")
	}
	if b, _ := ParseBandBasis(""); b != BandThreshold {
		t.Fatalf("blank band should default to threshold")
	}
	if _, err := ParseBandBasis("net"); err == nil {
		t.Fatalf("expected error")
	}
}
