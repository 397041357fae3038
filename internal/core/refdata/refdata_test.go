package refdata

import (
	"bytes"
	"strings"
	"testing"

	"nexuscalc/internal/core/liability"
	"nexuscalc/internal/core/threshold"
	perr "nexuscalc/internal/platform/errors"
)

const sample = `
version: test-1
jurisdictions:
  ga:
    name: Georgia
    rate: 0.07
    interest_rate: 0.09
    penalty_rate: 0.05
    physical_presence: 2022-05-10
    rules:
      - effective_from: 2020-01-01
        revenue_threshold: 100000
        transaction_threshold: 200
        combine_operator: or
        marketplace_counts_toward_threshold: true
      - effective_from: 2019-01-01
        effective_to: 2019-12-31
        revenue_threshold: 250000
        combine_operator: OR
  NY:
    name: New York
    rate: 0.08
    interest_rate: 0.14
    interest_method: compound_monthly
    penalty_rate: 0.1
    rules:
      - effective_from: 2019-06-21
        revenue_threshold: 500000
        transaction_threshold: 100
        combine_operator: AND
`

func load(t *testing.T, s string) *Dataset {
	t.Helper()
	d, err := LoadYAML(strings.NewReader(s))
	if err != nil {
		t.Fatalf("LoadYAML: %v", err)
	}
	return d
}

func TestLoadYAML_Normalizes(t *testing.T) {
	d := load(t, sample)
	if d.Version != "test-1" || len(d.Codes()) != 2 || d.Codes()[0] != "GA" {
		t.Fatalf("codes = %v", d.Codes())
	}
	ga, _ := d.Get("GA")
	if ga.InterestMethod != liability.InterestSimple {
		t.Fatalf("blank interest method should default to simple")
	}
	if ga.Rules[0].EffectiveFrom.Year() != 2019 || ga.Rules[1].Operator != threshold.OpOR {
		t.Fatalf("rules not sorted/normalized: %+v", ga.Rules)
	}
	if ga.PhysicalPresence == nil || ga.PhysicalPresence.Format("2006-01-02") != "2022-05-10" {
		t.Fatalf("physical presence = %v", ga.PhysicalPresence)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestRuleFor(t *testing.T) {
	d := load(t, sample)
	tests := []struct {
		name    string
		code    string
		year    int
		revenue string
		wantErr bool
	}{
		{"covering jan 1", "GA", 2019, "250000", false},
		{"open ended", "GA", 2024, "100000", false},
		{"starts mid year", "NY", 2019, "500000", false},
		{"before any rule", "NY", 2018, "", true},
		{"unknown jurisdiction", "ZZ", 2020, "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := d.RuleFor(tc.code, tc.year)
			if tc.wantErr {
				if !perr.IsCode(err, perr.ErrorCodeReferenceData) {
					t.Fatalf("expected reference data error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("RuleFor: %v", err)
			}
			if r.Revenue.String() != tc.revenue || r.Year != tc.year || r.Jurisdiction != tc.code {
				t.Fatalf("rule = %+v", r)
			}
		})
	}
}

func TestRuleFor_Overlap(t *testing.T) {
	d := load(t, `
jurisdictions:
  WA:
    rate: 0.09
    rules:
      - effective_from: 2019-01-01
        revenue_threshold: 100000
      - effective_from: 2020-06-01
        revenue_threshold: 200000
`)
	if _, err := d.RuleFor("WA", 2021); !perr.IsCode(err, perr.ErrorCodeReferenceData) {
		t.Fatalf("overlap should be a reference data error, got %v", err)
	}
	if err := d.Check("WA"); err == nil {
		t.Fatalf("Check should flag the overlap")
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"rate too high", `
jurisdictions:
  XX:
    rate: 1.5
    rules:
      - {effective_from: 2020-01-01, revenue_threshold: 1}
`},
		{"no rules", `
jurisdictions:
  XX:
    rate: 0.05
`},
		{"rule without tests", `
jurisdictions:
  XX:
    rate: 0.05
    rules:
      - {effective_from: 2020-01-01}
`},
		{"ends before start", `
jurisdictions:
  XX:
    rate: 0.05
    rules:
      - {effective_from: 2020-01-01, effective_to: 2019-01-01, revenue_threshold: 1}
`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := load(t, tc.yaml)
			if err := d.Check("XX"); !perr.IsCode(err, perr.ErrorCodeReferenceData) {
				t.Fatalf("expected reference data error, got %v", err)
			}
		})
	}
}

func TestLoadYAML_Errors(t *testing.T) {
	if _, err := LoadYAML(strings.NewReader("")); !perr.IsCode(err, perr.ErrorCodeReferenceData) {
		t.Fatalf("empty input: %v", err)
	}
	if _, err := LoadYAML(strings.NewReader("jurisdictions:\n  CA:\n    colour: red\n")); err == nil {
		t.Fatalf("unknown fields should be rejected")
	}
	if _, err := LoadYAML(strings.NewReader("jurisdictions:\n  CA:\n    rules:\n      - {combine_operator: XOR}\n")); err == nil {
		t.Fatalf("bad operator should be rejected")
	}
	var empty *Dataset
	if !empty.Empty() || empty.Validate() == nil {
		t.Fatalf("nil dataset should be empty and invalid")
	}
}

func TestDefault_IsValid(t *testing.T) {
	d, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("embedded dataset invalid: %v", err)
	}
	for _, c := range []string{"CA", "NY", "TX"} {
		if _, err := d.RuleFor(c, 2023); err != nil {
			t.Fatalf("RuleFor(%s): %v", c, err)
		}
	}
}

func TestWriteYAML_Reloads(t *testing.T) {
	d := load(t, sample)
	var buf bytes.Buffer
	if err := d.WriteYAML(&buf); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	back := load(t, buf.String())
	r, err := back.RuleFor("GA", 2021)
	if err != nil || r.Revenue.String() != "100000" || *r.Transactions != 200 {
		t.Fatalf("reloaded rule = %+v %v", r, err)
	}
}
