// Package vda models voluntary disclosure what-if liability for a caller chosen set of jurisdictions
package vda

import (
	"cmp"
	"maps"
	"slices"
	"time"

	"nexuscalc/internal/core/liability"
	"nexuscalc/internal/core/money"
	perr "nexuscalc/internal/platform/errors"

	"github.com/shopspring/decimal"
)

// Lookback bounds in months
const (
	MinLookbackMonths     = 24
	MaxLookbackMonths     = 48
	DefaultLookbackMonths = 36
)

// Params are the disclosure terms being modeled
type Params struct {
	LookbackMonths int             `json:"lookback_months"`
	InterestWaiver decimal.Decimal `json:"interest_waiver"` // fraction of interest forgiven, 0 keeps all of it
	AsOf           time.Time       `json:"as_of"`
}

// Normalize fills defaults and checks bounds
func (p Params) Normalize() (Params, error) {
	if p.LookbackMonths == 0 {
		p.LookbackMonths = DefaultLookbackMonths
	}
	if p.LookbackMonths < MinLookbackMonths || p.LookbackMonths > MaxLookbackMonths {
		return p, perr.WithField(perr.InvalidArgf("lookback must be %d to %d months, got %d",
			MinLookbackMonths, MaxLookbackMonths, p.LookbackMonths), "lookback_months")
	}
	if p.InterestWaiver.IsNegative() || p.InterestWaiver.GreaterThan(decimal.NewFromInt(1)) {
		return p, perr.WithField(perr.InvalidArgf("interest waiver must be within [0,1], got %s", p.InterestWaiver), "interest_waiver")
	}
	if p.AsOf.IsZero() {
		return p, perr.WithField(perr.InvalidArgf("as-of date is required"), "as_of")
	}
	return p, nil
}

// WindowStart is the first day inside the lookback window
func (p Params) WindowStart() time.Time { return p.AsOf.AddDate(0, -p.LookbackMonths, 0) }

// Input is one selected jurisdiction
type Input struct {
	Jurisdiction string
	Baseline     liability.Result // exact, unrounded
	Lines        []liability.Line
	Policy       liability.Policy
}

// Item is the per jurisdiction comparison
type Item struct {
	Jurisdiction string           `json:"jurisdiction"`
	Baseline     liability.Result `json:"baseline"`
	VDA          liability.Result `json:"vda"`
	Savings      decimal.Decimal  `json:"savings"`
}

// Scenario is a VDAScenario
type Scenario struct {
	SelectedJurisdictions []string        `json:"selected_jurisdictions"`
	BaselineTotal         decimal.Decimal `json:"baseline_total"`
	VDATotal              decimal.Decimal `json:"vda_total"`
	Savings               decimal.Decimal `json:"savings"`
	LookbackMonths        int             `json:"lookback_months"`
	InterestWaiver        decimal.Decimal `json:"interest_waiver"`
	WindowStart           time.Time       `json:"window_start"`
	AsOf                  time.Time       `json:"as_of"`
	Items                 []Item          `json:"items"`
}

// Recompute applies disclosure terms to one jurisdiction and returns the exact result.
// Lines accrue per calendar year from that year's earliest line in the window, matching the baseline
func Recompute(in Input, p Params) liability.Result {
	pol := in.Policy
	pol.PenaltyRate = decimal.Zero

	byYear := make(map[int][]liability.Line)
	for _, l := range in.Lines {
		byYear[l.Date.Year()] = append(byYear[l.Date.Year()], l)
	}
	years := slices.Sorted(maps.Keys(byYear))

	parts := make([]liability.Result, 0, len(years))
	for _, y := range years {
		exp := liability.FromLines(byYear[y], p.WindowStart(), p.AsOf)
		parts = append(parts, liability.Calculate(exp, pol, p.AsOf))
	}
	r := liability.Sum(parts...)
	if len(parts) == 0 {
		r = liability.Calculate(liability.Exposure{}, pol, p.AsOf)
	}
	r.Interest = r.Interest.Mul(decimal.NewFromInt(1).Sub(p.InterestWaiver))
	r.Penalties = decimal.Zero
	r.Total = r.BaseTax.Add(r.Interest)
	return r
}

// Model runs the scenario over inputs. It does not choose jurisdictions; every input is modeled
func Model(inputs []Input, params Params) (Scenario, error) {
	p, err := params.Normalize()
	if err != nil {
		return Scenario{}, err
	}
	seen := make(map[string]struct{}, len(inputs))
	baseline, modeled := decimal.Zero, decimal.Zero
	items := make([]Item, 0, len(inputs))
	for _, in := range inputs {
		if _, dup := seen[in.Jurisdiction]; dup {
			return Scenario{}, perr.WithField(perr.InvalidArgf("jurisdiction %s selected twice", in.Jurisdiction), "jurisdictions")
		}
		seen[in.Jurisdiction] = struct{}{}

		v := Recompute(in, p)
		baseline = baseline.Add(in.Baseline.Total)
		modeled = modeled.Add(v.Total)
		items = append(items, Item{
			Jurisdiction: in.Jurisdiction,
			Baseline:     in.Baseline.Rounded(),
			VDA:          v.Rounded(),
			Savings:      money.Round(in.Baseline.Total.Sub(v.Total)),
		})
	}
	slices.SortFunc(items, func(a, b Item) int {
		if c := b.Savings.Cmp(a.Savings); c != 0 {
			return c
		}
		return cmp.Compare(a.Jurisdiction, b.Jurisdiction)
	})

	selected := make([]string, 0, len(items))
	for _, it := range items {
		selected = append(selected, it.Jurisdiction)
	}
	return Scenario{
		SelectedJurisdictions: selected,
		BaselineTotal:         money.Round(baseline),
		VDATotal:              money.Round(modeled),
		Savings:               money.Round(baseline.Sub(modeled)),
		LookbackMonths:        p.LookbackMonths,
		InterestWaiver:        p.InterestWaiver,
		WindowStart:           p.WindowStart(),
		AsOf:                  p.AsOf,
		Items:                 items,
	}, nil
}
