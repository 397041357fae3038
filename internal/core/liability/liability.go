// Package liability turns exposure sales into base tax, interest and penalties.
// Values stay exact; Result.Rounded is the single rounding step
package liability

import (
	"fmt"
	"strings"
	"time"

	"nexuscalc/internal/core/ledger"
	"nexuscalc/internal/core/money"

	"github.com/shopspring/decimal"
)

// InterestMethod selects how interest accrues on base tax
type InterestMethod string

const (
	// InterestSimple is base × annual rate × days / 365
	InterestSimple InterestMethod = "simple"
	// InterestCompoundMonthly compounds the annual rate monthly over the fractional months outstanding
	InterestCompoundMonthly InterestMethod = "compound_monthly"
)

// ParseInterestMethod accepts blank as simple
func ParseInterestMethod(s string) (InterestMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(InterestSimple):
		return InterestSimple, nil
	case string(InterestCompoundMonthly):
		return InterestCompoundMonthly, nil
	}
	return "", fmt.Errorf("unknown interest method %q", s)
}

const daysPerYear = 365

var (
	daysInYear   = decimal.NewFromInt(daysPerYear)
	monthsInYear = decimal.NewFromInt(12)
)

// Policy is a jurisdiction's rate and penalty policy
type Policy struct {
	Rate           decimal.Decimal `json:"rate" yaml:"rate"`
	InterestRate   decimal.Decimal `json:"interest_rate" yaml:"interest_rate"`
	InterestMethod InterestMethod  `json:"interest_method" yaml:"interest_method"`
	PenaltyRate    decimal.Decimal `json:"penalty_rate" yaml:"penalty_rate"`
}

// Line is one transaction contributing to exposure
type Line struct {
	ID      string          `json:"id,omitempty"`
	Date    time.Time       `json:"date"`
	Taxable decimal.Decimal `json:"taxable_amount"`
}

// Exposure is the liability base for one scope (a year or a whole jurisdiction)
type Exposure struct {
	Sales    decimal.Decimal `json:"exposure_sales"`
	Gross    decimal.Decimal `json:"gross_in_scope"`
	Earliest time.Time       `json:"earliest,omitempty"`
	Lines    []Line          `json:"-"`
}

// Flag names an implausible exposure; flags are reported, amounts are never clamped
type Flag string

const (
	FlagNegativeExposure    Flag = "negative_exposure"
	FlagImplausibleExposure Flag = "implausible_exposure"
)

// Flags reports exposure values a reviewer should look at
func (e Exposure) Flags() []Flag {
	var out []Flag
	if e.Sales.IsNegative() {
		out = append(out, FlagNegativeExposure)
	}
	if e.Gross.IsPositive() && e.Sales.GreaterThan(e.Gross) {
		out = append(out, FlagImplausibleExposure)
	}
	return out
}

// BuildExposure sums taxable amounts of txns dated within [start, through]; a zero through has no upper bound.
// marketplace transactions are skipped when excludeMarketplace is set; they still count toward thresholds elsewhere
func BuildExposure(txns []ledger.Transaction, start, through time.Time, excludeMarketplace bool) Exposure {
	e := Exposure{Sales: decimal.Zero, Gross: decimal.Zero}
	for _, t := range txns {
		if t.Date.Before(start) || (!through.IsZero() && t.Date.After(through)) {
			continue
		}
		if excludeMarketplace && t.IsMarketplace() {
			continue
		}
		e.Gross = e.Gross.Add(t.Gross)
		if t.Taxable.IsZero() {
			continue
		}
		e.Sales = e.Sales.Add(t.Taxable)
		e.Lines = append(e.Lines, Line{ID: t.ID, Date: t.Date, Taxable: t.Taxable})
		if e.Earliest.IsZero() || t.Date.Before(e.Earliest) {
			e.Earliest = t.Date
		}
	}
	return e
}

// FromLines rebuilds an exposure from lines dated within [from, to]
func FromLines(lines []Line, from, to time.Time) Exposure {
	e := Exposure{Sales: decimal.Zero, Gross: decimal.Zero}
	for _, l := range lines {
		if l.Date.Before(from) || l.Date.After(to) {
			continue
		}
		e.Sales = e.Sales.Add(l.Taxable)
		e.Gross = e.Gross.Add(l.Taxable)
		e.Lines = append(e.Lines, l)
		if e.Earliest.IsZero() || l.Date.Before(e.Earliest) {
			e.Earliest = l.Date
		}
	}
	return e
}

// Result is a LiabilityResult
type Result struct {
	BaseTax         decimal.Decimal `json:"base_tax"`
	Interest        decimal.Decimal `json:"interest"`
	Penalties       decimal.Decimal `json:"penalties"`
	Total           decimal.Decimal `json:"total"`
	ExposureSales   decimal.Decimal `json:"exposure_sales"`
	RateUsed        decimal.Decimal `json:"rate_used"`
	InterestMethod  InterestMethod  `json:"interest_method"`
	DaysOutstanding int             `json:"days_outstanding"`
}

// Rounded rounds every amount to cents; total is the rounded exact total, not the sum of rounded parts
func (r Result) Rounded() Result {
	r.BaseTax = money.Round(r.BaseTax)
	r.Interest = money.Round(r.Interest)
	r.Penalties = money.Round(r.Penalties)
	r.Total = money.Round(r.Total)
	r.ExposureSales = money.Round(r.ExposureSales)
	return r
}

// DaysBetween counts whole days from a to b, never negative
func DaysBetween(a, b time.Time) int {
	if a.IsZero() || !b.After(a) {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

// Interest accrues on base for days at an annual rate
func Interest(base, annualRate decimal.Decimal, method InterestMethod, days int) decimal.Decimal {
	if days <= 0 || base.IsZero() || annualRate.IsZero() {
		return decimal.Zero
	}
	d := decimal.NewFromInt(int64(days))
	switch method {
	case InterestCompoundMonthly:
		monthly := annualRate.Div(monthsInYear)
		months := d.Mul(monthsInYear).Div(daysInYear)
		whole := months.Floor()
		fraction := months.Sub(whole)
		// whole months compound, the remainder accrues simply
		growth := decimal.NewFromInt(1).Add(monthly).Pow(whole)
		growth = growth.Mul(decimal.NewFromInt(1).Add(monthly.Mul(fraction)))
		return base.Mul(growth).Sub(base)
	default:
		return base.Mul(annualRate).Mul(d).Div(daysInYear)
	}
}

// Calculate computes liability for exp under p through asOf. asOf is always explicit
func Calculate(exp Exposure, p Policy, asOf time.Time) Result {
	method := p.InterestMethod
	if method == "" {
		method = InterestSimple
	}
	base := exp.Sales.Mul(p.Rate)
	days := DaysBetween(exp.Earliest, asOf)
	interest := Interest(base, p.InterestRate, method, days)
	penalty := base.Mul(p.PenaltyRate)
	return Result{
		BaseTax:         base,
		Interest:        interest,
		Penalties:       penalty,
		Total:           base.Add(interest).Add(penalty),
		ExposureSales:   exp.Sales,
		RateUsed:        p.Rate,
		InterestMethod:  method,
		DaysOutstanding: days,
	}
}

// Sum adds exact results; days outstanding keeps the longest span
func Sum(rs ...Result) Result {
	out := Result{
		BaseTax: decimal.Zero, Interest: decimal.Zero, Penalties: decimal.Zero,
		Total: decimal.Zero, ExposureSales: decimal.Zero, RateUsed: decimal.Zero,
	}
	for i, r := range rs {
		out.BaseTax = out.BaseTax.Add(r.BaseTax)
		out.Interest = out.Interest.Add(r.Interest)
		out.Penalties = out.Penalties.Add(r.Penalties)
		out.Total = out.Total.Add(r.Total)
		out.ExposureSales = out.ExposureSales.Add(r.ExposureSales)
		if i == 0 {
			out.RateUsed, out.InterestMethod = r.RateUsed, r.InterestMethod
		}
		if r.DaysOutstanding > out.DaysOutstanding {
			out.DaysOutstanding = r.DaysOutstanding
		}
	}
	return out
}
