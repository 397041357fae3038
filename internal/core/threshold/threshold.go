// Package threshold decides whether one year's aggregate meets a jurisdiction's economic nexus rule
package threshold

import (
	"fmt"
	"strings"

	"nexuscalc/internal/core/aggregate"

	"github.com/shopspring/decimal"
)

// Operator combines the revenue and transaction count tests
type Operator string

const (
	// OpOR triggers when any configured test passes
	OpOR Operator = "OR"
	// OpAND triggers when every configured test passes
	OpAND Operator = "AND"
)

// ParseOperator accepts any case; blank defaults to OR
func ParseOperator(s string) (Operator, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "OR":
		return OpOR, nil
	case "AND":
		return OpAND, nil
	}
	return "", fmt.Errorf("unknown combine operator %q", s)
}

// Status is the outcome of one year's evaluation
type Status string

const (
	StatusNone        Status = "none"
	StatusApproaching Status = "approaching"
	StatusHasNexus    Status = "has_nexus"
)

// BandBasis selects which amount the approaching band compares against the revenue threshold
type BandBasis string

const (
	// BandThreshold uses the threshold basis, after any marketplace exclusion
	BandThreshold BandBasis = "threshold"
	// BandGross uses gross sales regardless of marketplace policy
	BandGross BandBasis = "gross"
)

// ParseBandBasis maps a config value; blank defaults to BandThreshold
func ParseBandBasis(s string) (BandBasis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(BandThreshold):
		return BandThreshold, nil
	case string(BandGross):
		return BandGross, nil
	}
	return "", fmt.Errorf("unknown band basis %q", s)
}

// ApproachingFloor is the lower edge of the approaching band as a fraction of the revenue threshold
var ApproachingFloor = decimal.NewFromFloat(0.9)

// Rule is the ThresholdRule in force for one jurisdiction and calendar year
type Rule struct {
	Jurisdiction                     string           `json:"jurisdiction" yaml:"jurisdiction"`
	Year                             int              `json:"year" yaml:"year"`
	Revenue                          *decimal.Decimal `json:"revenue_threshold,omitempty" yaml:"revenue_threshold"`
	Transactions                     *int             `json:"transaction_threshold,omitempty" yaml:"transaction_threshold"`
	Operator                         Operator         `json:"combine_operator" yaml:"combine_operator"`
	MarketplaceCountsTowardThreshold bool             `json:"marketplace_counts_toward_threshold" yaml:"marketplace_counts_toward_threshold"`
	MarketplaceExcludedFromLiability bool             `json:"marketplace_excluded_from_liability" yaml:"marketplace_excluded_from_liability"`
}

// Validate rejects rules that could never be evaluated
func (r Rule) Validate() error {
	if r.Revenue == nil && r.Transactions == nil {
		return fmt.Errorf("%s %d: no revenue or transaction threshold configured", r.Jurisdiction, r.Year)
	}
	if r.Revenue != nil && !r.Revenue.IsPositive() {
		return fmt.Errorf("%s %d: revenue threshold must be positive, got %s", r.Jurisdiction, r.Year, r.Revenue)
	}
	if r.Transactions != nil && *r.Transactions <= 0 {
		return fmt.Errorf("%s %d: transaction threshold must be positive, got %d", r.Jurisdiction, r.Year, *r.Transactions)
	}
	if r.Operator != OpAND && r.Operator != OpOR {
		return fmt.Errorf("%s %d: unknown combine operator %q", r.Jurisdiction, r.Year, r.Operator)
	}
	return nil
}

// Basis is gross sales, less marketplace sales when they do not count toward the threshold
func Basis(a aggregate.Aggregate, r Rule) decimal.Decimal {
	if r.MarketplaceCountsTowardThreshold {
		return a.Gross
	}
	return a.Gross.Sub(a.Marketplace)
}

// CountBasis mirrors Basis for the transaction count test
func CountBasis(a aggregate.Aggregate, r Rule) int {
	if r.MarketplaceCountsTowardThreshold {
		return a.Count
	}
	return a.Count - a.MarketplaceCount
}

// Tests reports each configured test independently; an unconfigured test reports false
func Tests(basis decimal.Decimal, count int, r Rule) (revenueMet, countMet bool) {
	if r.Revenue != nil {
		revenueMet = basis.GreaterThanOrEqual(*r.Revenue)
	}
	if r.Transactions != nil {
		countMet = count >= *r.Transactions
	}
	return revenueMet, countMet
}

// Met applies the combine operator to a basis and count
// under AND a missing test counts as satisfied; under OR it can never carry the result
func Met(basis decimal.Decimal, count int, r Rule) bool {
	revenueMet, countMet := Tests(basis, count, r)
	if r.Revenue == nil && r.Transactions == nil {
		return false
	}
	switch r.Operator {
	case OpAND:
		return (r.Revenue == nil || revenueMet) && (r.Transactions == nil || countMet)
	default:
		return revenueMet || countMet
	}
}

// Options tunes evaluation
type Options struct {
	BandBasis BandBasis
}

// Result is one year's evaluation
type Result struct {
	Status     Status          `json:"status"`
	Basis      decimal.Decimal `json:"threshold_basis"`
	Count      int             `json:"count_basis"`
	RevenueMet bool            `json:"revenue_met"`
	CountMet   bool            `json:"count_met"`
	BandBasis  BandBasis       `json:"band_basis"`
}

// Evaluate decides none, approaching or has_nexus for one aggregate
func Evaluate(a aggregate.Aggregate, r Rule, opts Options) Result {
	band := opts.BandBasis
	if band == "" {
		band = BandThreshold
	}
	basis := Basis(a, r)
	count := CountBasis(a, r)
	revenueMet, countMet := Tests(basis, count, r)
	res := Result{Basis: basis, Count: count, RevenueMet: revenueMet, CountMet: countMet, BandBasis: band, Status: StatusNone}

	if Met(basis, count, r) {
		res.Status = StatusHasNexus
		return res
	}
	if r.Revenue == nil {
		return res
	}
	probe := basis
	if band == BandGross {
		probe = a.Gross
	}
	floor := r.Revenue.Mul(ApproachingFloor)
	if probe.GreaterThanOrEqual(floor) && probe.LessThan(*r.Revenue) {
		res.Status = StatusApproaching
	}
	return res
}
