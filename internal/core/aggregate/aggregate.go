// Package aggregate sums resolved transactions per jurisdiction and calendar year
package aggregate

import (
	"cmp"
	"fmt"
	"slices"

	"nexuscalc/internal/core/ledger"
	"nexuscalc/internal/core/money"

	"github.com/shopspring/decimal"
)

// InconsistencyKind labels an ArithmeticInconsistency
type InconsistencyKind string

const (
	// SplitMismatch means taxable+exempt differs from gross beyond tolerance
	SplitMismatch InconsistencyKind = "split_mismatch"
	// ExemptExceedsGross means a transaction's exempt amount is larger than the sale itself
	ExemptExceedsGross InconsistencyKind = "exempt_exceeds_gross"
)

// Inconsistency is an ArithmeticInconsistency flagged on an aggregate
// amounts are reported as computed; nothing is corrected
type Inconsistency struct {
	Kind          InconsistencyKind `json:"kind"`
	TransactionID string            `json:"transaction_id,omitempty"`
	Detail        string            `json:"detail"`
}

// Aggregate is a JurisdictionYearAggregate
type Aggregate struct {
	Jurisdiction     string          `json:"jurisdiction"`
	Year             int             `json:"year"`
	Gross            decimal.Decimal `json:"gross_sales"`
	Taxable          decimal.Decimal `json:"taxable_sales"`
	Exempt           decimal.Decimal `json:"exempt_sales"`
	Direct           decimal.Decimal `json:"direct_sales"`
	Marketplace      decimal.Decimal `json:"marketplace_sales"`
	Count            int             `json:"transaction_count"`
	MarketplaceCount int             `json:"marketplace_transaction_count"`
	Inconsistencies  []Inconsistency `json:"inconsistencies,omitempty"`
}

type key struct {
	jurisdiction string
	year         int
}

// Build produces one aggregate per (jurisdiction, year) present in txns
// output is sorted by jurisdiction then year and does not depend on input order
func Build(txns []ledger.Transaction) []Aggregate {
	idx := map[key]*Aggregate{}
	for _, t := range txns {
		k := key{t.Jurisdiction, t.Year()}
		a, ok := idx[k]
		if !ok {
			a = &Aggregate{Jurisdiction: k.jurisdiction, Year: k.year}
			idx[k] = a
		}
		add(a, t)
	}

	out := make([]Aggregate, 0, len(idx))
	for _, a := range idx {
		a.Inconsistencies = append(a.Inconsistencies, Verify(*a)...)
		slices.SortFunc(a.Inconsistencies, func(x, y Inconsistency) int {
			return cmp.Or(cmp.Compare(x.Kind, y.Kind), cmp.Compare(x.TransactionID, y.TransactionID))
		})
		out = append(out, *a)
	}
	slices.SortFunc(out, func(x, y Aggregate) int {
		return cmp.Or(cmp.Compare(x.Jurisdiction, y.Jurisdiction), cmp.Compare(x.Year, y.Year))
	})
	return out
}

func add(a *Aggregate, t ledger.Transaction) {
	a.Gross = a.Gross.Add(t.Gross)
	a.Taxable = a.Taxable.Add(t.Taxable)
	a.Exempt = a.Exempt.Add(t.Exempt)
	a.Count++
	if t.IsMarketplace() {
		a.Marketplace = a.Marketplace.Add(t.Gross)
		a.MarketplaceCount++
	} else {
		a.Direct = a.Direct.Add(t.Gross)
	}
	if exemptExceeds(t) {
		a.Inconsistencies = append(a.Inconsistencies, Inconsistency{
			Kind:          ExemptExceedsGross,
			TransactionID: t.ID,
			Detail: fmt.Sprintf("exempt %s exceeds gross %s on %s",
				t.Exempt.String(), t.Gross.String(), t.Date.Format(ledger.DateLayout)),
		})
	}
}

// exemptExceeds holds when the split has a component with the opposite sign of gross
func exemptExceeds(t ledger.Transaction) bool {
	if t.Gross.IsZero() {
		return !t.Exempt.IsZero()
	}
	return t.Exempt.Abs().GreaterThan(t.Gross.Abs()) && t.Exempt.Sign() == t.Gross.Sign()
}

// Verify checks the aggregate level split invariant
func Verify(a Aggregate) []Inconsistency {
	if money.WithinTolerance(a.Taxable.Add(a.Exempt), a.Gross) {
		return nil
	}
	return []Inconsistency{{
		Kind: SplitMismatch,
		Detail: fmt.Sprintf("%s %d: taxable %s + exempt %s != gross %s",
			a.Jurisdiction, a.Year, a.Taxable.String(), a.Exempt.String(), a.Gross.String()),
	}}
}

// Jurisdiction holds the per jurisdiction slices the engine folds over
type Jurisdiction struct {
	Code         string
	Transactions []ledger.Transaction // date ascending
	Years        []Aggregate          // year ascending
}

// ByYear returns the transactions falling in year
func (j Jurisdiction) ByYear(year int) []ledger.Transaction {
	var out []ledger.Transaction
	for _, t := range j.Transactions {
		if t.Year() == year {
			out = append(out, t)
		}
	}
	return out
}

// Earliest returns the first transaction date for this jurisdiction
func (j Jurisdiction) Earliest() (ledger.Transaction, bool) {
	if len(j.Transactions) == 0 {
		return ledger.Transaction{}, false
	}
	return j.Transactions[0], true
}

// GroupByJurisdiction splits txns into independent jurisdiction units, sorted by code
func GroupByJurisdiction(txns []ledger.Transaction) []Jurisdiction {
	byCode := map[string][]ledger.Transaction{}
	for _, t := range txns {
		byCode[t.Jurisdiction] = append(byCode[t.Jurisdiction], t)
	}
	out := make([]Jurisdiction, 0, len(byCode))
	for code, list := range byCode {
		sorted := slices.Clone(list)
		slices.SortStableFunc(sorted, ledger.SortKey)
		out = append(out, Jurisdiction{Code: code, Transactions: sorted, Years: Build(sorted)})
	}
	slices.SortFunc(out, func(a, b Jurisdiction) int { return cmp.Compare(a.Code, b.Code) })
	return out
}
