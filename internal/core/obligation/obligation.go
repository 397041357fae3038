// Package obligation derives the date tax collection begins in a jurisdiction
package obligation

import (
	"errors"
	"time"

	"nexuscalc/internal/core/ledger"
	"nexuscalc/internal/core/nexus"
	"nexuscalc/internal/core/threshold"

	"github.com/shopspring/decimal"
)

// ErrNoTrigger means neither an economic nor a physical date was supplied
var ErrNoTrigger = errors.New("obligation: no economic or physical trigger")

// Obligation is when and why collection begins
type Obligation struct {
	Start    time.Time  `json:"obligation_start_date"`
	Type     nexus.Type `json:"nexus_type"`
	Economic *time.Time `json:"economic_date,omitempty"`
	Physical *time.Time `json:"physical_date,omitempty"`
	Clamped  bool       `json:"clamped,omitempty"`
}

// CrossingDate scans txns in date order with a running year to date basis and count
// and returns the date the rule is first met
func CrossingDate(txns []ledger.Transaction, r threshold.Rule) (time.Time, bool) {
	basis := decimal.Zero
	count := 0
	for _, t := range txns {
		if t.IsMarketplace() && !r.MarketplaceCountsTowardThreshold {
			continue
		}
		basis = basis.Add(t.Gross)
		count++
		if threshold.Met(basis, count, r) {
			return t.Date, true
		}
	}
	return time.Time{}, false
}

// EconomicDate is the first day of the month after the crossing date
// txns must be the trigger year's transactions only, sorted with ledger.SortKey
func EconomicDate(txns []ledger.Transaction, r threshold.Rule) (time.Time, bool) {
	d, ok := CrossingDate(txns, r)
	if !ok {
		return time.Time{}, false
	}
	return FirstOfNextMonth(d), true
}

// FirstOfNextMonth rolls December into January of the next year
func FirstOfNextMonth(d time.Time) time.Time {
	y, m, _ := d.Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}

// Resolve combines the economic and physical dates.
// physical presence starts immediately; both picks the earlier date.
// the result never precedes earliest, the first transaction in the dataset
func Resolve(economic, physical *time.Time, earliest time.Time) (Obligation, error) {
	var o Obligation
	switch {
	case economic != nil && physical != nil:
		o.Type = nexus.TypeBoth
		o.Start = *economic
		if physical.Before(o.Start) {
			o.Start = *physical
		}
	case economic != nil:
		o.Type = nexus.TypeEconomic
		o.Start = *economic
	case physical != nil:
		o.Type = nexus.TypePhysical
		o.Start = *physical
	default:
		return Obligation{}, ErrNoTrigger
	}
	o.Economic, o.Physical = economic, physical
	if !earliest.IsZero() && o.Start.Before(earliest) {
		o.Start = earliest
		o.Clamped = true
	}
	return o, nil
}
