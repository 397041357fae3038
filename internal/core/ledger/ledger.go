// Package ledger turns raw sales rows into immutable transactions.
// Taxability is resolved exactly once here; nothing downstream re-derives it
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical transaction date format
const DateLayout = "2006-01-02"

// Channel is how a sale reached the buyer
type Channel string

const (
	// ChannelDirect is a sale made by the seller itself
	ChannelDirect Channel = "direct"
	// ChannelMarketplace is a sale facilitated by a marketplace
	ChannelMarketplace Channel = "marketplace"
)

// ParseChannel maps a raw channel label; blank means direct
func ParseChannel(s string) (Channel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct":
		return ChannelDirect, true
	case "marketplace":
		return ChannelMarketplace, true
	}
	return "", false
}

// Transaction is a single resolved sale or return
// construct with New so Taxable and Exempt are always derived from the same rule
type Transaction struct {
	ID           string          `json:"id,omitempty"`
	Date         time.Time       `json:"date"`
	Jurisdiction string          `json:"jurisdiction"`
	Gross        decimal.Decimal `json:"gross_amount"`
	Channel      Channel         `json:"channel"`
	Taxable      decimal.Decimal `json:"taxable_amount"`
	Exempt       decimal.Decimal `json:"exempt_amount"`
}

// Year is the calendar year the transaction falls in
func (t Transaction) Year() int { return t.Date.Year() }

// IsMarketplace reports a marketplace facilitated sale
func (t Transaction) IsMarketplace() bool { return t.Channel == ChannelMarketplace }

// New builds a Transaction and resolves its taxable and exempt split
func New(id string, date time.Time, jurisdiction string, gross decimal.Decimal, ch Channel, isTaxable *bool, exempt *decimal.Decimal) Transaction {
	taxable, ex := ResolveTaxability(gross, isTaxable, exempt)
	y, m, d := date.Date()
	return Transaction{
		ID:           id,
		Date:         time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Jurisdiction: NormalizeJurisdiction(jurisdiction),
		Gross:        gross,
		Channel:      ch,
		Taxable:      taxable,
		Exempt:       ex,
	}
}

// ResolveTaxability applies the split priority:
// a positive exempt amount wins, then is_taxable=false, then fully taxable.
// Returns carry their sign through the same rule, so on a return the exempt amount must be negative.
// An exempt amount signed against gross is ignored
func ResolveTaxability(gross decimal.Decimal, isTaxable *bool, exempt *decimal.Decimal) (taxable, exemptOut decimal.Decimal) {
	if exempt != nil && !exempt.IsZero() && exempt.Sign() == gross.Sign() {
		return gross.Sub(*exempt), *exempt
	}
	if isTaxable != nil && !*isTaxable {
		return decimal.Zero, gross
	}
	return gross, decimal.Zero
}

// NormalizeJurisdiction upper cases and trims a jurisdiction code
func NormalizeJurisdiction(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

// SortKey orders transactions by date then id for stable scans
func SortKey(a, b Transaction) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
