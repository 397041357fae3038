// Package domain holds DTOs and ports for the reference data gateway
package domain

import (
	"time"

	"nexuscalc/internal/core/refdata"

	"github.com/shopspring/decimal"
)

// Source names where a snapshot is loaded from
type Source string

const (
	// SourceEmbedded is the dataset compiled into the binary
	SourceEmbedded Source = "embedded"
	// SourceFile reads a YAML dataset from disk
	SourceFile Source = "file"
	// SourcePG reads the jurisdictions and threshold_rules tables
	SourcePG Source = "pg"
)

// SnapshotInfo describes the snapshot currently served
type SnapshotInfo struct {
	Version       string    `json:"version" example:"2025.2"`
	Source        Source    `json:"source" example:"embedded"`
	Jurisdictions int       `json:"jurisdictions" example:"9"`
	LoadedAt      time.Time `json:"loaded_at" example:"2025-09-03T13:00:00Z"`
}

// JurisdictionView is the listing shape of one jurisdiction
type JurisdictionView struct {
	Code             string          `json:"code" example:"CA"`
	Name             string          `json:"name" example:"California"`
	Rate             decimal.Decimal `json:"rate" swaggertype:"string" example:"0.0725"`
	InterestRate     decimal.Decimal `json:"interest_rate" swaggertype:"string" example:"0.07"`
	InterestMethod   string          `json:"interest_method" example:"simple"`
	PenaltyRate      decimal.Decimal `json:"penalty_rate" swaggertype:"string" example:"0.1"`
	PhysicalPresence string          `json:"physical_presence,omitempty" example:"2021-03-01"`
	Rules            int             `json:"rules" example:"1"`
}

// RuleView is one threshold rule version
type RuleView struct {
	EffectiveFrom                    string           `json:"effective_from" example:"2019-04-01"`
	EffectiveTo                      string           `json:"effective_to,omitempty" example:""`
	RevenueThreshold                 *decimal.Decimal `json:"revenue_threshold,omitempty" swaggertype:"string" example:"500000"`
	TransactionThreshold             *int             `json:"transaction_threshold,omitempty" example:"200"`
	CombineOperator                  string           `json:"combine_operator" example:"OR"`
	MarketplaceCountsTowardThreshold bool             `json:"marketplace_counts_toward_threshold"`
	MarketplaceExcludedFromLiability bool             `json:"marketplace_excluded_from_liability"`
}

// ViewOf maps a jurisdiction to its listing shape
func ViewOf(j refdata.Jurisdiction) JurisdictionView {
	v := JurisdictionView{
		Code:           j.Code,
		Name:           j.Name,
		Rate:           j.Rate,
		InterestRate:   j.InterestRate,
		InterestMethod: string(j.InterestMethod),
		PenaltyRate:    j.PenaltyRate,
		Rules:          len(j.Rules),
	}
	if j.PhysicalPresence != nil {
		v.PhysicalPresence = j.PhysicalPresence.Format(time.DateOnly)
	}
	return v
}

// RulesOf maps rule versions to their wire shape
func RulesOf(j refdata.Jurisdiction) []RuleView {
	out := make([]RuleView, 0, len(j.Rules))
	for _, r := range j.Rules {
		v := RuleView{
			EffectiveFrom:                    r.EffectiveFrom.Format(time.DateOnly),
			RevenueThreshold:                 r.Revenue,
			TransactionThreshold:             r.Transactions,
			CombineOperator:                  string(r.Operator),
			MarketplaceCountsTowardThreshold: r.MarketplaceCountsTowardThreshold,
			MarketplaceExcludedFromLiability: r.MarketplaceExcludedFromLiability,
		}
		if r.EffectiveTo != nil {
			v.EffectiveTo = r.EffectiveTo.Format(time.DateOnly)
		}
		out = append(out, v)
	}
	return out
}
