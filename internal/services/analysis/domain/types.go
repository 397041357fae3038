// Package domain holds DTOs and ports for nexus analysis runs
package domain

import (
	"time"

	"nexuscalc/internal/core/engine"
	"nexuscalc/internal/core/ledger"
	"nexuscalc/internal/core/vda"

	"github.com/shopspring/decimal"
)

// AnalyzeInput requests a nexus analysis for one client.
// With no transactions the client's stored transactions are analyzed
type AnalyzeInput struct {
	ClientID     string            `json:"client_id,omitempty" validate:"omitempty,uuid" example:"6f1c3a52-8f7e-4a86-9c55-1f0c2e7b9d11"`
	AsOf         string            `json:"as_of" validate:"required,datetime=2006-01-02" example:"2025-12-31"`
	Transactions []ledger.Raw      `json:"transactions,omitempty"`
	Physical     map[string]string `json:"physical_presence,omitempty"`
	ExposureFrom string            `json:"exposure_from,omitempty" validate:"omitempty,oneof=obligation_date trigger_year" example:"obligation_date"`
	BandBasis    string            `json:"band_basis,omitempty" validate:"omitempty,oneof=threshold gross" example:"threshold"`
	Persist      *bool             `json:"persist,omitempty"`
}

// VDAInput models voluntary disclosure either on a stored run or on a fresh analysis
type VDAInput struct {
	RunID          string        `json:"run_id,omitempty" validate:"omitempty,uuid"`
	Analysis       *AnalyzeInput `json:"analysis,omitempty"`
	Jurisdictions  []string      `json:"jurisdictions" validate:"required,min=1,dive,min=2,max=16" example:"CA,TX"`
	LookbackMonths int           `json:"lookback_months,omitempty" example:"36"`
	InterestWaiver *string       `json:"interest_waiver,omitempty" example:"0"`
}

// ImportInput stores ledger rows for a client
type ImportInput struct {
	ClientID     string       `json:"client_id,omitempty" validate:"omitempty,uuid"`
	Transactions []ledger.Raw `json:"transactions" validate:"required,min=1"`
}

// BatchSummary reports ingestion of the submitted or stored rows
type BatchSummary struct {
	Total    int               `json:"total" example:"1200"`
	Accepted int               `json:"accepted" example:"1198"`
	Rejected []ledger.RowError `json:"rejected,omitempty"`
}

// SummaryOf maps a ledger batch to its wire shape
func SummaryOf(b ledger.Batch) BatchSummary {
	return BatchSummary{Total: b.Total, Accepted: len(b.Accepted), Rejected: b.Rejected}
}

// AnalyzeResult is the response to an analysis
type AnalyzeResult struct {
	RunID     string         `json:"run_id" example:"0b8e0f0e-3d55-4c38-9a58-52f1d2b0f3c4"`
	ClientID  string         `json:"client_id,omitempty"`
	Persisted bool           `json:"persisted"`
	Batch     BatchSummary   `json:"batch"`
	Report    *engine.Report `json:"report"`
}

// VDAResult is the response to a VDA model
type VDAResult struct {
	RunID    string       `json:"run_id"`
	Scenario vda.Scenario `json:"scenario"`
}

// ImportResult reports an import
type ImportResult struct {
	ClientID string       `json:"client_id"`
	Stored   int          `json:"stored" example:"1198"`
	Batch    BatchSummary `json:"batch"`
}

// Run is the stored header of an analysis run
type Run struct {
	ID             string            `json:"id"`
	ClientID       string            `json:"client_id"`
	AsOf           time.Time         `json:"as_of"`
	DatasetVersion string            `json:"dataset_version"`
	ExposureFrom   string            `json:"exposure_from"`
	BandBasis      string            `json:"band_basis"`
	Physical       map[string]string `json:"physical_presence,omitempty"`
	Transactions   int               `json:"transactions"`
	Rejected       int               `json:"rejected"`
	Jurisdictions  int               `json:"jurisdictions"`
	Failed         int               `json:"failed"`
	TotalLiability decimal.Decimal   `json:"total_liability" swaggertype:"string"`
	CreatedAt      time.Time         `json:"created_at"`
	Determinations []Determination   `json:"determinations,omitempty"`
}

// Determination is one stored (jurisdiction, year) row of a run
type Determination struct {
	Jurisdiction       string          `json:"jurisdiction"`
	Year               int             `json:"year,omitempty"`
	Status             string          `json:"nexus_status,omitempty"`
	Type               string          `json:"nexus_type,omitempty"`
	FirstTriggeredYear int             `json:"first_triggered_year,omitempty"`
	IsSticky           bool            `json:"is_sticky"`
	ObligationStart    *time.Time      `json:"obligation_start_date,omitempty"`
	Gross              decimal.Decimal `json:"gross_sales" swaggertype:"string"`
	Taxable            decimal.Decimal `json:"taxable_sales" swaggertype:"string"`
	Count              int             `json:"transaction_count"`
	BaseTax            decimal.Decimal `json:"base_tax" swaggertype:"string"`
	Interest           decimal.Decimal `json:"interest" swaggertype:"string"`
	Penalties          decimal.Decimal `json:"penalties" swaggertype:"string"`
	Total              decimal.Decimal `json:"total" swaggertype:"string"`
	ErrorCode          string          `json:"error_code,omitempty"`
	Error              string          `json:"error,omitempty"`
}
