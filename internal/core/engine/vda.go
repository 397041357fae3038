package engine

import (
	"nexuscalc/internal/core/ledger"
	"nexuscalc/internal/core/vda"
	perr "nexuscalc/internal/platform/errors"
)

// VDA models voluntary disclosure for the chosen jurisdictions of a report built by Run.
// Jurisdictions missing from the report or without a determination are rejected
func VDA(rep *Report, jurisdictions []string, params vda.Params) (vda.Scenario, error) {
	if rep == nil {
		return vda.Scenario{}, perr.InvalidArgf("no report to model")
	}
	if len(jurisdictions) == 0 {
		return vda.Scenario{}, perr.WithField(perr.InvalidArgf("select at least one jurisdiction"), "jurisdictions")
	}
	if params.AsOf.IsZero() {
		params.AsOf = rep.AsOf
	}
	inputs := make([]vda.Input, 0, len(jurisdictions))
	for _, raw := range jurisdictions {
		code := ledger.NormalizeJurisdiction(raw)
		jr, ok := rep.Find(code)
		if !ok {
			return vda.Scenario{}, perr.WithField(perr.InvalidArgf("jurisdiction %s is not in the analysis", code), "jurisdictions")
		}
		if jr.Failed() {
			return vda.Scenario{}, perr.WithField(perr.InvalidArgf("jurisdiction %s has no determination: %s", code, jr.Err.Message), "jurisdictions")
		}
		inputs = append(inputs, vda.Input{Jurisdiction: code, Baseline: jr.exact, Lines: jr.lines, Policy: jr.policy})
	}
	return vda.Model(inputs, params)
}
