// Package nexus folds yearly threshold results into sticky nexus determinations.
//
// Years are folded strictly ascending. Each step sees only the prior year's terminal
// State and returns an immutable Year record, so any single year can be replayed in
// isolation by handing Step the state that preceded it.
package nexus

import (
	"fmt"

	"nexuscalc/internal/core/threshold"
)

// Type is how nexus was established
type Type string

const (
	TypeNone     Type = "none"
	TypeEconomic Type = "economic"
	TypePhysical Type = "physical"
	TypeBoth     Type = "both"
)

// TypeOf combines the two nexus sources
func TypeOf(economic, physical bool) Type {
	switch {
	case economic && physical:
		return TypeBoth
	case economic:
		return TypeEconomic
	case physical:
		return TypePhysical
	}
	return TypeNone
}

// State is the terminal state after a year has been folded.
// Triggered is terminal for the run; there is no transition back to unset
type State struct {
	Triggered          bool
	FirstTriggeredYear int
	Economic           bool
	Physical           bool
}

// YearInput is what the tracker needs for one year
type YearInput struct {
	Year     int
	Eval     threshold.Result
	Physical bool // physical presence established on or before the end of this year
}

// Year is the NexusDetermination for one jurisdiction year
type Year struct {
	Year               int              `json:"year"`
	Status             threshold.Status `json:"nexus_status"`
	Type               Type             `json:"nexus_type"`
	FirstTriggeredYear int              `json:"first_triggered_year,omitempty"`
	IsSticky           bool             `json:"is_sticky"`
	Eval               threshold.Result `json:"evaluation"`
}

// Step folds one year onto the prior state
func Step(prior State, in YearInput) (Year, State) {
	next := prior
	if in.Eval.Status == threshold.StatusHasNexus {
		next.Economic = true
	}
	if in.Physical {
		next.Physical = true
	}

	y := Year{Year: in.Year, Eval: in.Eval, Type: TypeOf(next.Economic, next.Physical)}
	switch {
	case prior.Triggered:
		y.Status = threshold.StatusHasNexus
		y.IsSticky = true
		y.FirstTriggeredYear = prior.FirstTriggeredYear
	case next.Economic || next.Physical:
		next.Triggered = true
		next.FirstTriggeredYear = in.Year
		y.Status = threshold.StatusHasNexus
		y.FirstTriggeredYear = in.Year
	default:
		y.Status = in.Eval.Status
		if y.Status == "" {
			y.Status = threshold.StatusNone
		}
	}
	return y, next
}

// Fold runs Step over inputs, which must be strictly ascending by year
func Fold(inputs []YearInput) ([]Year, State, error) {
	out := make([]Year, 0, len(inputs))
	var st State
	for i, in := range inputs {
		if i > 0 && in.Year <= inputs[i-1].Year {
			return nil, State{}, fmt.Errorf("years must be folded ascending: %d after %d", in.Year, inputs[i-1].Year)
		}
		var y Year
		y, st = Step(st, in)
		out = append(out, y)
	}
	return out, st, nil
}
