// Package engine runs the full nexus pipeline over an in-memory transaction set:
// aggregate, evaluate thresholds, fold years, resolve obligation dates and price liability.
//
// Jurisdictions are independent and evaluated in parallel; years within a jurisdiction
// are folded serially in ascending order. The engine performs no I/O and never reads the
// clock: the as-of date is part of the request.
package engine

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"

	"nexuscalc/internal/core/aggregate"
	"nexuscalc/internal/core/ledger"
	"nexuscalc/internal/core/liability"
	"nexuscalc/internal/core/nexus"
	"nexuscalc/internal/core/obligation"
	"nexuscalc/internal/core/refdata"
	"nexuscalc/internal/core/threshold"
	perr "nexuscalc/internal/platform/errors"

	"golang.org/x/sync/errgroup"
)

// ExposureFrom selects where exposure sales start counting
type ExposureFrom string

const (
	// ExposureFromObligation counts sales on or after the obligation start date
	ExposureFromObligation ExposureFrom = "obligation_date"
	// ExposureFromTriggerYear counts every sale from January 1 of the first triggered year
	ExposureFromTriggerYear ExposureFrom = "trigger_year"
)

// ParseExposureFrom maps a config value; blank is obligation_date
func ParseExposureFrom(s string) (ExposureFrom, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ExposureFromObligation):
		return ExposureFromObligation, nil
	case string(ExposureFromTriggerYear):
		return ExposureFromTriggerYear, nil
	}
	return "", fmt.Errorf("unknown exposure start %q", s)
}

// Options tune a run
type Options struct {
	ExposureFrom ExposureFrom        `json:"exposure_from"`
	BandBasis    threshold.BandBasis `json:"band_basis"`
	Parallelism  int                 `json:"-"`
}

func (o Options) withDefaults() (Options, error) {
	var err error
	if o.ExposureFrom, err = ParseExposureFrom(string(o.ExposureFrom)); err != nil {
		return o, perr.WithField(perr.InvalidArgf("%v", err), "exposure_from")
	}
	if o.BandBasis, err = threshold.ParseBandBasis(string(o.BandBasis)); err != nil {
		return o, perr.WithField(perr.InvalidArgf("%v", err), "band_basis")
	}
	if o.Parallelism <= 0 {
		o.Parallelism = runtime.GOMAXPROCS(0)
	}
	return o, nil
}

// Request is one engine invocation
type Request struct {
	Transactions []ledger.Transaction
	AsOf         time.Time
	// Physical overrides the reference data physical presence date per jurisdiction
	Physical map[string]time.Time
	Options  Options
}

// YearResult is the per year breakdown for one jurisdiction
type YearResult struct {
	Year          int                 `json:"year"`
	Aggregate     aggregate.Aggregate `json:"aggregate"`
	Determination nexus.Year          `json:"determination"`
	Rule          threshold.Rule      `json:"rule"`
	Liability     liability.Result    `json:"liability"`
	Flags         []liability.Flag    `json:"flags,omitempty"`

	exact liability.Result
}

// JurisdictionResult is either a complete determination or an explicit error
type JurisdictionResult struct {
	Jurisdiction       string                 `json:"jurisdiction"`
	Status             threshold.Status       `json:"nexus_status,omitempty"`
	Type               nexus.Type             `json:"nexus_type,omitempty"`
	FirstTriggeredYear int                    `json:"first_triggered_year,omitempty"`
	Obligation         *obligation.Obligation `json:"obligation,omitempty"`
	Years              []YearResult           `json:"years,omitempty"`
	Totals             liability.Result       `json:"totals"`
	Flags              []liability.Flag       `json:"flags,omitempty"`
	Err                *perr.Wire             `json:"error,omitempty"`

	exact  liability.Result
	lines  []liability.Line
	policy liability.Policy
}

// Failed reports a jurisdiction that produced an error instead of a determination
func (j JurisdictionResult) Failed() bool { return j.Err != nil }

// Report is the full run output, sorted by jurisdiction
type Report struct {
	AsOf           time.Time            `json:"as_of"`
	DatasetVersion string               `json:"dataset_version"`
	Options        Options              `json:"options"`
	Jurisdictions  []JurisdictionResult `json:"jurisdictions"`
	Totals         liability.Result     `json:"totals"`
	Failed         int                  `json:"failed"`
}

// Find returns the result for code
func (r *Report) Find(code string) (*JurisdictionResult, bool) {
	for i := range r.Jurisdictions {
		if r.Jurisdictions[i].Jurisdiction == code {
			return &r.Jurisdictions[i], true
		}
	}
	return nil, false
}

// Run evaluates every jurisdiction present in req.Transactions.
// A missing dataset is fatal for the batch; anything else fails only its jurisdiction
func Run(ref *refdata.Dataset, req Request) (*Report, error) {
	if ref.Empty() {
		return nil, perr.ReferenceDataf("reference dataset is missing or empty")
	}
	if req.AsOf.IsZero() {
		return nil, perr.WithField(perr.InvalidArgf("as-of date is required"), "as_of")
	}
	opts, err := req.Options.withDefaults()
	if err != nil {
		return nil, err
	}

	groups := aggregate.GroupByJurisdiction(req.Transactions)
	earliest := datasetStart(groups)
	results := make([]JurisdictionResult, len(groups))

	var g errgroup.Group
	g.SetLimit(opts.Parallelism)
	for i, grp := range groups {
		g.Go(func() error {
			results[i] = evaluate(ref, grp, req, opts, earliest)
			return nil
		})
	}
	_ = g.Wait()

	rep := &Report{AsOf: req.AsOf, DatasetVersion: ref.Version, Options: opts, Jurisdictions: results}
	var exact []liability.Result
	for _, jr := range results {
		if jr.Failed() {
			rep.Failed++
			continue
		}
		exact = append(exact, jr.exact)
	}
	rep.Totals = liability.Sum(exact...).Rounded()
	return rep, nil
}

func datasetStart(groups []aggregate.Jurisdiction) time.Time {
	var out time.Time
	for _, g := range groups {
		if first, ok := g.Earliest(); ok && (out.IsZero() || first.Date.Before(out)) {
			out = first.Date
		}
	}
	return out
}

func failed(code string, err error) JurisdictionResult {
	return JurisdictionResult{Jurisdiction: code, Err: perr.WirePtr(err)}
}

func evaluate(ref *refdata.Dataset, grp aggregate.Jurisdiction, req Request, opts Options, earliest time.Time) JurisdictionResult {
	code := grp.Code
	if err := ref.Check(code); err != nil {
		return failed(code, err)
	}
	j, _ := ref.Get(code)
	policy := j.Policy()

	var physical *time.Time
	if d, ok := req.Physical[code]; ok {
		physical = &d
	} else if j.PhysicalPresence != nil {
		d := *j.PhysicalPresence
		physical = &d
	}

	rules := make([]threshold.Rule, len(grp.Years))
	inputs := make([]nexus.YearInput, len(grp.Years))
	for i, agg := range grp.Years {
		rule, err := ref.RuleFor(code, agg.Year)
		if err != nil {
			return failed(code, err)
		}
		rules[i] = rule
		inputs[i] = nexus.YearInput{
			Year:     agg.Year,
			Eval:     threshold.Evaluate(agg, rule, threshold.Options{BandBasis: opts.BandBasis}),
			Physical: physical != nil && physical.Year() <= agg.Year,
		}
	}
	dets, state, err := nexus.Fold(inputs)
	if err != nil {
		return failed(code, perr.Wrap(err, perr.ErrorCodeUnknown, "fold years"))
	}

	out := JurisdictionResult{Jurisdiction: code, policy: policy, Status: threshold.StatusNone, Type: nexus.TypeNone}
	if n := len(dets); n > 0 {
		last := dets[n-1]
		out.Status, out.Type, out.FirstTriggeredYear = last.Status, last.Type, last.FirstTriggeredYear
	}

	var start time.Time
	if state.Triggered {
		o, err := resolveObligation(grp, dets, rules, state, physical, earliest)
		if err != nil {
			return failed(code, err)
		}
		out.Obligation = &o
		start = o.Start
		if opts.ExposureFrom == ExposureFromTriggerYear {
			start = time.Date(state.FirstTriggeredYear, 1, 1, 0, 0, 0, 0, time.UTC)
		}
	}

	var exact []liability.Result
	for i, agg := range grp.Years {
		yr := YearResult{Year: agg.Year, Aggregate: agg, Determination: dets[i], Rule: rules[i]}
		if state.Triggered && dets[i].Status == threshold.StatusHasNexus {
			exp := liability.BuildExposure(grp.ByYear(agg.Year), start, req.AsOf, rules[i].MarketplaceExcludedFromLiability)
			yr.exact = liability.Calculate(exp, policy, req.AsOf)
			yr.Flags = exp.Flags()
			out.lines = append(out.lines, exp.Lines...)
		} else {
			yr.exact = liability.Calculate(liability.Exposure{}, policy, req.AsOf)
		}
		yr.Liability = yr.exact.Rounded()
		out.Flags = mergeFlags(out.Flags, yr.Flags)
		exact = append(exact, yr.exact)
		out.Years = append(out.Years, yr)
	}
	out.exact = liability.Sum(exact...)
	out.Totals = out.exact.Rounded()
	return out
}

func resolveObligation(grp aggregate.Jurisdiction, dets []nexus.Year, rules []threshold.Rule, state nexus.State, physical *time.Time, earliest time.Time) (obligation.Obligation, error) {
	var economic *time.Time
	if state.Economic {
		for i, d := range dets {
			if d.Eval.Status != threshold.StatusHasNexus {
				continue
			}
			date, ok := obligation.EconomicDate(grp.ByYear(d.Year), rules[i])
			if !ok {
				return obligation.Obligation{}, perr.Inconsistentf("%s %d: annual threshold met but running total never crossed it", grp.Code, d.Year)
			}
			economic = &date
			break
		}
	}
	if !state.Physical {
		physical = nil
	}
	return obligation.Resolve(economic, physical, earliest)
}

func mergeFlags(have, add []liability.Flag) []liability.Flag {
	for _, f := range add {
		if !slices.Contains(have, f) {
			have = append(have, f)
		}
	}
	return have
}
