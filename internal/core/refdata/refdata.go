// Package refdata is an in-memory snapshot of jurisdiction thresholds, rates and marketplace policy.
// It is read only once built; adapters populate it from YAML or Postgres
package refdata

import (
	"cmp"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"nexuscalc/internal/core/liability"
	"nexuscalc/internal/core/threshold"
	perr "nexuscalc/internal/platform/errors"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// RuleVersion is a ThresholdRule with its validity range; EffectiveTo is inclusive and nil means open ended
type RuleVersion struct {
	EffectiveFrom                    time.Time          `json:"effective_from" yaml:"effective_from"`
	EffectiveTo                      *time.Time         `json:"effective_to,omitempty" yaml:"effective_to,omitempty"`
	Revenue                          *decimal.Decimal   `json:"revenue_threshold,omitempty" yaml:"revenue_threshold,omitempty"`
	Transactions                     *int               `json:"transaction_threshold,omitempty" yaml:"transaction_threshold,omitempty"`
	Operator                         threshold.Operator `json:"combine_operator" yaml:"combine_operator"`
	MarketplaceCountsTowardThreshold bool               `json:"marketplace_counts_toward_threshold" yaml:"marketplace_counts_toward_threshold"`
	MarketplaceExcludedFromLiability bool               `json:"marketplace_excluded_from_liability" yaml:"marketplace_excluded_from_liability"`
}

func (v RuleVersion) covers(d time.Time) bool {
	return !v.EffectiveFrom.After(d) && (v.EffectiveTo == nil || !v.EffectiveTo.Before(d))
}

// Rule binds the version to a jurisdiction and year
func (v RuleVersion) Rule(code string, year int) threshold.Rule {
	return threshold.Rule{
		Jurisdiction:                     code,
		Year:                             year,
		Revenue:                          v.Revenue,
		Transactions:                     v.Transactions,
		Operator:                         v.Operator,
		MarketplaceCountsTowardThreshold: v.MarketplaceCountsTowardThreshold,
		MarketplaceExcludedFromLiability: v.MarketplaceExcludedFromLiability,
	}
}

// Jurisdiction is one jurisdiction's reference data
type Jurisdiction struct {
	Code             string                   `json:"code" yaml:"-"`
	Name             string                   `json:"name" yaml:"name"`
	Rate             decimal.Decimal          `json:"rate" yaml:"rate"`
	InterestRate     decimal.Decimal          `json:"interest_rate" yaml:"interest_rate"`
	InterestMethod   liability.InterestMethod `json:"interest_method" yaml:"interest_method"`
	PenaltyRate      decimal.Decimal          `json:"penalty_rate" yaml:"penalty_rate"`
	PhysicalPresence *time.Time               `json:"physical_presence,omitempty" yaml:"physical_presence,omitempty"`
	Rules            []RuleVersion            `json:"rules" yaml:"rules"`
}

// Policy is the liability policy for this jurisdiction
func (j Jurisdiction) Policy() liability.Policy {
	return liability.Policy{Rate: j.Rate, InterestRate: j.InterestRate, InterestMethod: j.InterestMethod, PenaltyRate: j.PenaltyRate}
}

// Dataset is a versioned reference data snapshot
type Dataset struct {
	Version       string                   `json:"version" yaml:"version"`
	Jurisdictions map[string]*Jurisdiction `json:"jurisdictions" yaml:"jurisdictions"`
}

// Empty reports a wholly absent dataset
func (d *Dataset) Empty() bool { return d == nil || len(d.Jurisdictions) == 0 }

// Codes lists jurisdiction codes in order
func (d *Dataset) Codes() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.Jurisdictions))
	for c := range d.Jurisdictions {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Get returns a jurisdiction or a ReferenceDataError
func (d *Dataset) Get(code string) (*Jurisdiction, error) {
	if d != nil {
		if j, ok := d.Jurisdictions[code]; ok && j != nil {
			return j, nil
		}
	}
	return nil, perr.WithField(perr.ReferenceDataf("no reference data for jurisdiction %s", code), "jurisdiction")
}

// RuleFor picks the rule in force for year. The version covering January 1 wins;
// otherwise the earliest version starting inside the year is used
func (d *Dataset) RuleFor(code string, year int) (threshold.Rule, error) {
	j, err := d.Get(code)
	if err != nil {
		return threshold.Rule{}, err
	}
	jan1 := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	dec31 := time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC)

	var covering []RuleVersion
	var inYear *RuleVersion
	for i := range j.Rules {
		v := j.Rules[i]
		if v.covers(jan1) {
			covering = append(covering, v)
			continue
		}
		if v.EffectiveFrom.After(jan1) && !v.EffectiveFrom.After(dec31) {
			if inYear == nil || v.EffectiveFrom.Before(inYear.EffectiveFrom) {
				inYear = &v
			}
		}
	}
	switch {
	case len(covering) > 1:
		return threshold.Rule{}, perr.ReferenceDataf("%s: %d threshold rules overlap on %s", code, len(covering), jan1.Format("2006-01-02"))
	case len(covering) == 1:
		return covering[0].Rule(code, year), nil
	case inYear != nil:
		return inYear.Rule(code, year), nil
	}
	return threshold.Rule{}, perr.ReferenceDataf("%s: no threshold rule in force for %d", code, year)
}

// PolicyFor returns the liability policy for code
func (d *Dataset) PolicyFor(code string) (liability.Policy, error) {
	j, err := d.Get(code)
	if err != nil {
		return liability.Policy{}, err
	}
	return j.Policy(), nil
}

var one = decimal.NewFromInt(1)

func rateOK(r decimal.Decimal) bool { return !r.IsNegative() && r.LessThan(one) }

// Check validates one jurisdiction so a bad entry fails only that jurisdiction
func (d *Dataset) Check(code string) error {
	j, err := d.Get(code)
	if err != nil {
		return err
	}
	bad := func(format string, a ...any) error {
		return perr.ReferenceDataf("%s: "+format, append([]any{code}, a...)...)
	}
	if !rateOK(j.Rate) {
		return bad("tax rate %s outside [0,1)", j.Rate)
	}
	if !rateOK(j.InterestRate) {
		return bad("interest rate %s outside [0,1)", j.InterestRate)
	}
	if !rateOK(j.PenaltyRate) {
		return bad("penalty rate %s outside [0,1)", j.PenaltyRate)
	}
	if _, err := liability.ParseInterestMethod(string(j.InterestMethod)); err != nil {
		return bad("%v", err)
	}
	if len(j.Rules) == 0 {
		return bad("no threshold rules")
	}
	for i, v := range j.Rules {
		if v.EffectiveTo != nil && v.EffectiveTo.Before(v.EffectiveFrom) {
			return bad("rule %d ends before it starts", i)
		}
		if err := v.Rule(code, v.EffectiveFrom.Year()).Validate(); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeReferenceData, "%s: rule %d", code, i)
		}
		if i == 0 {
			continue
		}
		prev := j.Rules[i-1]
		if !v.EffectiveFrom.After(prev.EffectiveFrom) {
			return bad("rules are not ordered by effective_from at %d", i)
		}
		if prev.EffectiveTo == nil || !prev.EffectiveTo.Before(v.EffectiveFrom) {
			return bad("rule %d overlaps rule %d", i-1, i)
		}
	}
	return nil
}

// Validate checks every jurisdiction and joins the failures
func (d *Dataset) Validate() error {
	if d.Empty() {
		return perr.ReferenceDataf("reference dataset is empty")
	}
	var errs []error
	for _, c := range d.Codes() {
		if err := d.Check(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// normalize fills derived fields after decoding
func (d *Dataset) normalize() error {
	if d.Jurisdictions == nil {
		d.Jurisdictions = map[string]*Jurisdiction{}
	}
	norm := make(map[string]*Jurisdiction, len(d.Jurisdictions))
	for code, j := range d.Jurisdictions {
		if j == nil {
			continue
		}
		c := strings.ToUpper(strings.TrimSpace(code))
		j.Code = c
		if j.InterestMethod == "" {
			j.InterestMethod = liability.InterestSimple
		}
		for i := range j.Rules {
			op, err := threshold.ParseOperator(string(j.Rules[i].Operator))
			if err != nil {
				return perr.Wrapf(err, perr.ErrorCodeReferenceData, "%s: rule %d", c, i)
			}
			j.Rules[i].Operator = op
		}
		slices.SortStableFunc(j.Rules, func(a, b RuleVersion) int { return a.EffectiveFrom.Compare(b.EffectiveFrom) })
		norm[c] = j
	}
	d.Jurisdictions = norm
	return nil
}

// New builds a dataset from jurisdictions, normalizing codes and rule order
func New(version string, jurisdictions ...Jurisdiction) (*Dataset, error) {
	d := &Dataset{Version: version, Jurisdictions: make(map[string]*Jurisdiction, len(jurisdictions))}
	for i := range jurisdictions {
		j := jurisdictions[i]
		d.Jurisdictions[j.Code] = &j
	}
	if err := d.normalize(); err != nil {
		return nil, err
	}
	return d, nil
}

// LoadYAML decodes a dataset. Per jurisdiction problems are left for Check
func LoadYAML(r io.Reader) (*Dataset, error) {
	var d Dataset
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, perr.ReferenceDataf("reference dataset is empty")
		}
		return nil, perr.Wrap(err, perr.ErrorCodeReferenceData, "decode reference dataset")
	}
	if err := d.normalize(); err != nil {
		return nil, err
	}
	return &d, nil
}

// WriteYAML encodes the dataset in the form LoadYAML reads
func (d *Dataset) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode reference dataset: %w", err)
	}
	return enc.Close()
}

//go:embed default.yaml
var defaultYAML string

// Default returns the embedded dataset
func Default() (*Dataset, error) {
	return LoadYAML(strings.NewReader(defaultYAML))
}

// SortedJurisdictions returns jurisdictions ordered by code
func (d *Dataset) SortedJurisdictions() []Jurisdiction {
	out := make([]Jurisdiction, 0, len(d.Jurisdictions))
	for _, j := range d.Jurisdictions {
		out = append(out, *j)
	}
	slices.SortFunc(out, func(a, b Jurisdiction) int { return cmp.Compare(a.Code, b.Code) })
	return out
}
