package main

import (
	"github.com/spf13/cobra"

	"nexuscalc/internal/services/analysis/domain"
)

// analyzeFlags are shared by analyze and vda
type analyzeFlags struct {
	input        string
	asOf         string
	exposureFrom string
	bandBasis    string
	physical     map[string]string
	persist      bool
	json         bool
}

func (f *analyzeFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.input, "input", "i", "", "transactions file (.json, .yaml, .csv or - for stdin); omit to use the client's stored rows")
	fl.StringVar(&f.asOf, "as-of", "", "as-of date YYYY-MM-DD")
	fl.StringVar(&f.exposureFrom, "exposure-from", "", "obligation_date | trigger_year")
	fl.StringVar(&f.bandBasis, "band-basis", "", "threshold | gross")
	fl.StringToStringVar(&f.physical, "physical", nil, "physical presence start per jurisdiction, e.g. CA=2022-05-01")
	fl.BoolVar(&f.persist, "persist", false, "store the run and determinations (needs --client and postgres)")
	fl.BoolVar(&f.json, "json", false, "print the full result as JSON")
}

// needStore reports whether the run reads or writes postgres
func (f *analyzeFlags) needStore() bool { return f.input == "" || f.persist }

func (f *analyzeFlags) request(g *globals) (domain.AnalyzeInput, error) {
	in := domain.AnalyzeInput{
		ClientID:     g.client,
		AsOf:         f.asOf,
		Physical:     f.physical,
		ExposureFrom: f.exposureFrom,
		BandBasis:    f.bandBasis,
		Persist:      &f.persist,
	}
	if f.input != "" {
		rows, err := readTransactions(f.input)
		if err != nil {
			return in, err
		}
		in.Transactions = rows
	}
	return in, nil
}

func analyzeCmd(g *globals) *cobra.Command {
	f := &analyzeFlags{}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Determine nexus, obligation dates and liability per jurisdiction",
		Example: `  nexus-analyze analyze --input sales.csv --as-of 2025-12-31
  nexus-analyze analyze --client 6f1c3a52-8f7e-4a86-9c55-1f0c2e7b9d11 --as-of 2025-12-31 --persist`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := f.request(g)
			if err != nil {
				return err
			}
			e, err := open(cmd.Context(), g, f.needStore())
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := e.ana.Analyze(cmd.Context(), in)
			if err != nil {
				return err
			}
			if f.json {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printAnalysis(cmd.OutOrStdout(), res)
			return nil
		},
	}
	f.bind(cmd)
	_ = cmd.MarkFlagRequired("as-of")
	return cmd
}
