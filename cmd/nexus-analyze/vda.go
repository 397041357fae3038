package main

import (
	"github.com/spf13/cobra"

	"nexuscalc/internal/services/analysis/domain"
)

func vdaCmd(g *globals) *cobra.Command {
	var (
		f             = &analyzeFlags{}
		runID         string
		jurisdictions []string
		lookback      int
		waiver        string
	)
	cmd := &cobra.Command{
		Use:   "vda",
		Short: "Model a voluntary disclosure agreement for selected jurisdictions",
		Example: `  nexus-analyze vda --input sales.json --as-of 2025-12-31 --jurisdictions CA,TX --lookback 36
  nexus-analyze vda --run 0b8e0f0e-3d55-4c38-9a58-52f1d2b0f3c4 --jurisdictions CA --interest-waiver 0.5`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := domain.VDAInput{RunID: runID, Jurisdictions: jurisdictions, LookbackMonths: lookback}
			if waiver != "" {
				in.InterestWaiver = &waiver
			}
			needStore := runID != ""
			if runID == "" {
				a, err := f.request(g)
				if err != nil {
					return err
				}
				in.Analysis = &a
				needStore = f.needStore()
			}

			e, err := open(cmd.Context(), g, needStore)
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := e.ana.VDA(cmd.Context(), in)
			if err != nil {
				return err
			}
			if f.json {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printVDA(cmd.OutOrStdout(), res)
			return nil
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&runID, "run", "", "stored run id to re-run instead of --input")
	cmd.Flags().StringSliceVarP(&jurisdictions, "jurisdictions", "j", nil, "jurisdictions to disclose, e.g. CA,TX")
	cmd.Flags().IntVar(&lookback, "lookback", 0, "lookback months (default CORE_VDA_LOOKBACK_MONTHS or 36)")
	cmd.Flags().StringVar(&waiver, "interest-waiver", "", "fraction of interest waived, 0 to 1")
	_ = cmd.MarkFlagRequired("jurisdictions")
	cmd.MarkFlagsMutuallyExclusive("run", "input")
	return cmd
}
