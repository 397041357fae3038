package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nexuscalc/internal/core/refdata"
)

func refdataCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "refdata", Short: "Inspect, validate and seed reference data"}
	cmd.AddCommand(refdataValidateCmd(), refdataSeedCmd(g), refdataExportCmd(g))
	return cmd
}

// loadDataset reads path or the bundled dataset when path is empty
func loadDataset(path string) (*refdata.Dataset, error) {
	if path == "" {
		return refdata.Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return refdata.LoadYAML(f)
}

func refdataValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file.yaml]",
		Short: "Validate a reference dataset (the bundled one when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			d, err := loadDataset(path)
			if err != nil {
				return err
			}
			if err := d.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), printer.Sprintf("dataset %s is valid: %d jurisdictions", d.Version, len(d.Codes())))
			return nil
		},
	}
}

func refdataSeedCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file.yaml]",
		Short: "Replace the postgres reference tables with a dataset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			d, err := loadDataset(path)
			if err != nil {
				return err
			}
			e, err := open(cmd.Context(), g, true)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.ref.Seed(cmd.Context(), d); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), printer.Sprintf("seeded dataset %s: %d jurisdictions", d.Version, len(d.Codes())))
			return nil
		},
	}
}

func refdataExportCmd(g *globals) *cobra.Command {
	var fromPG bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the reference dataset currently in force as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := open(cmd.Context(), g, fromPG)
			if err != nil {
				return err
			}
			defer e.Close()

			d, err := e.ref.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			return d.WriteYAML(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&fromPG, "pg", false, "connect to postgres (needed when CORE_REFDATA_SOURCE=pg)")
	return cmd
}
