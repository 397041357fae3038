package main

import (
	"fmt"

	"github.com/spf13/cobra"

	refrepo "nexuscalc/internal/services/refdata/repo"
)

func dbCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{Use: "db", Short: "Database maintenance"}
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the reference, analysis and clickhouse facts tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := open(cmd.Context(), g, true)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := refrepo.NewPG().Bind(e.db).Migrate(cmd.Context()); err != nil {
				return err
			}
			if err := e.ana.Migrate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})
	return cmd
}
