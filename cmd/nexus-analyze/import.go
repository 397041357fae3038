package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nexuscalc/internal/services/analysis/domain"
)

func importCmd(g *globals) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Store ledger transactions for a client",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := readTransactions(input)
			if err != nil {
				return err
			}
			e, err := open(cmd.Context(), g, true)
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := e.ana.Import(cmd.Context(), domain.ImportInput{ClientID: g.client, Transactions: rows})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, printer.Sprintf("stored %d of %d rows for client %s", res.Stored, res.Batch.Total, res.ClientID))
			printRejected(out, res.Batch.Rejected)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "transactions file (.json, .yaml, .csv or - for stdin)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
