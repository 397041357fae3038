package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"nexuscalc/internal/core/ledger"
	"nexuscalc/internal/core/money"
	"nexuscalc/internal/services/analysis/domain"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
}

func printAnalysis(w io.Writer, res domain.AnalyzeResult) {
	rep := res.Report
	fmt.Fprintln(w, printer.Sprintf("run %s  as of %s  dataset %s  %d transactions (%d rejected)",
		res.RunID, rep.AsOf.Format(time.DateOnly), rep.DatasetVersion, res.Batch.Total, len(res.Batch.Rejected)))
	fmt.Fprintln(w)

	tw := table(w)
	fmt.Fprintln(tw, "JURISDICTION\tSTATUS\tTYPE\tFIRST YEAR\tOBLIGATION\tBASE TAX\tINTEREST\tPENALTIES\tTOTAL\t")
	for _, jr := range rep.Jurisdictions {
		if jr.Failed() {
			fmt.Fprintf(tw, "%s\terror\t%s\t\t\t\t\t\t\t\n", jr.Jurisdiction, jr.Err.Message)
			continue
		}
		first, start := "", ""
		if jr.FirstTriggeredYear != 0 {
			first = fmt.Sprint(jr.FirstTriggeredYear)
		}
		if jr.Obligation != nil {
			start = jr.Obligation.Start.Format(time.DateOnly)
		}
		t := jr.Totals
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n", jr.Jurisdiction, jr.Status, jr.Type, first, start,
			money.Format(t.BaseTax), money.Format(t.Interest), money.Format(t.Penalties), money.Format(t.Total))
	}
	t := rep.Totals
	fmt.Fprintf(tw, "TOTAL\t\t\t\t\t%s\t%s\t%s\t%s\t\n",
		money.Format(t.BaseTax), money.Format(t.Interest), money.Format(t.Penalties), money.Format(t.Total))
	_ = tw.Flush()

	if rep.Failed > 0 {
		fmt.Fprintln(w, printer.Sprintf("\n%d jurisdictions could not be evaluated", rep.Failed))
	}
	if res.Persisted {
		fmt.Fprintln(w, "\nrun stored")
	}
	printRejected(w, res.Batch.Rejected)
}

func printVDA(w io.Writer, res domain.VDAResult) {
	sc := res.Scenario
	fmt.Fprintln(w, printer.Sprintf("vda for run %s  lookback %d months from %s  interest waiver %s",
		res.RunID, sc.LookbackMonths, sc.WindowStart.Format(time.DateOnly), sc.InterestWaiver))
	fmt.Fprintln(w)

	tw := table(w)
	fmt.Fprintln(tw, "JURISDICTION\tBASELINE\tVDA\tSAVINGS\t")
	for _, it := range sc.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", it.Jurisdiction,
			money.Format(it.Baseline.Total), money.Format(it.VDA.Total), money.Format(it.Savings))
	}
	fmt.Fprintf(tw, "TOTAL\t%s\t%s\t%s\t\n", money.Format(sc.BaselineTotal), money.Format(sc.VDATotal), money.Format(sc.Savings))
	_ = tw.Flush()
}

// printRejected lists the first rejected rows
func printRejected(w io.Writer, rejected []ledger.RowError) {
	const limit = 20
	if len(rejected) == 0 {
		return
	}
	fmt.Fprintln(w, printer.Sprintf("\n%d rows rejected:", len(rejected)))
	for i, r := range rejected {
		if i == limit {
			fmt.Fprintln(w, printer.Sprintf("  ... and %d more", len(rejected)-limit))
			break
		}
		fmt.Fprintf(w, "  %s\n", r.Error())
	}
}
