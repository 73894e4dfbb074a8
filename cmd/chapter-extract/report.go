// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pdiddy/chapter-extract/internal/ledger"
	"github.com/pdiddy/chapter-extract/internal/pipeline"
	"github.com/pdiddy/chapter-extract/pkg/types"
)

var (
	rule    = strings.Repeat("-", 60)
	printer = message.NewPrinter(language.English)
)

// printReport writes the end-of-run totals.
func printReport(w io.Writer, rep *pipeline.Report) {
	printer.Fprintf(w, "\n[DONE] Extracted %d chapters", rep.Summary.Succeeded)
	if rep.Summary.Failed > 0 {
		printer.Fprintf(w, " (%d failed)", rep.Summary.Failed)
	}
	fmt.Fprintln(w)
	printer.Fprintf(w, "Total: %d characters\n", rep.Summary.TotalChars)
	if rep.SummaryPath != "" {
		fmt.Fprintf(w, "Summary: %s\n", rep.SummaryPath)
	}
	if rep.SpreadsheetPath != "" {
		fmt.Fprintf(w, "Spreadsheet: %s\n", rep.SpreadsheetPath)
	}
	if rep.RunID != uuid.Nil {
		fmt.Fprintf(w, "Run: %s (%s)\n", rep.RunID, rep.Elapsed.Round(time.Millisecond))
	}
}

// printRuns writes one line per ledger run.
func printRuns(w io.Writer, runs []ledger.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-19s  %-24s  %4s  %4s  %12s  %s\n",
		"Run", "Started", "Catalog", "OK", "Fail", "Chars", "Elapsed")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, r := range runs {
		title := r.CatalogTitle
		if len(title) > 24 {
			title = title[:21] + "..."
		}
		printer.Fprintf(w, "%-36s  %-19s  %-24s  %4d  %4d  %12d  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), title,
			r.Succeeded, r.Failed, r.TotalChars, r.Elapsed().Round(time.Millisecond))
	}
	fmt.Fprintf(w, "\n%d runs\n", len(runs))
}

// printResults writes a run's per-chapter results.
func printResults(w io.Writer, run ledger.Run, results []types.JobResult) {
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "Document: %s\n", run.Document)
	fmt.Fprintf(w, "Workers:  %d\n", run.MaxWorkers)
	fmt.Fprintf(w, "Started:  %s\n\n", run.StartedAt.Local().Format(time.RFC3339))

	fmt.Fprintf(w, "%-24s  %-9s  %12s  %5s  %s\n", "Chapter", "Status", "Chars", "Pages", "File/Error")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, r := range results {
		detail := r.File
		if !r.Succeeded() {
			detail = fmt.Sprintf("[%s] %s", r.Kind, r.Error)
		}
		printer.Fprintf(w, "%-24s  %-9s  %12d  %5d  %s\n", r.ID, r.Status, r.Chars, r.Pages, detail)
	}
}
