// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package summary aggregates a run's job results into the catalog-ordered
// summary report.
package summary

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pdiddy/chapter-extract/pkg/types"
)

// DefaultTitle is the banner line used when the catalog has no title.
const DefaultTitle = "EXTRACTED CHAPTERS"

const ruleWidth = 60

// Lookup returns the recorded result for a job id.
type Lookup interface {
	Get(id string) (types.JobResult, bool)
}

// Entry is one job's line in the summary.
type Entry struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Status      types.JobStatus `json:"status"`
	Chars       int             `json:"chars"`
	File        string          `json:"file,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Record is the aggregated outcome of a run.
type Record struct {
	Title      string  `json:"title"`
	Entries    []Entry `json:"entries"`
	Succeeded  int     `json:"succeeded"`
	Failed     int     `json:"failed"`
	TotalChars int     `json:"total_chars"`
}

// Summarize builds the record for jobs in catalog order. Failed jobs count
// zero characters. A job with no recorded result is listed as failed.
func Summarize(title string, jobs []types.Job, results Lookup) Record {
	if title == "" {
		title = DefaultTitle
	}
	rec := Record{Title: title, Entries: make([]Entry, 0, len(jobs))}
	for _, j := range jobs {
		r, ok := results.Get(j.ID)
		if !ok {
			r = types.Failure(j, types.FailureInternal, nil)
			r.Error = "no result recorded"
		}
		e := Entry{
			ID:          j.ID,
			Description: j.Description,
			Status:      r.Status,
		}
		if r.Succeeded() {
			e.Chars = r.Chars
			e.File = r.File
			rec.Succeeded++
			rec.TotalChars += r.Chars
		} else {
			e.Error = r.Error
			rec.Failed++
		}
		rec.Entries = append(rec.Entries, e)
	}
	return rec
}

// Render formats the record as the plain-text _summary.txt report.
func (r Record) Render() string {
	p := message.NewPrinter(language.English)
	rule := strings.Repeat("-", ruleWidth)

	var b strings.Builder
	b.WriteString(r.Title)
	b.WriteByte('\n')
	for _, e := range r.Entries {
		file := e.File
		if file == "" {
			file = "-"
		}
		b.WriteString(rule)
		b.WriteByte('\n')
		b.WriteString(e.ID + ":\n")
		b.WriteString("  Description: " + e.Description + "\n")
		b.WriteString(p.Sprintf("  Characters: %d\n", e.Chars))
		b.WriteString("  File: " + file + "\n")
		if e.Status != types.JobSucceeded {
			b.WriteString("  Error: " + e.Error + "\n")
		}
		b.WriteByte('\n')
	}
	b.WriteString(p.Sprintf("TOTAL: %d chapters, %d characters\n", r.Succeeded, r.TotalChars))
	return b.String()
}
