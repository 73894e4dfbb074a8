// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one extraction end to end: load the catalog, fan the
// jobs out over the scheduler, write the summary and record the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/chapter-extract/internal/artifact"
	"github.com/pdiddy/chapter-extract/internal/catalog"
	"github.com/pdiddy/chapter-extract/internal/container"
	"github.com/pdiddy/chapter-extract/internal/document"
	"github.com/pdiddy/chapter-extract/internal/extract"
	"github.com/pdiddy/chapter-extract/internal/ledger"
	"github.com/pdiddy/chapter-extract/internal/summary"
	"github.com/pdiddy/chapter-extract/pkg/types"
)

// Request describes one run.
type Request struct {
	Config types.RunConfig

	// Opener overrides the document backend built from Config.Document.
	Opener document.Opener

	// Progress receives one [OK]/[FAIL] line per job. Nil discards.
	Progress io.Writer

	Logger *slog.Logger
}

// Report is the outcome of a run.
type Report struct {
	RunID           uuid.UUID
	Title           string
	Jobs            []types.Job
	Results         *extract.ResultSet
	Summary         summary.Record
	SummaryPath     string
	SpreadsheetPath string
	Elapsed         time.Duration
}

// Run executes req. Catalog and configuration errors abort before any job
// starts. Job failures are reported in the Report, not as an error. A
// summary or ledger write failure is returned together with the Report,
// after every job artifact has been written.
func Run(ctx context.Context, req Request) (*Report, error) {
	logger := req.Logger
	if logger == nil {
		logger = slog.Default()
	}
	progress := req.Progress
	if progress == nil {
		progress = io.Discard
	}
	cfg := req.Config
	cfg.Extraction = cfg.Extraction.WithDefaults()
	cfg.Document = cfg.Document.WithDefaults()

	if cfg.Output.Dir == "" {
		return nil, errors.New("output directory is required")
	}
	if cfg.Extraction.CatalogPath == "" {
		return nil, errors.New("catalog path is required")
	}

	cat, err := catalog.LoadFile(cfg.Extraction.CatalogPath)
	if err != nil {
		return nil, err
	}
	jobs := cat.Load()

	opener := req.Opener
	if opener == nil {
		if opener, err = NewOpener(cfg.Document, logger); err != nil {
			return nil, err
		}
	}

	dirWriter, err := artifact.NewDirWriter(cfg.Output.Dir)
	if err != nil {
		return nil, err
	}
	var writer artifact.Writer = dirWriter
	if cfg.Output.Header {
		writer = artifact.WithHeaders(dirWriter, jobs)
	}

	start := time.Now()
	sched := extract.NewScheduler(
		extract.NewExecutor(opener, extract.WithExecutorLogger(logger)),
		extract.WithMaxWorkers(cfg.Extraction.MaxWorkers),
		extract.WithWriter(writer),
		extract.WithProgress(progress),
		extract.WithSchedulerLogger(logger),
	)
	set, err := sched.Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Title:   cat.Title(),
		Jobs:    jobs,
		Results: set,
		Summary: summary.Summarize(cat.Title(), jobs, set),
	}

	var errs []error
	if err := dirWriter.Write(artifact.SummaryName, rep.Summary.Render()); err != nil {
		errs = append(errs, fmt.Errorf("writing summary: %w", err))
	} else {
		rep.SummaryPath = dirWriter.Path(artifact.SummaryName)
	}

	if cfg.Output.Spreadsheet {
		if err := writeSpreadsheet(dirWriter, rep.Summary); err != nil {
			errs = append(errs, err)
		} else {
			rep.SpreadsheetPath = dirWriter.Path(artifact.SpreadsheetName)
		}
	}
	rep.Elapsed = time.Since(start)

	if cfg.Ledger.Enabled {
		id, err := record(ctx, cfg, rep, start)
		if err != nil {
			errs = append(errs, err)
		}
		rep.RunID = id
	}

	logger.Info("run complete",
		"title", rep.Summary.Title,
		"succeeded", rep.Summary.Succeeded,
		"failed", rep.Summary.Failed,
		"chars", rep.Summary.TotalChars,
		"elapsed", rep.Elapsed.Round(time.Millisecond),
	)
	return rep, errors.Join(errs...)
}

func writeSpreadsheet(w *artifact.DirWriter, rec summary.Record) error {
	data, err := rec.Spreadsheet()
	if err != nil {
		return fmt.Errorf("building spreadsheet: %w", err)
	}
	if err := w.WriteBytes(artifact.SpreadsheetName, data); err != nil {
		return fmt.Errorf("writing spreadsheet: %w", err)
	}
	return nil
}

// LedgerDir returns the configured ledger directory, defaulting to a
// directory under the output directory.
func LedgerDir(cfg types.RunConfig) string {
	if cfg.Ledger.Dir != "" {
		return cfg.Ledger.Dir
	}
	return filepath.Join(cfg.Output.Dir, ledger.DirName)
}

func record(ctx context.Context, cfg types.RunConfig, rep *Report, start time.Time) (uuid.UUID, error) {
	store, err := ledger.Open(types.LedgerConfig{Enabled: true, Dir: LedgerDir(cfg)})
	if err != nil {
		return uuid.Nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer store.Close()

	run, err := store.Record(ctx, ledger.Run{
		Document:     cfg.Document.Path,
		CatalogTitle: rep.Title,
		MaxWorkers:   cfg.Extraction.MaxWorkers,
		StartedAt:    start,
		FinishedAt:   start.Add(rep.Elapsed),
		Succeeded:    rep.Summary.Succeeded,
		Failed:       rep.Summary.Failed,
		TotalChars:   rep.Summary.TotalChars,
	}, rep.Results.Ordered(rep.Jobs))
	if err != nil {
		return uuid.Nil, err
	}
	return run.ID, nil
}

// NewOpener builds the document backend for cfg: local pdftotext, or
// pdftotext inside a container image when cfg.Container is set.
func NewOpener(cfg types.DocumentConfig, logger *slog.Logger) (document.Opener, error) {
	cfg = cfg.WithDefaults()
	opts := []document.Option{document.WithLogger(logger)}
	if cfg.Container {
		rt, err := container.DetectRuntime()
		if err != nil {
			return nil, err
		}
		tc, err := document.NewContainerText(rt, cfg.Image)
		if err != nil {
			return nil, err
		}
		logger.Info("extracting inside container", "runtime", rt.Name(), "image", cfg.Image)
		opts = append(opts, document.WithTextCommand(tc))
	}
	return document.NewPopplerOpener(cfg, opts...), nil
}
