// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/chapter-extract/internal/document"
	"github.com/pdiddy/chapter-extract/internal/pipeline"
	"github.com/pdiddy/chapter-extract/internal/secrets"
	"github.com/pdiddy/chapter-extract/internal/watch"
	"github.com/pdiddy/chapter-extract/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract every chapter in a catalog from a PDF",
	Long: `Extract loads the chapter catalog, extracts each chapter's page range
from the document on a pool of workers, and writes <id>.txt for every
successful chapter plus _summary.txt to the output directory.

A chapter whose end page is past the end of the document is truncated, not
failed. A failed chapter never stops the others; the command exits non-zero
when any chapter failed.

With --watch the run repeats whenever the catalog or the document changes.`,
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.String("document", "", "PDF to extract from")
	f.String("catalog", "", "chapter catalog (YAML)")
	f.String("output", "output", "output directory for chapter files and summary")
	f.Int("workers", types.DefaultMaxWorkers, "maximum chapters extracted concurrently")
	f.Duration("page-timeout", 0, "timeout for a single page (default 10s)")
	f.Bool("xlsx", false, "also write the summary as _summary.xlsx")
	f.Bool("header", false, "prefix each chapter file with a description and page-range banner")
	f.Bool("no-ledger", false, "do not record the run in the ledger")
	f.Bool("container", false, "run pdftotext inside a poppler container image")
	f.String("image", "", "poppler container image (default minidocks/poppler:latest)")
	f.Bool("watch", false, "re-run when the catalog or document changes")

	bind := map[string]string{
		"document.path":          "document",
		"document.page_timeout":  "page-timeout",
		"document.container":     "container",
		"document.image":         "image",
		"extraction.catalog":     "catalog",
		"extraction.max_workers": "workers",
		"output.dir":             "output",
		"output.header":          "header",
		"output.spreadsheet":     "xlsx",
	}
	for key, flag := range bind {
		_ = viper.BindPFlag(key, f.Lookup(flag))
	}
	viper.SetDefault("ledger.enabled", true)

	rootCmd.AddCommand(extractCmd)
}

// runConfig assembles the run settings from flags, config file and
// environment, with passwords from .secrets/.
func runConfig() types.RunConfig {
	return types.RunConfig{
		Document: types.DocumentConfig{
			Path:          viper.GetString("document.path"),
			PageTimeout:   viper.GetDuration("document.page_timeout"),
			Container:     viper.GetBool("document.container"),
			Image:         viper.GetString("document.image"),
			UserPassword:  secretDefault(secrets.PDFUserPassword, viper.GetString("document.user_password")),
			OwnerPassword: secretDefault(secrets.PDFOwnerPassword, viper.GetString("document.owner_password")),
		},
		Extraction: types.ExtractionConfig{
			CatalogPath: viper.GetString("extraction.catalog"),
			MaxWorkers:  viper.GetInt("extraction.max_workers"),
		},
		Output: types.OutputConfig{
			Dir:         viper.GetString("output.dir"),
			Header:      viper.GetBool("output.header"),
			Spreadsheet: viper.GetBool("output.spreadsheet"),
		},
		Ledger: types.LedgerConfig{
			Enabled: viper.GetBool("ledger.enabled"),
			Dir:     viper.GetString("ledger.dir"),
		},
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := runConfig()
	if noLedger, _ := cmd.Flags().GetBool("no-ledger"); noLedger {
		cfg.Ledger.Enabled = false
	}
	if cfg.Document.Path == "" {
		return fmt.Errorf("--document is required")
	}
	if cfg.Extraction.CatalogPath == "" {
		return fmt.Errorf("--catalog is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opener, err := pipeline.NewOpener(cfg.Document, slog.Default())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	once := func(ctx context.Context) error {
		return extractOnce(ctx, cfg, opener, out)
	}

	watching, _ := cmd.Flags().GetBool("watch")
	if !watching {
		return once(ctx)
	}

	if err := once(ctx); err != nil {
		slog.Error("run failed", "error", err)
	}
	fmt.Fprintf(out, "\nWatching %s and %s for changes (Ctrl-C to stop)\n",
		cfg.Extraction.CatalogPath, cfg.Document.Path)
	return watch.Watch(ctx, []string{cfg.Extraction.CatalogPath, cfg.Document.Path}, 0,
		func(ctx context.Context, changed []string) error {
			fmt.Fprintf(out, "\nChanged: %v\n", changed)
			return once(ctx)
		})
}

func extractOnce(ctx context.Context, cfg types.RunConfig, opener document.Opener, out io.Writer) error {
	fmt.Fprintf(out, "\nExtracting chapters from %s with %d workers...\n",
		cfg.Document.Path, cfg.Extraction.WithDefaults().MaxWorkers)
	fmt.Fprintln(out, rule)

	rep, err := pipeline.Run(ctx, pipeline.Request{
		Config:   cfg,
		Opener:   opener,
		Progress: out,
		Logger:   slog.Default(),
	})
	if rep == nil {
		return err
	}

	fmt.Fprintln(out, rule)
	printReport(out, rep)
	if err != nil {
		return err
	}
	if rep.Results.HasFailures() {
		return fmt.Errorf("%d chapter(s) failed extraction", rep.Summary.Failed)
	}
	return nil
}
