// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DefaultMaxWorkers is the default number of jobs extracted concurrently.
// Past four workers, parsing throughput against a single document stops
// improving and contention dominates.
const DefaultMaxWorkers = 4

// DocumentConfig holds settings for opening the source document.
type DocumentConfig struct {
	// Path is the filesystem path of the PDF to extract from.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// PageTimeout bounds a single page extraction (default 10s).
	PageTimeout time.Duration `json:"page_timeout" yaml:"page_timeout" mapstructure:"page_timeout"`

	// Container runs pdftotext inside a poppler container image instead of
	// the locally installed binary.
	Container bool `json:"container" yaml:"container" mapstructure:"container"`

	// Image is the container image used when Container is set.
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// UserPassword and OwnerPassword unlock encrypted documents. Usually
	// loaded from .secrets/ rather than the config file.
	UserPassword  string `json:"-" yaml:"-" mapstructure:"-"`
	OwnerPassword string `json:"-" yaml:"-" mapstructure:"-"`
}

// WithDefaults fills zero values.
func (c DocumentConfig) WithDefaults() DocumentConfig {
	if c.PageTimeout <= 0 {
		c.PageTimeout = 10 * time.Second
	}
	if c.Image == "" {
		c.Image = "minidocks/poppler:latest"
	}
	return c
}

// ExtractionConfig holds settings for the extraction scheduler.
type ExtractionConfig struct {
	// CatalogPath is the YAML catalog of jobs to run.
	CatalogPath string `json:"catalog" yaml:"catalog" mapstructure:"catalog"`

	// MaxWorkers caps the number of jobs in flight (default 4).
	MaxWorkers int `json:"max_workers" yaml:"max_workers" mapstructure:"max_workers"`
}

// WithDefaults fills zero values.
func (c ExtractionConfig) WithDefaults() ExtractionConfig {
	if c.MaxWorkers == 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	return c
}

// OutputConfig holds settings for persisted artifacts.
type OutputConfig struct {
	// Dir receives one artifact per job plus the summary files.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Header prepends a banner with the job description and page range to
	// each artifact.
	Header bool `json:"header" yaml:"header" mapstructure:"header"`

	// Spreadsheet also writes the summary as an XLSX workbook.
	Spreadsheet bool `json:"spreadsheet" yaml:"spreadsheet" mapstructure:"spreadsheet"`
}

// LedgerConfig holds settings for the run history database.
type LedgerConfig struct {
	// Enabled records every run in the ledger.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Dir holds runs.db. Defaults to <output>/.ledger.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// RunConfig groups all settings for one extraction run.
type RunConfig struct {
	Document   DocumentConfig   `json:"document" yaml:"document" mapstructure:"document"`
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Output     OutputConfig     `json:"output" yaml:"output" mapstructure:"output"`
	Ledger     LedgerConfig     `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
}
