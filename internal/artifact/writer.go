// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact persists job output and summary files.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/chapter-extract/pkg/types"
)

const (
	// Suffix is appended to a job id to name its artifact.
	Suffix = ".txt"
	// SummaryName is the consolidated summary artifact.
	SummaryName = "_summary.txt"
	// SpreadsheetName is the optional XLSX rendering of the summary.
	SpreadsheetName = "_summary.xlsx"
)

// Name returns the artifact name for a job id.
func Name(jobID string) string {
	return jobID + Suffix
}

// Writer persists named artifacts.
type Writer interface {
	Write(name, content string) error
}

// WriteError reports that an artifact could not be persisted.
type WriteError struct {
	Name string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing artifact %s: %v", e.Name, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// DirWriter writes artifacts as files in a directory. Each file is written
// to a temporary name and renamed into place, so a reader never sees a
// partially written artifact.
type DirWriter struct {
	dir string
}

// NewDirWriter creates dir if needed and returns a writer into it.
func NewDirWriter(dir string) (*DirWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	return &DirWriter{dir: dir}, nil
}

// Dir returns the output directory.
func (w *DirWriter) Dir() string { return w.dir }

// Path returns the full path of a named artifact.
func (w *DirWriter) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// Write stores content under name. Failures are *WriteError.
func (w *DirWriter) Write(name, content string) error {
	return w.WriteBytes(name, []byte(content))
}

// WriteBytes stores data under name. Failures are *WriteError.
func (w *DirWriter) WriteBytes(name string, data []byte) error {
	if name == "" || name != filepath.Base(name) {
		return &WriteError{Name: name, Err: fmt.Errorf("invalid artifact name")}
	}
	if err := writeAtomic(w.Path(name), data); err != nil {
		return &WriteError{Name: name, Err: err}
	}
	return nil
}

func writeAtomic(destPath string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// Header returns the banner placed above a job's text when headers are
// enabled.
func Header(job types.Job) string {
	rule := strings.Repeat("=", 80)
	var b strings.Builder
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "CHAPTER: %s\n", job.Description)
	fmt.Fprintf(&b, "Pages: %d-%d\n", job.StartPage, job.EndPage)
	b.WriteString(rule + "\n\n")
	return b.String()
}

// HeaderWriter prefixes each job artifact with its Header before handing it
// to the underlying writer.
type HeaderWriter struct {
	Writer
	jobs map[string]types.Job
}

// WithHeaders wraps w so artifacts named after jobs get a banner.
func WithHeaders(w Writer, jobs []types.Job) *HeaderWriter {
	m := make(map[string]types.Job, len(jobs))
	for _, j := range jobs {
		m[Name(j.ID)] = j
	}
	return &HeaderWriter{Writer: w, jobs: m}
}

func (h *HeaderWriter) Write(name, content string) error {
	if job, ok := h.jobs[name]; ok {
		content = Header(job) + content
	}
	return h.Writer.Write(name, content)
}
