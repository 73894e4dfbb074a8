// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract runs extraction jobs against a paginated document: the
// Executor turns one job into one result, and the Scheduler fans a catalog of
// jobs out over a bounded pool of workers.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/chapter-extract/internal/document"
	"github.com/pdiddy/chapter-extract/pkg/types"
)

// JobRunner executes a single job. Implementations must never panic or
// return partial results; every failure is reported in the JobResult.
type JobRunner interface {
	Execute(ctx context.Context, job types.Job) types.JobResult
}

// Executor extracts a job's page range from its own document handle.
type Executor struct {
	opener    document.Opener
	separator string
	logger    *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithSeparator overrides PageSeparator.
func WithSeparator(sep string) ExecutorOption {
	return func(e *Executor) { e.separator = sep }
}

// WithExecutorLogger sets the logger.
func WithExecutorLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

// NewExecutor returns an Executor that opens a fresh handle from opener for
// every job.
func NewExecutor(opener document.Opener, opts ...ExecutorOption) *Executor {
	e := &Executor{
		opener:    opener,
		separator: PageSeparator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute opens a handle, extracts pages StartPage..min(EndPage, PageCount),
// normalizes ligatures, and joins pages with the separator. A page failure
// abandons the whole job. The handle is closed on every path.
func (e *Executor) Execute(ctx context.Context, job types.Job) (result types.JobResult) {
	log := e.logger.With("job", job.ID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("extraction panicked", "panic", r)
			result = types.Failure(job, types.FailureInternal, fmt.Errorf("extraction panicked: %v", r))
		}
	}()

	h, err := e.opener.Open(ctx)
	if err != nil {
		log.Warn("open failed", "error", err)
		return types.Failure(job, types.FailureOpen, asOpenError(err))
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			log.Warn("closing document handle", "error", cerr)
		}
	}()

	last := job.EndPage
	if n := h.PageCount(); last > n {
		log.Warn("page range truncated to document length",
			"start", job.StartPage, "end", job.EndPage, "pages", n)
		last = n
	}

	var b strings.Builder
	pages := 0
	for page := job.StartPage; page <= last; page++ {
		text, err := h.ExtractPage(ctx, page)
		if err != nil {
			log.Warn("page failed", "page", page, "error", err)
			return types.Failure(job, types.FailurePage, asPageError(page, err))
		}
		if pages > 0 {
			b.WriteString(e.separator)
		}
		b.WriteString(Normalize(text))
		pages++
	}

	text := b.String()
	log.Debug("job extracted", "pages", pages, "chars", utf8.RuneCountInString(text))
	return types.JobResult{
		ID:          job.ID,
		Description: job.Description,
		Status:      types.JobSucceeded,
		Text:        text,
		Chars:       utf8.RuneCountInString(text),
		Pages:       pages,
	}
}

// asOpenError keeps backend open failures in the *OpenError taxonomy.
func asOpenError(err error) error {
	var oe *document.OpenError
	if errors.As(err, &oe) {
		return err
	}
	return &document.OpenError{Err: err}
}

func asPageError(page int, err error) error {
	var pe *document.PageError
	if errors.As(err, &pe) {
		return err
	}
	return &document.PageError{Page: page, Err: err}
}
