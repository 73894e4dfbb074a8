// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pdiddy/chapter-extract/internal/artifact"
	"github.com/pdiddy/chapter-extract/pkg/types"
)

var (
	// ErrInvalidWorkers is returned when the pool size is not positive.
	ErrInvalidWorkers = errors.New("max workers must be greater than zero")
	// ErrDuplicateJob is returned when two submitted jobs share an id.
	ErrDuplicateJob = errors.New("duplicate job id")
)

var printer = message.NewPrinter(language.English)

// Scheduler runs jobs on a bounded pool of workers and collects one result
// per job. A job's failure never cancels or delays its siblings, and failed
// jobs are not retried.
type Scheduler struct {
	runner     JobRunner
	writer     artifact.Writer
	maxWorkers int
	logger     *slog.Logger

	progressMu sync.Mutex
	progress   io.Writer
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithMaxWorkers sets the number of jobs in flight (default 4).
func WithMaxWorkers(n int) SchedulerOption {
	return func(s *Scheduler) { s.maxWorkers = n }
}

// WithWriter persists each successful job's text as it completes. A write
// failure turns that job's result into a failure.
func WithWriter(w artifact.Writer) SchedulerOption {
	return func(s *Scheduler) { s.writer = w }
}

// WithProgress writes one [OK]/[FAIL] line per completed job to w.
func WithProgress(w io.Writer) SchedulerOption {
	return func(s *Scheduler) { s.progress = w }
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(l *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = l }
}

// NewScheduler returns a scheduler that executes jobs with runner.
func NewScheduler(runner JobRunner, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		runner:     runner,
		maxWorkers: types.DefaultMaxWorkers,
		logger:     slog.Default(),
		progress:   io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run submits every job and returns once each has produced a result. At most
// maxWorkers jobs execute at any instant; submission blocks while all slots
// are busy. Results are recorded in completion order. The only errors are
// an invalid pool size and duplicate job ids, both detected before any job
// starts.
func (s *Scheduler) Run(ctx context.Context, jobs []types.Job) (*ResultSet, error) {
	if s.maxWorkers <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, s.maxWorkers)
	}
	seen := make(map[string]struct{}, len(jobs))
	for _, j := range jobs {
		if _, dup := seen[j.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateJob, j.ID)
		}
		seen[j.ID] = struct{}{}
	}

	start := time.Now()
	s.logger.Info("extraction started", "jobs", len(jobs), "workers", s.maxWorkers)

	set := newResultSet(len(jobs))
	var g errgroup.Group
	g.SetLimit(s.maxWorkers)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			r := s.runJob(ctx, job)
			if err := set.record(r); err != nil {
				s.logger.Error("dropping duplicate result", "job", job.ID, "error", err)
				return nil
			}
			s.report(r)
			return nil
		})
	}
	// Workers never return errors; Wait is the join point.
	_ = g.Wait()

	for _, job := range jobs {
		if _, ok := set.Get(job.ID); !ok {
			r := types.Failure(job, types.FailureInternal, errors.New("no result recorded"))
			_ = set.record(r)
			s.report(r)
		}
	}

	s.logger.Info("extraction finished",
		"jobs", len(jobs),
		"succeeded", set.Succeeded(),
		"failed", set.Failed(),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return set, nil
}

// runJob executes one job and persists its artifact.
func (s *Scheduler) runJob(ctx context.Context, job types.Job) (result types.JobResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("job panicked", "job", job.ID, "panic", r)
			result = types.Failure(job, types.FailureInternal, fmt.Errorf("job panicked: %v", r))
		}
	}()

	r := s.runner.Execute(ctx, job)
	if !r.Succeeded() || s.writer == nil {
		return r
	}

	name := artifact.Name(job.ID)
	if err := s.writer.Write(name, r.Text); err != nil {
		s.logger.Warn("artifact write failed", "job", job.ID, "error", err)
		f := types.Failure(job, types.FailureWrite, asWriteError(name, err))
		f.Pages = r.Pages
		return f
	}
	r.File = name
	return r
}

func asWriteError(name string, err error) error {
	var we *artifact.WriteError
	if errors.As(err, &we) {
		return err
	}
	return &artifact.WriteError{Name: name, Err: err}
}

// report prints the original script's per-job progress line.
func (s *Scheduler) report(r types.JobResult) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	if r.Succeeded() {
		dest := r.File
		if dest == "" {
			dest = "(not written)"
		}
		printer.Fprintf(s.progress, "  [OK] %s: %d chars -> %s\n", r.ID, r.Chars, dest)
		return
	}
	fmt.Fprintf(s.progress, "  [FAIL] %s: %s\n", r.ID, r.Error)
}
