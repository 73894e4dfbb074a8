// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog holds the ordered, validated set of extraction jobs for a run.
// A Catalog is immutable once constructed; invariant violations are reported as
// *ConfigError and abort the run before any page is extracted.
package catalog

import (
	"errors"
	"fmt"

	"github.com/pdiddy/chapter-extract/pkg/types"
)

var (
	ErrEmptyCatalog  = errors.New("catalog has no jobs")
	ErrEmptyID       = errors.New("job id is empty")
	ErrDuplicateID   = errors.New("duplicate job id")
	ErrInvalidPage   = errors.New("page numbers are 1-based")
	ErrInvertedRange = errors.New("start page is after end page")
	ErrSchema        = errors.New("catalog does not match schema")
)

// ConfigError reports a malformed catalog. It is fatal: it indicates a
// configuration mistake, not a runtime fault.
type ConfigError struct {
	// Source is the catalog file, empty for in-memory catalogs.
	Source string
	// JobID is the offending job, empty for catalog-level problems.
	JobID string
	Err   error
}

func (e *ConfigError) Error() string {
	prefix := "catalog"
	if e.Source != "" {
		prefix = "catalog " + e.Source
	}
	if e.JobID != "" {
		return fmt.Sprintf("%s: job %q: %v", prefix, e.JobID, e.Err)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Catalog is a fixed, ordered mapping from job id to page range.
type Catalog struct {
	title string
	jobs  []types.Job
	index map[string]int
}

// New validates jobs and returns a catalog preserving their order.
func New(jobs []types.Job) (*Catalog, error) {
	if len(jobs) == 0 {
		return nil, &ConfigError{Err: ErrEmptyCatalog}
	}

	c := &Catalog{
		jobs:  make([]types.Job, len(jobs)),
		index: make(map[string]int, len(jobs)),
	}
	for i, j := range jobs {
		if err := validate(j); err != nil {
			return nil, &ConfigError{JobID: j.ID, Err: err}
		}
		if _, dup := c.index[j.ID]; dup {
			return nil, &ConfigError{JobID: j.ID, Err: ErrDuplicateID}
		}
		c.index[j.ID] = i
		c.jobs[i] = j
	}
	return c, nil
}

func validate(j types.Job) error {
	switch {
	case j.ID == "":
		return ErrEmptyID
	case j.StartPage < 1 || j.EndPage < 1:
		return fmt.Errorf("%w: got %d-%d", ErrInvalidPage, j.StartPage, j.EndPage)
	case j.StartPage > j.EndPage:
		return fmt.Errorf("%w: %d > %d", ErrInvertedRange, j.StartPage, j.EndPage)
	}
	return nil
}

// Load returns the jobs in declared order. The slice is a copy.
func (c *Catalog) Load() []types.Job {
	out := make([]types.Job, len(c.jobs))
	copy(out, c.jobs)
	return out
}

// Len returns the number of jobs.
func (c *Catalog) Len() int { return len(c.jobs) }

// Get returns the job with the given id.
func (c *Catalog) Get(id string) (types.Job, bool) {
	i, ok := c.index[id]
	if !ok {
		return types.Job{}, false
	}
	return c.jobs[i], true
}

// Title is the summary banner declared by the catalog file, if any.
func (c *Catalog) Title() string { return c.title }
