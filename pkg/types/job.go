// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Job is a named request to extract one contiguous page range from a document.
// Pages are 1-based and inclusive.
type Job struct {
	// ID identifies the job within its catalog (e.g. "ch07_spin_locks").
	// It also names the job's artifact.
	ID string `json:"id" yaml:"id"`

	// StartPage is the first page to extract.
	StartPage int `json:"start" yaml:"start"`

	// EndPage is the last page to extract. It may exceed the document's page
	// count; extraction stops at the last page.
	EndPage int `json:"end" yaml:"end"`

	// Description is the human-readable label shown in the summary.
	Description string `json:"description" yaml:"description"`
}

// JobStatus is the outcome of one job.
type JobStatus string

const (
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// FailureKind classifies why a job failed.
type FailureKind string

const (
	// FailureNone is the kind of a successful result.
	FailureNone FailureKind = ""
	// FailureOpen means the document could not be opened for the job.
	FailureOpen FailureKind = "open"
	// FailurePage means a page inside the job's range could not be extracted.
	FailurePage FailureKind = "page"
	// FailureWrite means extraction succeeded but the artifact was not persisted.
	FailureWrite FailureKind = "write"
	// FailureInternal covers backend panics and results that were never recorded.
	FailureInternal FailureKind = "internal"
)

// JobResult is the outcome of executing one Job. Exactly one JobResult exists
// per catalog job after a run.
type JobResult struct {
	ID          string    `json:"id" yaml:"id"`
	Description string    `json:"description" yaml:"description"`
	Status      JobStatus `json:"status" yaml:"status"`

	// Text is the extracted, normalized text. Empty on failure.
	Text string `json:"-" yaml:"-"`

	// Chars is the number of characters (runes) in Text. Zero on failure.
	Chars int `json:"chars" yaml:"chars"`

	// Pages is the number of pages extracted after clamping to the document.
	Pages int `json:"pages" yaml:"pages"`

	// File is the persisted artifact name; empty until written.
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	Kind  FailureKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Error string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// Succeeded reports whether the job produced its artifact text.
func (r JobResult) Succeeded() bool {
	return r.Status == JobSucceeded
}

// Failure builds a failed result for job.
func Failure(job Job, kind FailureKind, err error) JobResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return JobResult{
		ID:          job.ID,
		Description: job.Description,
		Status:      JobFailed,
		Kind:        kind,
		Error:       msg,
	}
}
