// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package document defines the page-indexed document handle that extraction
// jobs read from, and the poppler-backed implementation.
//
// A Handle is owned by exactly one job: the job opens it, reads its page range,
// and closes it. Handles are never shared between goroutines, so backends do
// not need to be safe for concurrent use of a single handle.
package document

import (
	"context"
	"errors"
	"fmt"
)

// ErrClosed is returned by a Handle after Close.
var ErrClosed = errors.New("document handle is closed")

// Opener opens a fresh, exclusively owned handle on the document.
type Opener interface {
	Open(ctx context.Context) (Handle, error)
}

// Handle reads pages from an open document.
type Handle interface {
	// PageCount returns the number of pages in the document.
	PageCount() int

	// ExtractPage returns the text of the 1-based page index.
	ExtractPage(ctx context.Context, index int) (string, error)

	// Close releases the handle. It is safe to call more than once.
	Close() error
}

// OpenError reports that a handle could not be opened.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("opening document: %v", e.Err)
	}
	return fmt.Sprintf("opening document %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// PageError reports that one page could not be extracted.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("extracting page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Handle, error)

// Open calls f(ctx).
func (f OpenerFunc) Open(ctx context.Context) (Handle, error) { return f(ctx) }
