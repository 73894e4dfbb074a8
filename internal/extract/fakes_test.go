// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pdiddy/chapter-extract/internal/document"
)

// fakeDocument is an in-memory document. Every Open returns a new handle and
// the document tracks how many handles are open at once.
type fakeDocument struct {
	pages   []string
	pageErr map[int]error // page -> error returned by ExtractPage
	openErr error
	delay   time.Duration // per-page latency to force overlap

	open    atomic.Int32
	maxOpen atomic.Int32
	opened  atomic.Int32
	closed  atomic.Int32
}

func newFakeDocument(pages ...string) *fakeDocument {
	return &fakeDocument{pages: pages, pageErr: map[int]error{}}
}

func (d *fakeDocument) Open(ctx context.Context) (document.Handle, error) {
	if d.openErr != nil {
		return nil, &document.OpenError{Path: "fake.pdf", Err: d.openErr}
	}
	n := d.open.Add(1)
	for {
		m := d.maxOpen.Load()
		if n <= m || d.maxOpen.CompareAndSwap(m, n) {
			break
		}
	}
	d.opened.Add(1)
	return &fakeHandle{doc: d}, nil
}

type fakeHandle struct {
	doc    *fakeDocument
	mu     sync.Mutex
	closed bool
}

func (h *fakeHandle) PageCount() int { return len(h.doc.pages) }

func (h *fakeHandle) ExtractPage(ctx context.Context, index int) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return "", document.ErrClosed
	}
	if h.doc.delay > 0 {
		time.Sleep(h.doc.delay)
	}
	if err, ok := h.doc.pageErr[index]; ok {
		return "", &document.PageError{Page: index, Err: err}
	}
	if index < 1 || index > len(h.doc.pages) {
		return "", fmt.Errorf("page %d out of range", index)
	}
	return h.doc.pages[index-1], nil
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("closed twice")
	}
	h.closed = true
	h.doc.open.Add(-1)
	h.doc.closed.Add(1)
	return nil
}

// memWriter stores artifacts in memory and can fail selected names.
type memWriter struct {
	mu    sync.Mutex
	files map[string]string
	fail  map[string]error
}

func newMemWriter() *memWriter {
	return &memWriter{files: map[string]string{}, fail: map[string]error{}}
}

func (w *memWriter) Write(name, content string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err, ok := w.fail[name]; ok {
		return err
	}
	w.files[name] = content
	return nil
}

func (w *memWriter) get(name string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.files[name]
	return s, ok
}
