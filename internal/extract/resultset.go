// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"sync"

	"github.com/pdiddy/chapter-extract/pkg/types"
)

// ResultSet collects one JobResult per job. Workers record into it
// concurrently; a recorded result is never overwritten.
type ResultSet struct {
	mu      sync.Mutex
	results map[string]types.JobResult
	order   []string
}

func newResultSet(capacity int) *ResultSet {
	return &ResultSet{
		results: make(map[string]types.JobResult, capacity),
		order:   make([]string, 0, capacity),
	}
}

// record stores r. It fails if a result for r.ID already exists.
func (s *ResultSet) record(r types.JobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.results[r.ID]; ok {
		return fmt.Errorf("result for job %q already recorded", r.ID)
	}
	s.results[r.ID] = r
	s.order = append(s.order, r.ID)
	return nil
}

// Get returns the result for a job id.
func (s *ResultSet) Get(id string) (types.JobResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[id]
	return r, ok
}

// Len returns the number of recorded results.
func (s *ResultSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

// CompletionOrder returns job ids in the order their results were recorded.
func (s *ResultSet) CompletionOrder() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Ordered returns the results for jobs in the given (catalog) order. Jobs
// without a result are omitted.
func (s *ResultSet) Ordered(jobs []types.Job) []types.JobResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.JobResult, 0, len(jobs))
	for _, j := range jobs {
		if r, ok := s.results[j.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Succeeded returns the number of successful results.
func (s *ResultSet) Succeeded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.succeededLocked()
}

// Failed returns the number of failed results.
func (s *ResultSet) Failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results) - s.succeededLocked()
}

// HasFailures reports whether any job failed.
func (s *ResultSet) HasFailures() bool {
	return s.Failed() > 0
}

func (s *ResultSet) succeededLocked() int {
	n := 0
	for _, r := range s.results {
		if r.Succeeded() {
			n++
		}
	}
	return n
}
