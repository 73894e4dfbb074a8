package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/chapter-extract/pkg/types"
)

// --- test helpers ---

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := filepath.Join(t.TempDir(), DirName)
	store, err := Open(types.LedgerConfig{Enabled: true, Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResults() []types.JobResult {
	return []types.JobResult{
		{ID: "ch01", Description: "Introduction", Status: types.JobSucceeded, Chars: 1200, Pages: 10, File: "ch01.txt"},
		{ID: "ch02", Description: "Mutual Exclusion", Status: types.JobFailed, Kind: types.FailurePage, Error: "extracting page 12: bad xref"},
	}
}

func sampleRun(started time.Time) Run {
	return Run{
		Document:     "book.pdf",
		CatalogTitle: "PRACTITIONER'S TRACK",
		MaxWorkers:   4,
		StartedAt:    started,
		FinishedAt:   started.Add(1500 * time.Millisecond),
		Succeeded:    1,
		Failed:       1,
		TotalChars:   1200,
	}
}

// --- tests ---

func TestOpenCreatesDatabase(t *testing.T) {
	store := testStore(t)
	if _, err := os.Stat(store.Path()); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}

func TestOpenRequiresDir(t *testing.T) {
	if _, err := Open(types.LedgerConfig{Enabled: true}); err == nil {
		t.Fatal("expected error for empty directory")
	}
}

func TestRecordAssignsID(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	run, err := store.Record(ctx, sampleRun(time.Now()), sampleResults())
	if err != nil {
		t.Fatal(err)
	}
	if run.ID == uuid.Nil {
		t.Fatal("run id not assigned")
	}

	got, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Document != "book.pdf" || got.CatalogTitle != "PRACTITIONER'S TRACK" {
		t.Errorf("run = %+v", got)
	}
	if got.Succeeded != 1 || got.Failed != 1 || got.TotalChars != 1200 || got.MaxWorkers != 4 {
		t.Errorf("counts = %+v", got)
	}
	if got.Elapsed() != 1500*time.Millisecond {
		t.Errorf("Elapsed() = %v, want 1.5s", got.Elapsed())
	}
}

func TestRecordKeepsGivenID(t *testing.T) {
	store := testStore(t)
	id := uuid.New()
	run := sampleRun(time.Now())
	run.ID = id

	got, err := store.Record(context.Background(), run, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != id {
		t.Errorf("ID = %s, want %s", got.ID, id)
	}
}

func TestRecordDuplicateIDFails(t *testing.T) {
	store := testStore(t)
	run := sampleRun(time.Now())
	run.ID = uuid.New()

	if _, err := store.Record(context.Background(), run, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Record(context.Background(), run, nil); err == nil {
		t.Fatal("expected primary key conflict")
	}
}

func TestResultsPreserveOrder(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	run, err := store.Record(ctx, sampleRun(time.Now()), sampleResults())
	if err != nil {
		t.Fatal(err)
	}

	results, err := store.Results(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != "ch01" || results[1].ID != "ch02" {
		t.Errorf("order = %s, %s", results[0].ID, results[1].ID)
	}
	if !results[0].Succeeded() || results[0].Chars != 1200 || results[0].File != "ch01.txt" {
		t.Errorf("ch01 = %+v", results[0])
	}
	if results[1].Kind != types.FailurePage || results[1].Error != "extracting page 12: bad xref" {
		t.Errorf("ch02 = %+v", results[1])
	}
}

func TestRecentNewestFirst(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		run, err := store.Record(ctx, sampleRun(base.Add(time.Duration(i)*time.Hour)), nil)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, run.ID)
	}

	runs, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != ids[2] || runs[1].ID != ids[1] {
		t.Errorf("Recent order wrong: %s, %s", runs[0].ID, runs[1].ID)
	}
	if !runs[0].StartedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("StartedAt = %v", runs[0].StartedAt)
	}

	all, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("Recent(0) returned %d runs, want 3", len(all))
	}
}

func TestGetNotFound(t *testing.T) {
	store := testStore(t)
	_, err := store.Get(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRepeatedRunsComparable(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first, err := store.Record(ctx, sampleRun(time.Now()), sampleResults())
	if err != nil {
		t.Fatal(err)
	}
	second, err := store.Record(ctx, sampleRun(time.Now().Add(time.Minute)), sampleResults())
	if err != nil {
		t.Fatal(err)
	}

	a, err := store.Results(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	b, err := store.Results(ctx, second.ID)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Chars != b[i].Chars {
			t.Errorf("job %s differs between runs: %d vs %d chars", a[i].ID, a[i].Chars, b[i].Chars)
		}
	}
}

func TestExportYAML(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	run, err := store.Record(ctx, sampleRun(time.Now()), sampleResults())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := store.Export(ctx, run.ID, FormatYAML, &buf); err != nil {
		t.Fatal(err)
	}

	var got struct {
		Run struct {
			ID       string `yaml:"id"`
			Document string `yaml:"document"`
		} `yaml:"run"`
		Results []struct {
			ID    string `yaml:"id"`
			Chars int    `yaml:"chars"`
		} `yaml:"results"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v\n%s", err, buf.String())
	}
	if got.Run.ID != run.ID.String() || got.Run.Document != "book.pdf" {
		t.Errorf("run = %+v", got.Run)
	}
	if len(got.Results) != 2 || got.Results[0].Chars != 1200 {
		t.Errorf("results = %+v", got.Results)
	}
}

func TestExportJSON(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	run, err := store.Record(ctx, sampleRun(time.Now()), sampleResults())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := store.Export(ctx, run.ID, FormatJSON, &buf); err != nil {
		t.Fatal(err)
	}
	var d RunDetail
	if err := json.Unmarshal(buf.Bytes(), &d); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if d.Run.ID != run.ID || len(d.Results) != 2 {
		t.Errorf("detail = %+v", d)
	}
	if strings.Contains(buf.String(), `"Text"`) {
		t.Error("extracted text must not be exported")
	}
}

func TestExportUnknownFormat(t *testing.T) {
	store := testStore(t)
	run, err := store.Record(context.Background(), sampleRun(time.Now()), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Export(context.Background(), run.ID, "csv", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestIsBusy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"busy", sqlite3.Error{Code: sqlite3.ErrBusy}, true},
		{"locked", sqlite3.Error{Code: sqlite3.ErrLocked}, true},
		{"constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isBusy(tt.err); got != tt.want {
				t.Errorf("isBusy() = %v, want %v", got, tt.want)
			}
		})
	}
}
