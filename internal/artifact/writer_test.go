// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/chapter-extract/pkg/types"
)

func TestName(t *testing.T) {
	assert.Equal(t, "ch07_spin_locks.txt", Name("ch07_spin_locks"))
}

func TestDirWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "extracted_chapters")
	w, err := NewDirWriter(dir)
	require.NoError(t, err)

	require.NoError(t, w.Write("ch01.txt", "page one"))

	data, err := os.ReadFile(filepath.Join(dir, "ch01.txt"))
	require.NoError(t, err)
	assert.Equal(t, "page one", string(data))

	// Overwrites in place and leaves no temp files behind.
	require.NoError(t, w.Write("ch01.txt", "page one, again"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ch01.txt", entries[0].Name())
}

func TestDirWriter_WriteErrors(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDirWriter(dir)
	require.NoError(t, err)

	tests := []struct {
		name     string
		artifact string
		setup    func()
	}{
		{name: "empty name", artifact: ""},
		{name: "path traversal", artifact: "../escape.txt"},
		{
			name:     "directory in the way",
			artifact: "blocked.txt",
			setup: func() {
				require.NoError(t, os.MkdirAll(filepath.Join(dir, "blocked.txt", "child"), 0o755))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			err := w.Write(tt.artifact, "content")
			var we *WriteError
			require.True(t, errors.As(err, &we), "want *WriteError, got %v", err)
			assert.Equal(t, tt.artifact, we.Name)
		})
	}
}

func TestNewDirWriter_Unwritable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain-file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := NewDirWriter(filepath.Join(file, "sub"))
	assert.ErrorContains(t, err, "creating output directory")
}

// memWriter records writes in memory.
type memWriter map[string]string

func (m memWriter) Write(name, content string) error {
	m[name] = content
	return nil
}

func TestHeaderWriter(t *testing.T) {
	job := types.Job{ID: "ch08_monitors", StartPage: 196, EndPage: 210, Description: "Monitors and Blocking"}
	mem := memWriter{}
	w := WithHeaders(mem, []types.Job{job})

	require.NoError(t, w.Write(Name(job.ID), "body"))
	require.NoError(t, w.Write(SummaryName, "summary"))

	got := mem["ch08_monitors.txt"]
	assert.True(t, strings.HasPrefix(got, strings.Repeat("=", 80)+"\n"))
	assert.Contains(t, got, "CHAPTER: Monitors and Blocking\n")
	assert.Contains(t, got, "Pages: 196-210\n")
	assert.True(t, strings.HasSuffix(got, "\n\nbody"))

	assert.Equal(t, "summary", mem[SummaryName], "non-job artifacts are untouched")
}
