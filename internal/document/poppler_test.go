// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/chapter-extract/pkg/types"
)

// fakeText returns canned page text and records the requests it saw.
type fakeText struct {
	pages    map[int]string
	errs     map[int]error
	requests []PageRequest
}

func (f *fakeText) PageText(_ context.Context, req PageRequest) (string, error) {
	f.requests = append(f.requests, req)
	if err, ok := f.errs[req.Page]; ok {
		return "", err
	}
	return f.pages[req.Page], nil
}

// fakeRuntime implements container.Runtime.
type fakeRuntime struct {
	imageErr error
	args     []string
	stdin    string
	out      string
	runErr   error
}

func (r *fakeRuntime) Name() string { return "docker" }
func (r *fakeRuntime) Available() bool { return true }
func (r *fakeRuntime) ImageExists(image string) error { return r.imageErr }
func (r *fakeRuntime) Run(_ context.Context, _ string, args []string, stdin io.Reader, stdout io.Writer) error {
	r.args = args
	data, _ := io.ReadAll(stdin)
	r.stdin = string(data)
	if r.runErr != nil {
		return r.runErr
	}
	_, err := io.WriteString(stdout, r.out)
	return err
}

func newTestHandle(t *testing.T, pages int, text TextCommand) *popplerHandle {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7 test bytes"), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)

	o := NewPopplerOpener(types.DocumentConfig{Path: path, UserPassword: "secret"}, WithTextCommand(text))
	return &popplerHandle{opener: o, file: f, size: 19, pages: pages}
}

func TestPopplerOpener_OpenErrors(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(textPath, []byte("plain text, not a pdf"), 0o644))

	tests := []struct {
		name    string
		path    string
		wantMsg string
	}{
		{"missing file", filepath.Join(dir, "missing.pdf"), "no such file"},
		{"not a pdf", textPath, "not a PDF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewPopplerOpener(types.DocumentConfig{Path: tt.path})
			h, err := o.Open(context.Background())
			require.Error(t, err)
			assert.Nil(t, h)

			var oe *OpenError
			require.True(t, errors.As(err, &oe))
			assert.Equal(t, tt.path, oe.Path)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestPopplerOpener_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPopplerOpener(types.DocumentConfig{Path: "book.pdf"}).Open(ctx)

	var oe *OpenError
	require.True(t, errors.As(err, &oe))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPopplerHandle_ExtractPage(t *testing.T) {
	text := &fakeText{pages: map[int]string{1: "first", 2: "second"}}
	h := newTestHandle(t, 2, text)
	defer h.Close()

	got, err := h.ExtractPage(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "second", got)
	assert.Equal(t, 2, h.PageCount())

	require.Len(t, text.requests, 1)
	req := text.requests[0]
	assert.Equal(t, 2, req.Page)
	assert.Equal(t, "secret", req.UserPassword)
	data, err := io.ReadAll(req.Source)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 test bytes", string(data))
}

func TestPopplerHandle_PageErrors(t *testing.T) {
	text := &fakeText{errs: map[int]error{1: errors.New("PDF is damaged")}}
	h := newTestHandle(t, 3, text)
	defer h.Close()

	tests := []struct {
		name string
		page int
		want string
	}{
		{"backend failure", 1, "PDF is damaged"},
		{"below range", 0, "out of range"},
		{"above range", 4, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.ExtractPage(context.Background(), tt.page)
			var pe *PageError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.page, pe.Page)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPopplerHandle_Close(t *testing.T) {
	h := newTestHandle(t, 1, &fakeText{})

	require.NoError(t, h.Close())
	require.NoError(t, h.Close(), "second close is a no-op")

	_, err := h.ExtractPage(context.Background(), 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPdftotextArgs(t *testing.T) {
	got := pdftotextArgs(PageRequest{Page: 7, OwnerPassword: "o", UserPassword: "u"}, "-")
	assert.Equal(t, []string{
		"-f", "7", "-l", "7", "-layout", "-nopgbrk", "-enc", "UTF-8",
		"-opw", "o", "-upw", "u", "-", "-",
	}, got)

	got = pdftotextArgs(PageRequest{Page: 1}, "/books/amp.pdf")
	assert.Equal(t, "/books/amp.pdf", got[len(got)-2])
	assert.NotContains(t, got, "-upw")
}

func TestContainerText(t *testing.T) {
	rt := &fakeRuntime{out: "page five"}
	ct, err := NewContainerText(rt, "poppler:latest")
	require.NoError(t, err)

	got, err := ct.PageText(context.Background(), PageRequest{Page: 5, Source: strings.NewReader("%PDF")})
	require.NoError(t, err)
	assert.Equal(t, "page five", got)
	assert.Equal(t, "pdftotext", rt.args[0])
	assert.Equal(t, "%PDF", rt.stdin)

	_, err = NewContainerText(&fakeRuntime{imageErr: errors.New("missing")}, "poppler:latest")
	assert.ErrorContains(t, err, "poppler image not available")
}

func TestClassifyPdftotextErr(t *testing.T) {
	bg := context.Background()
	base := errors.New("exit status 1")

	assert.EqualError(t, classifyPdftotextErr(bg, base, "Command Line Error: Incorrect password"), "PDF is password protected")
	assert.ErrorContains(t, classifyPdftotextErr(bg, base, "Syntax Error: bad xref"), "PDF is damaged")
	assert.ErrorContains(t, classifyPdftotextErr(bg, base, ""), "exit status 1")
	assert.ErrorIs(t, classifyPdftotextErr(bg, errOutputLimit, ""), errOutputLimit)

	ctx, cancel := context.WithTimeout(bg, time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	assert.ErrorContains(t, classifyPdftotextErr(ctx, base, ""), "timeout")
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{limit: 4}
	n, err := b.Write([]byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = b.Write([]byte("de"))
	assert.ErrorIs(t, err, errOutputLimit)
	assert.Equal(t, "abc", b.String())
}
