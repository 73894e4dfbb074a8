// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/pdiddy/chapter-extract/internal/container"
	"github.com/pdiddy/chapter-extract/pkg/types"
)

// maxPageBytes caps the text of a single page so a damaged PDF cannot
// exhaust memory.
const maxPageBytes = 10 << 20

var errOutputLimit = errors.New("page text exceeds output limit")

// PageRequest describes one pdftotext invocation.
type PageRequest struct {
	// Path is the document on the local filesystem.
	Path string
	// Source streams the document bytes for runners that cannot see Path.
	Source io.Reader
	// Page is the 1-based page to extract.
	Page int

	UserPassword  string
	OwnerPassword string
}

// TextCommand extracts the text of one page.
type TextCommand interface {
	PageText(ctx context.Context, req PageRequest) (string, error)
}

// LocalText runs the pdftotext binary installed on the host.
type LocalText struct{}

func (LocalText) PageText(ctx context.Context, req PageRequest) (string, error) {
	cmd := exec.CommandContext(ctx, "pdftotext", pdftotextArgs(req, req.Path)...)
	out := &cappedBuffer{limit: maxPageBytes}
	var stderr bytes.Buffer
	cmd.Stdout = out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", classifyPdftotextErr(ctx, err, stderr.String())
	}
	return out.String(), nil
}

// ContainerText runs pdftotext inside a poppler image, streaming the
// document on stdin.
type ContainerText struct {
	runtime container.Runtime
	image   string
}

// NewContainerText verifies that image exists in rt before returning.
func NewContainerText(rt container.Runtime, image string) (*ContainerText, error) {
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("poppler image not available in %s: %w", rt.Name(), err)
	}
	return &ContainerText{runtime: rt, image: image}, nil
}

func (c *ContainerText) PageText(ctx context.Context, req PageRequest) (string, error) {
	if req.Source == nil {
		return "", errors.New("container extraction needs a document stream")
	}
	args := append([]string{"pdftotext"}, pdftotextArgs(req, "-")...)
	out := &cappedBuffer{limit: maxPageBytes}
	if err := c.runtime.Run(ctx, c.image, args, req.Source, out); err != nil {
		return "", classifyPdftotextErr(ctx, err, "")
	}
	return out.String(), nil
}

// pdftotextArgs builds the argument list for a single-page extraction that
// writes UTF-8 text to stdout. input is the document path or "-" for stdin.
func pdftotextArgs(req PageRequest, input string) []string {
	page := strconv.Itoa(req.Page)
	args := []string{"-f", page, "-l", page, "-layout", "-nopgbrk", "-enc", "UTF-8"}
	if req.OwnerPassword != "" {
		args = append(args, "-opw", req.OwnerPassword)
	}
	if req.UserPassword != "" {
		args = append(args, "-upw", req.UserPassword)
	}
	return append(args, input, "-")
}

func classifyPdftotextErr(ctx context.Context, err error, stderr string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("pdftotext timeout: %w", ctx.Err())
	}
	if errors.Is(err, errOutputLimit) {
		return err
	}
	stderr = strings.TrimSpace(stderr)
	switch {
	case strings.Contains(stderr, "Incorrect password"):
		return errors.New("PDF is password protected")
	case strings.Contains(stderr, "PDF file is damaged"), strings.Contains(stderr, "Syntax Error"):
		return fmt.Errorf("PDF is damaged: %s", stderr)
	case stderr != "":
		return fmt.Errorf("pdftotext failed: %s", stderr)
	}
	return fmt.Errorf("pdftotext failed: %w", err)
}

// cappedBuffer is an io.Writer that refuses to grow past limit bytes.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if c.buf.Len()+len(p) > c.limit {
		return 0, errOutputLimit
	}
	return c.buf.Write(p)
}

func (c *cappedBuffer) String() string { return c.buf.String() }

// PopplerOpener opens handles on a PDF using pdfcpu for validation and page
// count and pdftotext for page text.
type PopplerOpener struct {
	cfg    types.DocumentConfig
	text   TextCommand
	logger *slog.Logger
}

// Option configures a PopplerOpener.
type Option func(*PopplerOpener)

// WithTextCommand replaces the pdftotext runner (default LocalText).
func WithTextCommand(tc TextCommand) Option {
	return func(o *PopplerOpener) { o.text = tc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *PopplerOpener) { o.logger = l }
}

// NewPopplerOpener returns an opener for the document at cfg.Path.
func NewPopplerOpener(cfg types.DocumentConfig, opts ...Option) *PopplerOpener {
	o := &PopplerOpener{
		cfg:    cfg.WithDefaults(),
		text:   LocalText{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open validates the document and returns a new handle on it. Every failure
// is an *OpenError.
func (o *PopplerOpener) Open(ctx context.Context) (Handle, error) {
	path := o.cfg.Path
	fail := func(err error) (Handle, error) {
		return nil, &OpenError{Path: path, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fail(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fail(err)
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return fail(fmt.Errorf("detecting content type: %w", err))
	}
	if !mt.Is("application/pdf") {
		f.Close()
		return fail(fmt.Errorf("not a PDF: detected %s", mt.String()))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return fail(err)
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.UserPW = o.cfg.UserPassword
	conf.OwnerPW = o.cfg.OwnerPassword
	pages, err := api.PageCount(f, conf)
	if err != nil {
		f.Close()
		return fail(fmt.Errorf("reading page count: %w", err))
	}

	o.logger.Debug("document opened", "path", path, "pages", pages)
	return &popplerHandle{
		opener: o,
		file:   f,
		size:   info.Size(),
		pages:  pages,
	}, nil
}

// popplerHandle is an open document owned by a single job.
type popplerHandle struct {
	opener *PopplerOpener
	file   *os.File
	size   int64
	pages  int
	closed bool
}

func (h *popplerHandle) PageCount() int { return h.pages }

func (h *popplerHandle) ExtractPage(ctx context.Context, index int) (string, error) {
	if h.closed {
		return "", &PageError{Page: index, Err: ErrClosed}
	}
	if index < 1 || index > h.pages {
		return "", &PageError{Page: index, Err: fmt.Errorf("page out of range 1-%d", h.pages)}
	}

	ctx, cancel := context.WithTimeout(ctx, h.opener.cfg.PageTimeout)
	defer cancel()

	text, err := h.opener.text.PageText(ctx, PageRequest{
		Path:          h.opener.cfg.Path,
		Source:        io.NewSectionReader(h.file, 0, h.size),
		Page:          index,
		UserPassword:  h.opener.cfg.UserPassword,
		OwnerPassword: h.opener.cfg.OwnerPassword,
	})
	if err != nil {
		return "", &PageError{Page: index, Err: err}
	}
	return text, nil
}

func (h *popplerHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.file.Close()
}
