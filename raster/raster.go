// Package raster turns PDF pages into PNG images. Rendering is delegated to
// an external renderer; this package only drives it.
package raster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/wudi/pdfworks/errs"
	"github.com/wudi/pdfworks/observability"
)

// Options controls a render.
type Options struct {
	// DPI is the render resolution. Zero means 150.
	DPI int
	// MaxPages limits rendering to the first MaxPages pages. Zero renders all.
	MaxPages int
	// MaxSide, when set, scales each page so its longer side is MaxSide
	// pixels; it takes precedence over DPI for the output size.
	MaxSide int
}

// Renderer rasterizes PDF pages. Results are PNG payloads in page order.
type Renderer interface {
	Render(ctx context.Context, pdf []byte, opts Options) ([][]byte, error)
}

const defaultDPI = 150

// Poppler renders with the pdftoppm command from poppler-utils.
type Poppler struct {
	// Binary is the pdftoppm executable. Empty means "pdftoppm" on PATH.
	Binary string
	// TempDir is the parent of the per-render work directory. Empty means
	// os.TempDir().
	TempDir string
	Logger  observability.Logger
}

// NewPoppler returns a Poppler renderer using binary.
func NewPoppler(binary, tempDir string, logger observability.Logger) *Poppler {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	return &Poppler{Binary: binary, TempDir: tempDir, Logger: logger}
}

func (p *Poppler) binary() string {
	if p.Binary == "" {
		return "pdftoppm"
	}
	return p.Binary
}

// Render writes pdf to a private work directory, runs pdftoppm on it and
// reads the produced pages back. The work directory is always removed.
func (p *Poppler) Render(ctx context.Context, pdf []byte, opts Options) ([][]byte, error) {
	if len(pdf) == 0 {
		return nil, errs.Wrap(errs.ErrInvalidDocument, "render: empty input", nil)
	}
	dir, err := os.MkdirTemp(p.TempDir, "raster-*")
	if err != nil {
		return nil, fmt.Errorf("render: work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("render: stage input: %w", err)
	}

	cmd := exec.CommandContext(ctx, p.binary(), args(opts, input, filepath.Join(dir, "page"))...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("render: %s not available: %w", p.binary(), err)
		}
		return nil, errs.Wrap(errs.ErrInvalidDocument,
			fmt.Sprintf("render: %s", strings.TrimSpace(string(out))), err)
	}

	pages, err := collectPages(dir)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, errs.Wrap(errs.ErrNoContentFound, "render produced no pages", nil)
	}
	p.logger().Debug("rendered pages",
		observability.Int("pages", len(pages)),
		observability.Int("dpi", dpi(opts)),
	)
	return pages, nil
}

func (p *Poppler) logger() observability.Logger {
	if p.Logger == nil {
		return observability.NopLogger{}
	}
	return p.Logger
}

func dpi(opts Options) int {
	if opts.DPI <= 0 {
		return defaultDPI
	}
	return opts.DPI
}

func args(opts Options, input, prefix string) []string {
	a := []string{"-png", "-r", strconv.Itoa(dpi(opts))}
	if opts.MaxPages > 0 {
		a = append(a, "-f", "1", "-l", strconv.Itoa(opts.MaxPages))
	}
	if opts.MaxSide > 0 {
		a = append(a, "-scale-to", strconv.Itoa(opts.MaxSide))
	}
	return append(a, input, prefix)
}

type renderedPage struct {
	n    int
	path string
}

// collectPages reads page-N.png files in page order. pdftoppm zero-pads N
// depending on the page count, so the number is parsed rather than sorted
// lexically.
func collectPages(dir string) ([][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("render: read output: %w", err)
	}
	var found []renderedPage
	for _, e := range entries {
		if n, ok := pageNumber(e.Name()); ok {
			found = append(found, renderedPage{n: n, path: filepath.Join(dir, e.Name())})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	out := make([][]byte, 0, len(found))
	for _, f := range found {
		data, err := os.ReadFile(f.path)
		if err != nil {
			return nil, fmt.Errorf("render: read page %d: %w", f.n, err)
		}
		out = append(out, data)
	}
	return out, nil
}

func pageNumber(name string) (int, bool) {
	if !strings.HasPrefix(name, "page-") || !strings.HasSuffix(name, ".png") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "page-"), ".png"))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
