// Package document models a PDF as an immutable Source and a page graph of
// references into one or more sources. A Graph is serialized exactly once by
// Build, which produces a new Source; inputs are never mutated.
package document

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/wudi/pdfworks/errs"
)

func init() {
	api.DisableConfigDir()
}

// Config returns a fresh pdfcpu configuration with relaxed validation so
// slightly malformed real-world files still load.
func Config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Source is a decoded PDF. It is never modified after Load.
type Source struct {
	name  string
	data  []byte
	pages int
}

// Load parses data and counts its pages. Empty or unparseable bytes are
// reported as errs.ErrInvalidDocument.
func Load(name string, data []byte) (*Source, error) {
	if len(data) == 0 {
		return nil, errs.Wrap(errs.ErrInvalidDocument, fmt.Sprintf("%s: empty input", name), nil)
	}
	n, err := api.PageCount(bytes.NewReader(data), Config())
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidDocument, name, err)
	}
	return &Source{name: name, data: data, pages: n}, nil
}

// LoadFile reads and loads the PDF at path.
func LoadFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrMissingAsset, path, err)
	}
	return Load(filepath.Base(path), data)
}

// Name is the display name the source was loaded with.
func (s *Source) Name() string { return s.name }

// PageCount reports the number of pages.
func (s *Source) PageCount() int { return s.pages }

// Bytes returns the serialized document. Callers must not modify it.
func (s *Source) Bytes() []byte { return s.data }

// Reader returns a fresh reader over the serialized document.
func (s *Source) Reader() io.ReadSeeker { return bytes.NewReader(s.data) }

// PageRef points at one page of a Source by zero-based index.
type PageRef struct {
	Src   *Source
	Index int
}

// Graph is an ordered list of page references. The same page may appear
// more than once.
type Graph struct {
	refs []PageRef
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{}
}

// FromSource returns a graph holding every page of src in order.
func FromSource(src *Source) *Graph {
	g := NewGraph()
	g.AppendAll(src)
	return g
}

// Append adds page index of src. Indices outside the source are rejected.
func (g *Graph) Append(src *Source, index int) error {
	if src == nil {
		return errs.Wrap(errs.ErrInvalidParameter, "nil source", nil)
	}
	if index < 0 || index >= src.pages {
		return errs.Wrap(errs.ErrInvalidParameter,
			fmt.Sprintf("page index %d outside %s (%d pages)", index, src.name, src.pages), nil)
	}
	g.refs = append(g.refs, PageRef{Src: src, Index: index})
	return nil
}

// AppendAll adds every page of src in order.
func (g *Graph) AppendAll(src *Source) {
	for i := 0; i < src.pages; i++ {
		g.refs = append(g.refs, PageRef{Src: src, Index: i})
	}
}

// Len reports the number of page references.
func (g *Graph) Len() int { return len(g.refs) }

// Refs returns a copy of the page references.
func (g *Graph) Refs() []PageRef {
	out := make([]PageRef, len(g.refs))
	copy(out, g.refs)
	return out
}

type run struct {
	src *Source
	idx []int
}

func (g *Graph) runs() []run {
	var runs []run
	for _, ref := range g.refs {
		if n := len(runs); n > 0 && runs[n-1].src == ref.Src {
			runs[n-1].idx = append(runs[n-1].idx, ref.Index)
			continue
		}
		runs = append(runs, run{src: ref.Src, idx: []int{ref.Index}})
	}
	return runs
}

// Build serializes the graph into a new Source named name. Each page keeps
// its content, resources and annotations. An empty graph is rejected with
// errs.ErrInvalidParameter.
func (g *Graph) Build(name string) (*Source, error) {
	if len(g.refs) == 0 {
		return nil, errs.Wrap(errs.ErrInvalidParameter, "document would have no pages", nil)
	}
	runs := g.runs()
	parts := make([][]byte, 0, len(runs))
	for _, r := range runs {
		data, err := r.bytes()
		if err != nil {
			return nil, err
		}
		parts = append(parts, data)
	}
	if len(parts) == 1 {
		return Load(name, parts[0])
	}
	readers := make([]io.ReadSeeker, len(parts))
	for i, p := range parts {
		readers[i] = bytes.NewReader(p)
	}
	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, Config()); err != nil {
		return nil, errs.Wrap(errs.ErrInvalidDocument, "assemble pages", err)
	}
	return Load(name, buf.Bytes())
}

// bytes returns the run as a standalone document. A run that is the whole
// source in order reuses the source bytes untouched.
func (r run) bytes() ([]byte, error) {
	if r.whole() {
		return r.src.data, nil
	}
	selected := make([]string, len(r.idx))
	for i, idx := range r.idx {
		selected[i] = strconv.Itoa(idx + 1)
	}
	var buf bytes.Buffer
	if err := api.Collect(bytes.NewReader(r.src.data), &buf, selected, Config()); err != nil {
		return nil, errs.Wrap(errs.ErrInvalidDocument, "collect pages of "+r.src.name, err)
	}
	return buf.Bytes(), nil
}

func (r run) whole() bool {
	if len(r.idx) != r.src.pages {
		return false
	}
	for i, idx := range r.idx {
		if idx != i {
			return false
		}
	}
	return true
}
