// Package transform implements the structural page operations: merge,
// split, delete, reorder and watermarking. Every function returns new
// documents; inputs are never modified.
package transform

import (
	"fmt"

	"github.com/wudi/pdfworks/document"
	"github.com/wudi/pdfworks/errs"
)

// Merge concatenates the pages of inputs in order. Zero-length inputs are
// skipped; a non-empty input that does not parse fails the whole merge with
// errs.ErrInvalidDocument naming its position.
func Merge(inputs [][]byte) (*document.Source, error) {
	g := document.NewGraph()
	for i, data := range inputs {
		if len(data) == 0 {
			continue
		}
		src, err := document.Load(fmt.Sprintf("input %d", i+1), data)
		if err != nil {
			return nil, err
		}
		g.AppendAll(src)
	}
	if g.Len() == 0 {
		return nil, errs.Wrap(errs.ErrInvalidParameter, "merge: no pages in any input", nil)
	}
	return g.Build("merged.pdf")
}
