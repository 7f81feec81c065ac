package transform

import (
	"github.com/wudi/pdfworks/document"
	"github.com/wudi/pdfworks/pagerange"
)

// DeletePages returns the pages of src not named by expr, in original
// order. Deleting every page yields an empty graph.
func DeletePages(src *document.Source, expr string) *document.Graph {
	drop := pagerange.Set(pagerange.Parse(expr))
	g := document.NewGraph()
	for i := 0; i < src.PageCount(); i++ {
		if _, ok := drop[i]; ok {
			continue
		}
		// i is within [0, PageCount), the only case Append rejects.
		_ = g.Append(src, i)
	}
	return g
}

// ReorderPages returns exactly the pages listed in expr, in that order.
// Repeats are kept, out-of-range entries are dropped and unlisted pages are
// left out.
func ReorderPages(src *document.Source, expr string) *document.Graph {
	g := document.NewGraph()
	// Clamp leaves only indices Append accepts.
	for _, i := range pagerange.Clamp(pagerange.Parse(expr), src.PageCount()) {
		_ = g.Append(src, i)
	}
	return g
}
