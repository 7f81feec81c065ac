package transform

import (
	"fmt"

	"github.com/wudi/pdfworks/document"
	"github.com/wudi/pdfworks/errs"
	"github.com/wudi/pdfworks/pagerange"
)

// SplitByRanges produces one document per comma-separated range of expr.
// Out-of-range pages are dropped and ranges left empty are skipped, so the
// result may be empty; callers decide how to report that.
func SplitByRanges(src *document.Source, expr string) ([]*document.Source, error) {
	var parts []*document.Source
	for _, group := range pagerange.Groups(expr) {
		idx := pagerange.Clamp(group, src.PageCount())
		if len(idx) == 0 {
			continue
		}
		part, err := buildPart(src, idx, len(parts)+1)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}

// SplitIndividual produces one single-page document per page.
func SplitIndividual(src *document.Source) ([]*document.Source, error) {
	parts := make([]*document.Source, 0, src.PageCount())
	for i := 0; i < src.PageCount(); i++ {
		part, err := buildPart(src, []int{i}, i+1)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}

// SplitByCount divides src into n contiguous parts as evenly as possible;
// the first pageCount%n parts get one extra page. Parts that would be empty
// are omitted.
func SplitByCount(src *document.Source, n int) ([]*document.Source, error) {
	if n < 1 {
		return nil, errs.Wrap(errs.ErrInvalidParameter, fmt.Sprintf("split count %d", n), nil)
	}
	total := src.PageCount()
	base, extra := total/n, total%n
	var parts []*document.Source
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		if size == 0 {
			continue
		}
		idx := make([]int, size)
		for j := range idx {
			idx[j] = start + j
		}
		start += size
		part, err := buildPart(src, idx, len(parts)+1)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func buildPart(src *document.Source, idx []int, n int) (*document.Source, error) {
	g := document.NewGraph()
	for _, i := range idx {
		if err := g.Append(src, i); err != nil {
			return nil, err
		}
	}
	return g.Build(fmt.Sprintf("part_%d.pdf", n))
}
