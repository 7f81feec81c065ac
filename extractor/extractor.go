package extractor

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/wudi/pdfworks/errs"
)

// Extractor exposes helper routines for pulling the embedded text layer out
// of a PDF. It does not rasterize or recognize anything.
type Extractor struct {
	r     *pdf.Reader
	pages int
}

// New creates an extractor over data. Malformed input is
// errs.ErrInvalidDocument; the reader panics on some structural damage, so
// that is recovered here as well.
func New(data []byte) (ex *Extractor, err error) {
	if len(data) == 0 {
		return nil, errs.Wrap(errs.ErrInvalidDocument, "extract: empty input", nil)
	}
	defer func() {
		if r := recover(); r != nil {
			ex, err = nil, errs.Wrap(errs.ErrInvalidDocument, "extract", fmt.Errorf("malformed document: %v", r))
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidDocument, "extract", err)
	}
	return &Extractor{r: r, pages: r.NumPage()}, nil
}

// PageCount reports the number of pages.
func (e *Extractor) PageCount() int {
	return e.pages
}

func (e *Extractor) pageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: malformed content: %v", n, r)
		}
	}()
	page := e.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
