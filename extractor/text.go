package extractor

import "strings"

// PageText captures extracted text for one page (1-based).
type PageText struct {
	Page    int
	Content string
}

// ExtractText returns the trimmed text of each page that has any. Pages whose
// content cannot be decoded are skipped.
func (e *Extractor) ExtractText() []PageText {
	var out []PageText
	for i := 1; i <= e.pages; i++ {
		text, err := e.pageText(i)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		out = append(out, PageText{Page: i, Content: text})
	}
	return out
}

// PlainText joins the text of all pages with blank lines. The result is
// empty when the document has no text layer.
func (e *Extractor) PlainText() string {
	pages := e.ExtractText()
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = p.Content
	}
	return strings.Join(parts, "\n\n")
}

// Text is a convenience wrapper around New and PlainText.
func Text(data []byte) (string, error) {
	e, err := New(data)
	if err != nil {
		return "", err
	}
	return e.PlainText(), nil
}
