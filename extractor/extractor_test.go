package extractor

import (
	"errors"
	"strings"
	"testing"

	"github.com/wudi/pdfworks/builder"
	"github.com/wudi/pdfworks/errs"
)

func TestExtractText(t *testing.T) {
	data, err := builder.NewBuilder().
		NewPage(300, 400).DrawText("first page", 20, 300, builder.TextOptions{}).Finish().
		NewPage(300, 400).Finish().
		NewPage(300, 400).DrawText("third page", 20, 300, builder.TextOptions{}).Finish().
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	e, err := New(data)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if e.PageCount() != 3 {
		t.Fatalf("expected 3 pages, got %d", e.PageCount())
	}
	pages := e.ExtractText()
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages with text, got %d", len(pages))
	}
	if pages[0].Page != 1 || !strings.Contains(pages[0].Content, "first") {
		t.Fatalf("unexpected first entry: %+v", pages[0])
	}
	if pages[1].Page != 3 || !strings.Contains(pages[1].Content, "third") {
		t.Fatalf("unexpected second entry: %+v", pages[1])
	}
	text := e.PlainText()
	if !strings.Contains(text, "first") || !strings.Contains(text, "third") {
		t.Fatalf("plain text missing content: %q", text)
	}
}

func TestTextEmptyLayer(t *testing.T) {
	data, err := builder.NewBuilder().
		NewPage(100, 100).DrawLine(0, 0, 100, 100, builder.LineOptions{LineWidth: 1}).Finish().
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	text, err := Text(data)
	if err != nil {
		t.Fatalf("text: %v", err)
	}
	if strings.TrimSpace(text) != "" {
		t.Fatalf("expected no text, got %q", text)
	}
}

// brokenXref has a cross-reference offset pointing at the xref keyword
// itself, which makes the reader fail while parsing an object.
const brokenXref = "%PDF-1.4\nxref\n0 2\n0000000000 65535 f \n0000000009 00000 n \n" +
	"trailer << /Size 2 /Root 1 0 R >>\nstartxref\n9\n%%EOF\n"

func TestNewRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", []byte("%PDF-1.4 truncated")},
		{"broken xref", []byte(brokenXref)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.data); !errors.Is(err, errs.ErrInvalidDocument) {
				t.Fatalf("expected ErrInvalidDocument, got %v", err)
			}
			if _, err := Text(tt.data); !errors.Is(err, errs.ErrInvalidDocument) {
				t.Fatalf("Text: expected ErrInvalidDocument, got %v", err)
			}
		})
	}
}
