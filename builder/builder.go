package builder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/wudi/pdfworks/fonts"
)

// PDFBuilder provides a fluent API for PDF construction.
type PDFBuilder interface {
	NewPage(width, height float64) PageBuilder
	SetInfo(info Info) PDFBuilder
	Build() ([]byte, error)
}

// PageBuilder provides a fluent API for page construction. Coordinates are
// in points with the origin at the bottom-left corner of the page.
type PageBuilder interface {
	DrawText(text string, x, y float64, opts TextOptions) PageBuilder
	DrawImage(data []byte, x, y, width, height float64, opts ImageOptions) PageBuilder
	DrawRectangle(x, y, width, height float64, opts RectOptions) PageBuilder
	DrawLine(x1, y1, x2, y2 float64, opts LineOptions) PageBuilder
	Finish() PDFBuilder
}

// TextOptions configures text drawing. Font names one of the standard 14
// fonts ("Helvetica", "Helvetica-Bold", "Times-Italic", ...).
type TextOptions struct {
	Font     string
	FontSize float64
	Color    Color
}

// RectOptions configures rectangle drawing (defaults to stroke if neither fill nor stroke is set).
type RectOptions struct {
	StrokeColor Color
	FillColor   Color
	LineWidth   float64
	Fill        bool
	Stroke      bool
}

// LineOptions configures line drawing.
type LineOptions struct {
	StrokeColor Color
	LineWidth   float64
}

// ImageOptions configures image drawing. Format is "png" or "jpeg"; when
// empty it is sniffed from the data.
type ImageOptions struct {
	Format string
}

// Color represents an RGB color with components in [0,1]. A is the constant
// opacity; zero means opaque.
type Color struct {
	R, G, B float64
	A       float64
}

// Info is the document information dictionary.
type Info struct {
	Title    string
	Author   string
	Subject  string
	Creator  string
	Producer string
	Created  time.Time
}

type drawOp func(pdf *fpdf.Fpdf, pageHeight float64) error

type pdfBuilder struct {
	pages  []*pageBuilder
	info   Info
	images int
}

type pageBuilder struct {
	parent *pdfBuilder
	width  float64
	height float64
	ops    []drawOp
}

// NewBuilder creates a new PDF builder.
func NewBuilder() PDFBuilder {
	return &pdfBuilder{}
}

func (b *pdfBuilder) NewPage(width, height float64) PageBuilder {
	return &pageBuilder{parent: b, width: width, height: height}
}

func (b *pdfBuilder) SetInfo(info Info) PDFBuilder {
	b.info = info
	return b
}

func (b *pdfBuilder) Build() ([]byte, error) {
	if len(b.pages) == 0 {
		return nil, errors.New("builder: document has no pages")
	}
	first := b.pages[0]
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: first.width, Ht: first.height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCompression(true)
	b.applyInfo(pdf)

	for i, page := range b.pages {
		if page.width <= 0 || page.height <= 0 {
			return nil, fmt.Errorf("builder: page %d has invalid size %gx%g", i+1, page.width, page.height)
		}
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: page.width, Ht: page.height})
		for _, op := range page.ops {
			if err := op(pdf, page.height); err != nil {
				return nil, fmt.Errorf("builder: page %d: %w", i+1, err)
			}
		}
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("builder: page %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("builder: write: %w", err)
	}
	return buf.Bytes(), nil
}

func (b *pdfBuilder) applyInfo(pdf *fpdf.Fpdf) {
	if b.info.Title != "" {
		pdf.SetTitle(b.info.Title, true)
	}
	if b.info.Author != "" {
		pdf.SetAuthor(b.info.Author, true)
	}
	if b.info.Subject != "" {
		pdf.SetSubject(b.info.Subject, true)
	}
	if b.info.Creator != "" {
		pdf.SetCreator(b.info.Creator, true)
	}
	if b.info.Producer != "" {
		pdf.SetProducer(b.info.Producer, true)
	}
	if !b.info.Created.IsZero() {
		pdf.SetCreationDate(b.info.Created)
		pdf.SetModificationDate(b.info.Created)
	}
}

func (p *pageBuilder) DrawText(text string, x, y float64, opts TextOptions) PageBuilder {
	p.ops = append(p.ops, func(pdf *fpdf.Fpdf, pageHeight float64) error {
		family, style := coreFont(opts.Font)
		size := opts.FontSize
		if size <= 0 {
			size = 12
		}
		pdf.SetFont(family, style, size)
		r, g, b := opts.Color.rgb()
		pdf.SetTextColor(r, g, b)
		withAlpha(pdf, opts.Color.A, func() {
			tr := pdf.UnicodeTranslatorFromDescriptor("")
			pdf.Text(x, pageHeight-y, tr(fonts.Simplify(text)))
		})
		return nil
	})
	return p
}

func (p *pageBuilder) DrawImage(data []byte, x, y, width, height float64, opts ImageOptions) PageBuilder {
	p.parent.images++
	name := fmt.Sprintf("img%d", p.parent.images)
	p.ops = append(p.ops, func(pdf *fpdf.Fpdf, pageHeight float64) error {
		kind, err := imageType(data, opts.Format)
		if err != nil {
			return err
		}
		info := fpdf.ImageOptions{ImageType: kind}
		pdf.RegisterImageOptionsReader(name, info, bytes.NewReader(data))
		if err := pdf.Error(); err != nil {
			return fmt.Errorf("register image: %w", err)
		}
		pdf.ImageOptions(name, x, pageHeight-y-height, width, height, false, info, 0, "")
		return nil
	})
	return p
}

func (p *pageBuilder) DrawRectangle(x, y, width, height float64, opts RectOptions) PageBuilder {
	p.ops = append(p.ops, func(pdf *fpdf.Fpdf, pageHeight float64) error {
		style := ""
		if opts.Fill {
			r, g, b := opts.FillColor.rgb()
			pdf.SetFillColor(r, g, b)
			style += "F"
		}
		if opts.Stroke || !opts.Fill {
			r, g, b := opts.StrokeColor.rgb()
			pdf.SetDrawColor(r, g, b)
			style = "D" + style
		}
		if opts.LineWidth > 0 {
			pdf.SetLineWidth(opts.LineWidth)
		}
		pdf.Rect(x, pageHeight-y-height, width, height, style)
		return nil
	})
	return p
}

func (p *pageBuilder) DrawLine(x1, y1, x2, y2 float64, opts LineOptions) PageBuilder {
	p.ops = append(p.ops, func(pdf *fpdf.Fpdf, pageHeight float64) error {
		r, g, b := opts.StrokeColor.rgb()
		pdf.SetDrawColor(r, g, b)
		if opts.LineWidth > 0 {
			pdf.SetLineWidth(opts.LineWidth)
		}
		pdf.Line(x1, pageHeight-y1, x2, pageHeight-y2)
		return nil
	})
	return p
}

func (p *pageBuilder) Finish() PDFBuilder {
	p.parent.pages = append(p.parent.pages, p)
	return p.parent
}

func (c Color) rgb() (int, int, int) {
	return channel(c.R), channel(c.G), channel(c.B)
}

func channel(v float64) int {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return int(v*255 + 0.5)
}

func withAlpha(pdf *fpdf.Fpdf, alpha float64, draw func()) {
	if alpha <= 0 || alpha >= 1 {
		draw()
		return
	}
	pdf.SetAlpha(alpha, "Normal")
	draw()
	pdf.SetAlpha(1, "Normal")
}

// coreFont splits a standard 14 font name into an fpdf family and style.
func coreFont(name string) (string, string) {
	if name == "" {
		return "Helvetica", ""
	}
	family, variant, _ := strings.Cut(name, "-")
	style := ""
	switch strings.ToLower(variant) {
	case "bold":
		style = "B"
	case "italic", "oblique":
		style = "I"
	case "bolditalic", "boldoblique":
		style = "BI"
	}
	return family, style
}

func imageType(data []byte, format string) (string, error) {
	if format == "" {
		_, f, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return "", fmt.Errorf("detect image format: %w", err)
		}
		format = f
	}
	switch strings.ToLower(format) {
	case "png":
		return "PNG", nil
	case "jpeg", "jpg":
		return "JPG", nil
	}
	return "", fmt.Errorf("unsupported image format %q", format)
}
