// Package pipeline drives OCR over uploaded files. PDFs are read from their
// text layer when they have one and rasterized and recognized page by page
// when they do not; images are recognized directly and paired with a proof
// PDF.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wudi/pdfworks/artifact"
	"github.com/wudi/pdfworks/errs"
	"github.com/wudi/pdfworks/extractor"
	"github.com/wudi/pdfworks/observability"
	"github.com/wudi/pdfworks/ocr"
	"github.com/wudi/pdfworks/raster"
)

const (
	TextName   = "extracted_text.txt"
	ProofName  = "ocr.pdf"
	BundleName = "ocr_results.zip"
)

// ResultNamer names the entries of the OCR bundle.
var ResultNamer = artifact.PerKind(map[artifact.Kind]string{
	artifact.KindTXT: "extracted_text",
	artifact.KindPDF: "ocr_pdf",
})

// Config tunes recognition.
type Config struct {
	Languages []string
	DPI       int
	MaxSide   int
	// PSM, when positive, is passed to engines as the page segmentation mode.
	PSM int
}

// DefaultConfig recognizes Turkish and English at 200 DPI, with pages capped
// at 2000 pixels on the longer side.
func DefaultConfig() Config {
	return Config{Languages: []string{"tur", "eng"}, DPI: 200, MaxSide: 2000}
}

// OCR is the recognition pipeline. It holds no per-request state.
type OCR struct {
	renderer raster.Renderer
	engine   ocr.Engine
	cfg      Config
	logger   observability.Logger
}

func NewOCR(renderer raster.Renderer, engine ocr.Engine, cfg Config, logger observability.Logger) *OCR {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	def := DefaultConfig()
	if len(cfg.Languages) == 0 {
		cfg.Languages = def.Languages
	}
	if cfg.DPI <= 0 {
		cfg.DPI = def.DPI
	}
	return &OCR{renderer: renderer, engine: engine, cfg: cfg, logger: logger}
}

// Process dispatches on the file name suffix: .pdf, .png, .jpg or .jpeg.
func (p *OCR) Process(ctx context.Context, name string, data []byte) ([]artifact.Artifact, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return p.ProcessPDF(ctx, data)
	case ".png", ".jpg", ".jpeg":
		return p.ProcessImage(ctx, data)
	}
	return nil, errs.Wrap(errs.ErrUnsupportedInput, "ocr: "+name, nil)
}

// ProcessImage recognizes data and returns the raw text and a proof PDF.
func (p *OCR) ProcessImage(ctx context.Context, data []byte) ([]artifact.Artifact, error) {
	res, err := ocr.RecognizeImage(ctx, p.engine, data, p.inputOptions()...)
	if err != nil {
		return nil, fmt.Errorf("ocr image: %w", err)
	}
	text := res.Text
	proof, err := ProofPDF(data, text)
	if err != nil {
		return nil, fmt.Errorf("ocr image: proof: %w", err)
	}
	return []artifact.Artifact{
		{Kind: artifact.KindTXT, Name: TextName, Data: []byte(text)},
		{Kind: artifact.KindPDF, Name: ProofName, Data: proof},
	}, nil
}

// ProcessPDF returns the text of data as a single text artifact.
func (p *OCR) ProcessPDF(ctx context.Context, data []byte) ([]artifact.Artifact, error) {
	ex, err := extractor.New(data)
	if err != nil {
		return nil, err
	}
	text := ex.PlainText()
	if strings.TrimSpace(text) != "" {
		p.logger.Debug("using native text layer", observability.Int("pages", ex.PageCount()))
	} else {
		text, err = p.recognizePages(ctx, data)
		if err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, errs.Wrap(errs.ErrNoTextFound, "ocr", nil)
	}
	return []artifact.Artifact{{Kind: artifact.KindTXT, Name: TextName, Data: []byte(text)}}, nil
}

func (p *OCR) recognizePages(ctx context.Context, data []byte) (string, error) {
	pages, err := p.renderer.Render(ctx, data, raster.Options{DPI: p.cfg.DPI, MaxSide: p.cfg.MaxSide})
	if err != nil {
		return "", fmt.Errorf("ocr: render: %w", err)
	}
	results, err := ocr.RecognizePages(ctx, p.engine, pages, append(p.inputOptions(), ocr.WithDPI(p.cfg.DPI))...)
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	p.logger.Info("recognized rendered pages",
		observability.String("engine", p.engine.Name()),
		observability.Int("pages", len(results)),
		observability.Float64("confidence", ocr.MeanConfidence(results)),
	)

	var b strings.Builder
	for i, res := range results {
		fmt.Fprintf(&b, "--- Page %d ---\n%s\n\n", i+1, res.Text)
	}
	return b.String(), nil
}

func (p *OCR) inputOptions() []ocr.InputOption {
	return []ocr.InputOption{ocr.WithLanguages(p.cfg.Languages...), ocr.WithPSM(p.cfg.PSM)}
}
