// Package tesseract recognizes text with libtesseract through gosseract.
package tesseract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/wudi/pdfworks/ocr"
)

// TesseractEngine implements ocr.BatchEngine. It is safe for concurrent use;
// every call opens its own client.
type TesseractEngine struct {
	newClient func() *gosseract.Client
	languages []string
}

// NewTesseractEngine returns an engine that loads languages for inputs that
// name none of their own.
func NewTesseractEngine(languages ...string) *TesseractEngine {
	return &TesseractEngine{
		newClient: gosseract.NewClient,
		languages: append([]string(nil), languages...),
	}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

func (e *TesseractEngine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	c := e.newClient()
	defer c.Close()
	return e.recognize(ctx, c, in)
}

// RecognizeBatch reuses one client for all pages, so trained data is loaded
// once per document.
func (e *TesseractEngine) RecognizeBatch(ctx context.Context, inputs []ocr.Input) ([]ocr.Result, error) {
	c := e.newClient()
	defer c.Close()
	results := make([]ocr.Result, len(inputs))
	for i, in := range inputs {
		res, err := e.recognize(ctx, c, in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.ID, err)
		}
		results[i] = res
	}
	return results, nil
}

func (e *TesseractEngine) languagesFor(in ocr.Input) []string {
	if len(in.Languages) > 0 {
		return in.Languages
	}
	return e.languages
}

func (e *TesseractEngine) recognize(ctx context.Context, c *gosseract.Client, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	if langs := e.languagesFor(in); len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages %s: %w", strings.Join(langs, "+"), err)
		}
	}
	if in.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(in.PSM)); err != nil {
			return ocr.Result{}, fmt.Errorf("set psm %d: %w", in.PSM, err)
		}
	}
	if in.DPI > 0 {
		if err := c.SetVariable("user_defined_dpi", strconv.Itoa(in.DPI)); err != nil {
			return ocr.Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize: %w", err)
	}
	words, conf := words(c)
	return ocr.Result{
		InputID:    in.ID,
		Text:       strings.TrimSpace(text),
		Words:      words,
		Confidence: conf,
	}, nil
}

// words returns the recognized words and their mean confidence. Tesseract
// reports confidence in percent.
func words(c *gosseract.Client) ([]ocr.Word, float64) {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, 0
	}
	out := make([]ocr.Word, 0, len(boxes))
	var sum float64
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		conf := b.Confidence / 100
		out = append(out, ocr.Word{Text: b.Word, Confidence: conf})
		sum += conf
	}
	if len(out) == 0 {
		return nil, 0
	}
	return out, sum / float64(len(out))
}
