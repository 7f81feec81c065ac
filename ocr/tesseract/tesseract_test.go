package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os/exec"
	"strings"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/pdfworks/ocr"
)

func requireTesseract(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed")
	}
}

// scan renders text in black on a white canvas, scaled up so the 7x13
// bitmap font is legible to the recognizer.
func scan(t *testing.T, text string) []byte {
	t.Helper()
	small := image.NewRGBA(image.Rect(0, 0, 120, 24))
	draw.Draw(small, small.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: small, Src: image.Black, Face: basicfont.Face7x13, Dot: fixed.P(6, 17)}
	d.DrawString(text)

	const scale = 4
	big := image.NewRGBA(image.Rect(0, 0, 120*scale, 24*scale))
	for y := 0; y < big.Bounds().Dy(); y++ {
		for x := 0; x < big.Bounds().Dx(); x++ {
			big.Set(x, y, small.At(x/scale, y/scale))
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, big); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestRecognize(t *testing.T) {
	requireTesseract(t)

	in, err := ocr.ImageInput("scan", scan(t, "Hello PDF"), ocr.WithDPI(300), ocr.WithPSM(7))
	if err != nil {
		t.Fatalf("ImageInput() error = %v", err)
	}
	res, err := NewTesseractEngine("eng").Recognize(context.Background(), in)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if got := strings.ToLower(res.Text); !strings.Contains(got, "hello") {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if res.InputID != "scan" {
		t.Fatalf("InputID = %q", res.InputID)
	}
	if len(res.Words) == 0 || res.Confidence <= 0 || res.Confidence > 1 {
		t.Fatalf("unexpected words/confidence: %d %v", len(res.Words), res.Confidence)
	}
}

func TestRecognizeBatchKeepsPageOrder(t *testing.T) {
	requireTesseract(t)

	pages := [][]byte{scan(t, "FIRST"), scan(t, "SECOND")}
	res, err := ocr.RecognizePages(context.Background(), NewTesseractEngine("eng"), pages, ocr.WithPSM(7))
	if err != nil {
		t.Fatalf("RecognizePages() error = %v", err)
	}
	if len(res) != 2 || res[0].InputID != "page-1" || res[1].InputID != "page-2" {
		t.Fatalf("unexpected results: %+v", res)
	}
}

func TestRecognizeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := NewTesseractEngine("eng")
	if _, err := e.recognize(ctx, nil, ocr.Input{ID: "x"}); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLanguagesFor(t *testing.T) {
	e := NewTesseractEngine("tur", "eng")
	if got := e.languagesFor(ocr.Input{}); strings.Join(got, "+") != "tur+eng" {
		t.Fatalf("default languages = %v", got)
	}
	if got := e.languagesFor(ocr.Input{Languages: []string{"deu"}}); strings.Join(got, "+") != "deu" {
		t.Fatalf("input languages = %v", got)
	}
}
