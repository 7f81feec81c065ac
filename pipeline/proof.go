package pipeline

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/wudi/pdfworks/builder"
)

// Proof page layout, in points from the bottom of the page.
const (
	proofScale      = 0.75
	proofTextBand   = 200
	proofLabelY     = 180
	proofFirstLineY = 140
	proofLineStep   = 15
	proofBottom     = 20
	proofMaxLines   = 20
	proofMaxChars   = 80
	proofMargin     = 10

	fallbackWidth  = 600
	fallbackHeight = 800
)

// ProofPDF builds a one-page PDF pairing img with text. The image fills the
// top of the page at 3/4 scale; below it a label and the first non-empty
// lines of text are listed until the band runs out.
func ProofPDF(img []byte, text string) ([]byte, error) {
	w, h := fallbackWidth, fallbackHeight
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(img)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
		w, h = cfg.Width, cfg.Height
	}
	pageW := float64(w) * proofScale
	imgH := float64(h) * proofScale

	page := builder.NewBuilder().
		NewPage(pageW, imgH+proofTextBand).
		DrawImage(img, 0, proofTextBand, pageW, imgH, builder.ImageOptions{}).
		DrawText("OCR Extracted Text:", proofMargin, proofLabelY, builder.TextOptions{FontSize: 10})

	y := float64(proofFirstLineY)
	for _, line := range ProofLines(text) {
		if y <= proofBottom {
			break
		}
		page.DrawText(line, proofMargin, y, builder.TextOptions{FontSize: 8})
		y -= proofLineStep
	}
	return page.Finish().Build()
}

// ProofLines returns the lines shown on a proof page: trimmed, non-empty, at
// most 20, each cut to 80 characters with "..." appended when longer.
func ProofLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if r := []rune(line); len(r) > proofMaxChars {
			line = string(r[:proofMaxChars]) + "..."
		}
		out = append(out, line)
		if len(out) == proofMaxLines {
			break
		}
	}
	return out
}
