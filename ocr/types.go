package ocr

import "context"

// Format is the encoding of an image handed to an engine.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// Input is one image to recognize: either a page rendered from a PDF or an
// uploaded scan.
type Input struct {
	// ID is echoed back in Result.InputID.
	ID     string
	Image  []byte
	Format Format
	// Page is the zero-based source page, or -1 for uploaded images.
	Page int
	// DPI is the resolution the page was rendered at; zero means unknown.
	DPI int
	// Languages are trained-data names ("tur", "eng") loaded together. Empty
	// means the engine's own default.
	Languages []string
	// PSM is the Tesseract page segmentation mode. Zero keeps the default.
	PSM int
}

// Word is one recognized token. Confidence is in [0, 1].
type Word struct {
	Text       string
	Confidence float64
}

type Result struct {
	InputID string
	// Text is the recognized text with surrounding whitespace removed.
	Text  string
	Words []Word
	// Confidence is the mean word confidence, zero when no words were found.
	Confidence float64
}

// Engine recognizes text in a single image.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

// BatchEngine is implemented by engines that can share setup across the
// pages of one document.
type BatchEngine interface {
	Engine
	RecognizeBatch(ctx context.Context, inputs []Input) ([]Result, error)
}
