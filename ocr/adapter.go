package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/wudi/pdfworks/errs"
)

// InputOption adjusts an Input before it is handed to an engine.
type InputOption func(*Input)

func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// WithPSM sets the page segmentation mode. Non-positive modes are ignored.
func WithPSM(mode int) InputOption {
	return func(in *Input) {
		if mode > 0 {
			in.PSM = mode
		}
	}
}

// Sniff reports the encoding of an uploaded image. Anything other than PNG
// or JPEG is errs.ErrUnsupportedInput.
func Sniff(data []byte) (Format, error) {
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", errs.Wrap(errs.ErrUnsupportedInput, "image", err)
	}
	switch Format(name) {
	case FormatPNG, FormatJPEG:
		return Format(name), nil
	}
	return "", errs.Wrap(errs.ErrUnsupportedInput, "image format "+name, nil)
}

// ImageInput wraps an uploaded PNG or JPEG.
func ImageInput(id string, data []byte, opts ...InputOption) (Input, error) {
	format, err := Sniff(data)
	if err != nil {
		return Input{}, err
	}
	return apply(Input{ID: id, Image: data, Format: format, Page: -1}, opts), nil
}

// PageInput wraps the PNG rendered from the zero-based page index. Its ID
// is "page-N" with N one-based.
func PageInput(index int, png []byte, opts ...InputOption) Input {
	return apply(Input{
		ID:     fmt.Sprintf("page-%d", index+1),
		Image:  png,
		Format: FormatPNG,
		Page:   index,
	}, opts)
}

func apply(in Input, opts []InputOption) Input {
	for _, opt := range opts {
		opt(&in)
	}
	return in
}
