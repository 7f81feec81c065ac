package transform

import (
	"bytes"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/draw"

	"github.com/wudi/pdfworks/document"
	"github.com/wudi/pdfworks/errs"
	"github.com/wudi/pdfworks/fonts"
)

// Stamp placement. Text is 30pt Helvetica in 0.7 gray rotated 45 degrees;
// images are drawn 200x100 points. Both are centered at 30% opacity.
const (
	textStampDesc  = "fontname:Helvetica, points:30, fillcolor:#B3B3B3, rotation:45, opacity:0.3, scalefactor:1 abs, position:c"
	imageStampDesc = "position:c, rotation:0, opacity:0.3, scalefactor:0.5 abs"

	// The stamp canvas is twice the target size and scaled by 0.5 on the page.
	stampCanvasWidth  = 400
	stampCanvasHeight = 200
)

// Watermark is a stamp applied to every page: Text or Image.
type Watermark interface {
	stamp() (*model.Watermark, error)
}

// Text stamps Content. Turkish diacritics are folded because the standard
// font cannot encode them.
type Text struct {
	Content string
}

// Image stamps a PNG or JPEG image.
type Image struct {
	Data   []byte
	Format string
}

func (t Text) stamp() (*model.Watermark, error) {
	text := strings.TrimSpace(fonts.Simplify(t.Content))
	if text == "" {
		return nil, errs.Wrap(errs.ErrInvalidParameter, "watermark text is empty", nil)
	}
	wm, err := api.TextWatermark(text, textStampDesc, true, false, types.POINTS)
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidParameter, "watermark text", err)
	}
	return wm, nil
}

func (i Image) stamp() (*model.Watermark, error) {
	if len(i.Data) == 0 {
		return nil, errs.Wrap(errs.ErrMissingAsset, "watermark image is empty", nil)
	}
	switch strings.ToLower(strings.TrimPrefix(i.Format, ".")) {
	case "", "png", "jpg", "jpeg":
	default:
		return nil, errs.Wrap(errs.ErrUnsupportedInput, "watermark image format "+i.Format, nil)
	}
	canvas, err := stampCanvas(i.Data)
	if err != nil {
		return nil, err
	}
	wm, err := api.ImageWatermarkForReader(bytes.NewReader(canvas), imageStampDesc, true, false, types.POINTS)
	if err != nil {
		return nil, errs.Wrap(errs.ErrMissingAsset, "watermark image", err)
	}
	return wm, nil
}

// stampCanvas decodes data and stretches it onto the fixed 2:1 canvas so
// every stamp lands at the same size regardless of the source resolution.
func stampCanvas(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Wrap(errs.ErrMissingAsset, "decode watermark image", err)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, stampCanvasWidth, stampCanvasHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, errs.Wrap(errs.ErrMissingAsset, "encode watermark image", err)
	}
	return buf.Bytes(), nil
}

// Apply stamps wm onto every page of src.
func Apply(src *document.Source, wm Watermark) (*document.Source, error) {
	stamp, err := wm.stamp()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := api.AddWatermarks(src.Reader(), &buf, nil, stamp, document.Config()); err != nil {
		return nil, errs.Wrap(errs.ErrInvalidDocument, "apply watermark", err)
	}
	return document.Load("watermarked.pdf", buf.Bytes())
}

// TextWatermark stamps text onto every page of src.
func TextWatermark(src *document.Source, text string) (*document.Source, error) {
	return Apply(src, Text{Content: text})
}

// ImageWatermark stamps the PNG or JPEG image onto every page of src.
func ImageWatermark(src *document.Source, data []byte, format string) (*document.Source, error) {
	return Apply(src, Image{Data: data, Format: format})
}
