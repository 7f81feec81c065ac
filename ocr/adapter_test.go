package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"reflect"
	"testing"

	"github.com/wudi/pdfworks/errs"
)

func encodedImage(t *testing.T, format Format) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	var err error
	if format == FormatJPEG {
		err = jpeg.Encode(&buf, img, nil)
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestImageInput(t *testing.T) {
	in, err := ImageInput("scan", encodedImage(t, FormatJPEG),
		WithLanguages("tur", "eng"),
		WithDPI(300),
		WithPSM(6),
	)
	if err != nil {
		t.Fatalf("ImageInput() error = %v", err)
	}
	if in.Format != FormatJPEG || in.Page != -1 || in.ID != "scan" {
		t.Fatalf("unexpected input: %+v", in)
	}
	if !reflect.DeepEqual(in.Languages, []string{"tur", "eng"}) {
		t.Fatalf("languages = %v", in.Languages)
	}
	if in.DPI != 300 || in.PSM != 6 {
		t.Fatalf("dpi/psm = %d/%d", in.DPI, in.PSM)
	}

	if _, err := ImageInput("bad", []byte("GIF89a")); !errors.Is(err, errs.ErrUnsupportedInput) {
		t.Fatalf("expected ErrUnsupportedInput, got %v", err)
	}
}

func TestWithPSMIgnoresZero(t *testing.T) {
	in := Input{PSM: 3}
	WithPSM(0)(&in)
	if in.PSM != 3 {
		t.Fatalf("PSM = %d, want 3", in.PSM)
	}
}

func TestPageInput(t *testing.T) {
	in := PageInput(2, []byte{1}, WithDPI(200))
	if in.ID != "page-3" || in.Page != 2 || in.Format != FormatPNG || in.DPI != 200 {
		t.Fatalf("unexpected input: %+v", in)
	}
}

type stubEngine struct {
	seen []Input
	text map[string]string
	err  error
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Recognize(_ context.Context, in Input) (Result, error) {
	s.seen = append(s.seen, in)
	if s.err != nil {
		return Result{}, s.err
	}
	res := Result{InputID: in.ID, Text: s.text[in.ID]}
	if res.Text != "" {
		res.Words = []Word{{Text: res.Text, Confidence: 0.9}}
		res.Confidence = 0.9
	}
	return res, nil
}

func TestRecognizePages(t *testing.T) {
	eng := &stubEngine{text: map[string]string{"page-1": "one", "page-2": "two"}}
	res, err := RecognizePages(context.Background(), eng, [][]byte{{1}, {2}}, WithLanguages("eng"))
	if err != nil {
		t.Fatalf("RecognizePages() error = %v", err)
	}
	if len(res) != 2 || res[0].Text != "one" || res[1].Text != "two" {
		t.Fatalf("unexpected results: %+v", res)
	}
	if eng.seen[1].Languages[0] != "eng" {
		t.Fatalf("options not applied")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RecognizePages(ctx, eng, [][]byte{{1}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRecognizeImage(t *testing.T) {
	eng := &stubEngine{text: map[string]string{"image": "Merhaba"}}
	res, err := RecognizeImage(context.Background(), eng, encodedImage(t, FormatPNG), WithLanguages("tur", "eng"))
	if err != nil {
		t.Fatalf("RecognizeImage() error = %v", err)
	}
	if res.Text != "Merhaba" {
		t.Fatalf("text = %q", res.Text)
	}
	if !reflect.DeepEqual(eng.seen[0].Languages, []string{"tur", "eng"}) {
		t.Fatalf("languages not passed: %+v", eng.seen[0].Languages)
	}

	boom := errors.New("engine down")
	eng.err = boom
	if _, err := RecognizeImage(context.Background(), eng, encodedImage(t, FormatPNG)); !errors.Is(err, boom) {
		t.Fatalf("expected engine error, got %v", err)
	}
}

func TestMeanConfidence(t *testing.T) {
	results := []Result{
		{Words: []Word{{Text: "a"}}, Confidence: 0.8},
		{},
		{Words: []Word{{Text: "b"}}, Confidence: 0.6},
	}
	if got := MeanConfidence(results); got < 0.699 || got > 0.701 {
		t.Fatalf("MeanConfidence = %v, want 0.7", got)
	}
	if got := MeanConfidence(nil); got != 0 {
		t.Fatalf("MeanConfidence(nil) = %v", got)
	}
}
