package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wudi/pdfworks/artifact"
	"github.com/wudi/pdfworks/document"
	"github.com/wudi/pdfworks/errs"
	"github.com/wudi/pdfworks/extractor"
	"github.com/wudi/pdfworks/observability"
	"github.com/wudi/pdfworks/optimize"
	"github.com/wudi/pdfworks/pipeline"
	"github.com/wudi/pdfworks/raster"
	"github.com/wudi/pdfworks/security"
	"github.com/wudi/pdfworks/transform"
)

// Merge concatenates at least two PDFs in the given order into merged.pdf.
func (e *Engine) Merge(ctx context.Context, owner string, files []Upload) (Result, error) {
	if len(files) < 2 {
		return Result{}, errs.Wrap(errs.ErrInvalidParameter, "merge needs at least two PDF files", nil)
	}
	blobs := make([][]byte, len(files))
	for i, f := range files {
		if err := e.check(f, pdfSuffixes...); err != nil {
			return Result{}, err
		}
		blobs[i] = f.Data
	}
	return e.run(ctx, "merge", owner, files, func(ctx context.Context, span observability.Span) (artifact.Artifact, error) {
		out, err := transform.Merge(blobs)
		if err != nil {
			return artifact.Artifact{}, err
		}
		span.SetTag(observability.MetricPageCount, out.PageCount())
		return artifact.New("merged.pdf", out.Bytes()), nil
	})
}

// SplitMode selects how Split divides a document.
type SplitMode string

const (
	SplitPages      SplitMode = "pages"
	SplitIndividual SplitMode = "individual"
	SplitCount      SplitMode = "count"
)

// SplitOptions configures Split. Ranges is used by SplitPages, Parts by
// SplitCount (zero means 2).
type SplitOptions struct {
	Mode   SplitMode
	Ranges string
	Parts  int
}

// Split divides a PDF. One part is returned as split.pdf, several are
// bundled as part_N.pdf entries of split_pages.zip.
func (e *Engine) Split(ctx context.Context, owner string, file Upload, opts SplitOptions) (Result, error) {
	src, err := e.loadPDF(file)
	if err != nil {
		return Result{}, err
	}
	return e.run(ctx, "split", owner, []Upload{file}, func(ctx context.Context, span observability.Span) (artifact.Artifact, error) {
		var parts []*document.Source
		var err error
		switch opts.Mode {
		case SplitPages, "":
			parts, err = transform.SplitByRanges(src, opts.Ranges)
		case SplitIndividual:
			parts, err = transform.SplitIndividual(src)
		case SplitCount:
			n := opts.Parts
			if n == 0 {
				n = 2
			}
			parts, err = transform.SplitByCount(src, n)
		default:
			return artifact.Artifact{}, errs.Wrap(errs.ErrInvalidParameter, "split mode "+string(opts.Mode), nil)
		}
		if err != nil {
			return artifact.Artifact{}, err
		}
		if len(parts) == 0 {
			return artifact.Artifact{}, errs.Wrap(errs.ErrInvalidParameter,
				fmt.Sprintf("no pages selected by %q", opts.Ranges), nil)
		}
		return bundle(pdfArtifacts(parts), "split.pdf", "split_pages.zip", artifact.Sequential("part"))
	})
}

// DeletePages removes the pages named by expr and returns processed.pdf.
func (e *Engine) DeletePages(ctx context.Context, owner string, file Upload, expr string) (Result, error) {
	return e.pageOperation(ctx, "delete-pages", owner, file, func(src *document.Source) *document.Graph {
		return transform.DeletePages(src, expr)
	})
}

// ReorderPages keeps the pages named by expr in that order and returns
// processed.pdf.
func (e *Engine) ReorderPages(ctx context.Context, owner string, file Upload, expr string) (Result, error) {
	return e.pageOperation(ctx, "reorder-pages", owner, file, func(src *document.Source) *document.Graph {
		return transform.ReorderPages(src, expr)
	})
}

func (e *Engine) pageOperation(ctx context.Context, op, owner string, file Upload, plan func(*document.Source) *document.Graph) (Result, error) {
	src, err := e.loadPDF(file)
	if err != nil {
		return Result{}, err
	}
	return e.run(ctx, op, owner, []Upload{file}, func(ctx context.Context, span observability.Span) (artifact.Artifact, error) {
		g := plan(src)
		if g.Len() == 0 {
			return artifact.Artifact{}, errs.Wrap(errs.ErrInvalidParameter, "no pages would remain", nil)
		}
		out, err := g.Build("processed.pdf")
		if err != nil {
			return artifact.Artifact{}, err
		}
		span.SetTag(observability.MetricPageCount, out.PageCount())
		return artifact.New("processed.pdf", out.Bytes()), nil
	})
}

// Compress rewrites the document more compactly as compressed.pdf. quality is
// low, medium or high; empty means medium.
func (e *Engine) Compress(ctx context.Context, owner string, file Upload, quality string) (Result, error) {
	q, err := optimize.ParseQuality(quality)
	if err != nil {
		return Result{}, err
	}
	src, err := e.loadPDF(file)
	if err != nil {
		return Result{}, err
	}
	return e.run(ctx, "compress", owner, []Upload{file}, func(ctx context.Context, span observability.Span) (artifact.Artifact, error) {
		out, err := optimize.New(optimize.DefaultConfig(q), e.logger).Optimize(ctx, src)
		if err != nil {
			return artifact.Artifact{}, err
		}
		return artifact.New("compressed.pdf", out.Bytes()), nil
	})
}

// Encrypt protects the document with password as protected.pdf.
func (e *Engine) Encrypt(ctx context.Context, owner string, file Upload, password string) (Result, error) {
	if err := e.check(file, pdfSuffixes...); err != nil {
		return Result{}, err
	}
	return e.run(ctx, "encrypt", owner, []Upload{file}, func(context.Context, observability.Span) (artifact.Artifact, error) {
		out, err := security.Encrypt(file.Data, password)
		if err != nil {
			return artifact.Artifact{}, err
		}
		return artifact.New("protected.pdf", out), nil
	})
}

// Decrypt removes the protection as unlocked.pdf. An unprotected document is
// rewritten unchanged.
func (e *Engine) Decrypt(ctx context.Context, owner string, file Upload, password string) (Result, error) {
	if err := e.check(file, pdfSuffixes...); err != nil {
		return Result{}, err
	}
	return e.run(ctx, "decrypt", owner, []Upload{file}, func(context.Context, observability.Span) (artifact.Artifact, error) {
		out, err := security.Decrypt(file.Data, password)
		if err != nil {
			return artifact.Artifact{}, err
		}
		return artifact.New("unlocked.pdf", out), nil
	})
}

// TextWatermark stamps text onto every page as watermarked.pdf.
func (e *Engine) TextWatermark(ctx context.Context, owner string, file Upload, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, errs.Wrap(errs.ErrInvalidParameter, "watermark text is empty", nil)
	}
	return e.watermark(ctx, owner, file, nil, transform.Text{Content: text})
}

// ImageWatermark stamps a PNG or JPEG image onto every page as
// watermarked.pdf.
func (e *Engine) ImageWatermark(ctx context.Context, owner string, file Upload, img Upload) (Result, error) {
	if len(img.Data) == 0 {
		return Result{}, errs.Wrap(errs.ErrMissingAsset, "watermark image", nil)
	}
	if err := e.check(img, imageSuffixes...); err != nil {
		return Result{}, err
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(img.Name)), ".")
	return e.watermark(ctx, owner, file, []Upload{img}, transform.Image{Data: img.Data, Format: ext})
}

func (e *Engine) watermark(ctx context.Context, owner string, file Upload, assets []Upload, wm transform.Watermark) (Result, error) {
	src, err := e.loadPDF(file)
	if err != nil {
		return Result{}, err
	}
	return e.run(ctx, "watermark", owner, append([]Upload{file}, assets...), func(context.Context, observability.Span) (artifact.Artifact, error) {
		out, err := transform.Apply(src, wm)
		if err != nil {
			return artifact.Artifact{}, err
		}
		return artifact.New("watermarked.pdf", out.Bytes()), nil
	})
}

// ExtractText returns the document's text layer as extracted_text.txt.
func (e *Engine) ExtractText(ctx context.Context, owner string, file Upload) (Result, error) {
	if err := e.check(file, pdfSuffixes...); err != nil {
		return Result{}, err
	}
	return e.run(ctx, "extract-text", owner, []Upload{file}, func(context.Context, observability.Span) (artifact.Artifact, error) {
		text, err := extractor.Text(file.Data)
		if err != nil {
			return artifact.Artifact{}, err
		}
		if strings.TrimSpace(text) == "" {
			return artifact.Artifact{}, errs.Wrap(errs.ErrNoTextFound, file.Name, nil)
		}
		return artifact.New("extracted_text.txt", []byte(text)), nil
	})
}

// Raster settings of the image operations.
const (
	extractImagesDPI = 100
	pageImagesDPI    = 200
	pageImagesMax    = 50
	// imageMaxSide caps the longer side of every rendered page in pixels.
	imageMaxSide = 2000
)

// ExtractImages renders every page at 100 DPI. One page is returned as
// extracted_image.png, several as image_N.png entries of extracted_images.zip.
func (e *Engine) ExtractImages(ctx context.Context, owner string, file Upload) (Result, error) {
	return e.rasterize(ctx, "extract-images", owner, file, raster.Options{DPI: extractImagesDPI, MaxSide: imageMaxSide},
		"image", "extracted_image.png", "extracted_images.zip")
}

// PDFToImages renders up to the first 50 pages at 200 DPI. One page is
// returned as page_1.png, several as page_N.png entries of pdf_pages.zip.
func (e *Engine) PDFToImages(ctx context.Context, owner string, file Upload) (Result, error) {
	return e.rasterize(ctx, "to-images", owner, file, raster.Options{DPI: pageImagesDPI, MaxPages: pageImagesMax, MaxSide: imageMaxSide},
		"page", "page_1.png", "pdf_pages.zip")
}

func (e *Engine) rasterize(ctx context.Context, op, owner string, file Upload, opts raster.Options, prefix, single, bundleName string) (Result, error) {
	src, err := e.loadPDF(file)
	if err != nil {
		return Result{}, err
	}
	return e.run(ctx, op, owner, []Upload{file}, func(ctx context.Context, span observability.Span) (artifact.Artifact, error) {
		pages, err := e.renderer.Render(ctx, src.Bytes(), opts)
		if err != nil {
			return artifact.Artifact{}, err
		}
		span.SetTag(observability.MetricPageCount, len(pages))
		return bundle(pngArtifacts(pages, prefix), single, bundleName, artifact.Sequential(prefix))
	})
}

// OCR recognizes the text of a PDF or image. See pipeline.OCR for the
// outputs; several are bundled into ocr_results.zip.
func (e *Engine) OCR(ctx context.Context, owner string, file Upload) (Result, error) {
	if err := e.check(file, ocrSuffixes...); err != nil {
		return Result{}, err
	}
	return e.run(ctx, "ocr", owner, []Upload{file}, func(ctx context.Context, span observability.Span) (artifact.Artifact, error) {
		parts, err := e.ocr.Process(ctx, file.Name, file.Data)
		if err != nil {
			return artifact.Artifact{}, err
		}
		return artifact.Package(parts, pipeline.BundleName, pipeline.ResultNamer)
	})
}
