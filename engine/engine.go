// Package engine is the entry point for every transformation. Each operation
// validates its uploads, runs inside a per-request scratch directory, packages
// the outputs into a single artifact and registers it for the owner.
package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/wudi/pdfworks/artifact"
	"github.com/wudi/pdfworks/document"
	"github.com/wudi/pdfworks/errs"
	"github.com/wudi/pdfworks/lifecycle"
	"github.com/wudi/pdfworks/observability"
	"github.com/wudi/pdfworks/ocr"
	"github.com/wudi/pdfworks/pipeline"
	"github.com/wudi/pdfworks/raster"
)

// DefaultMaxUpload is the per-file size limit when Options leaves it unset.
const DefaultMaxUpload = 50 << 20

// Upload is one submitted file.
type Upload struct {
	Name string
	Data []byte
}

// Result is a registered output together with its payload.
type Result struct {
	Record   lifecycle.Record
	Artifact artifact.Artifact
}

type Options struct {
	MaxUploadBytes int64
	OCR            pipeline.Config
	Logger         observability.Logger
	Tracer         observability.Tracer
}

type Engine struct {
	stager    *lifecycle.Stager
	registry  *lifecycle.Registry
	renderer  raster.Renderer
	ocr       *pipeline.OCR
	maxUpload int64
	logger    observability.Logger
	tracer    observability.Tracer
}

// New wires an engine. renderer and recognizer are the rasterization and
// recognition capabilities; both are only used by the image and OCR
// operations.
func New(stager *lifecycle.Stager, registry *lifecycle.Registry, renderer raster.Renderer, recognizer ocr.Engine, opts Options) *Engine {
	e := &Engine{
		stager:    stager,
		registry:  registry,
		renderer:  renderer,
		maxUpload: opts.MaxUploadBytes,
		logger:    opts.Logger,
		tracer:    opts.Tracer,
	}
	if e.maxUpload <= 0 {
		e.maxUpload = DefaultMaxUpload
	}
	if e.logger == nil {
		e.logger = observability.NopLogger{}
	}
	if e.tracer == nil {
		e.tracer = observability.NopTracer()
	}
	e.ocr = pipeline.NewOCR(renderer, recognizer, opts.OCR, e.logger)
	return e
}

var (
	pdfSuffixes   = []string{".pdf"}
	imageSuffixes = []string{".png", ".jpg", ".jpeg"}
	ocrSuffixes   = []string{".pdf", ".png", ".jpg", ".jpeg"}
)

func (e *Engine) check(u Upload, suffixes ...string) error {
	ext := strings.ToLower(filepath.Ext(u.Name))
	ok := false
	for _, s := range suffixes {
		if ext == s {
			ok = true
			break
		}
	}
	if !ok {
		return errs.Wrap(errs.ErrUnsupportedInput,
			fmt.Sprintf("%q (expected %s)", u.Name, strings.Join(suffixes, ", ")), nil)
	}
	if int64(len(u.Data)) > e.maxUpload {
		return errs.Wrap(errs.ErrTooLarge,
			fmt.Sprintf("%q is %d bytes, limit %d", u.Name, len(u.Data), e.maxUpload), nil)
	}
	return nil
}

func (e *Engine) loadPDF(u Upload) (*document.Source, error) {
	if err := e.check(u, pdfSuffixes...); err != nil {
		return nil, err
	}
	return document.Load(u.Name, u.Data)
}

// run executes one operation: the uploads are staged into a fresh scratch
// directory, produce is called, and its artifact is registered for owner.
// The scratch directory is removed on every path.
func (e *Engine) run(ctx context.Context, op, owner string, inputs []Upload, produce func(context.Context, observability.Span) (artifact.Artifact, error)) (res Result, err error) {
	start := time.Now()
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanOperation)
	span.SetTag("operation", op)
	log := observability.FromContext(ctx, e.logger).With(
		observability.String("operation", op),
		observability.String("owner", owner),
	)
	defer func() {
		elapsed := time.Since(start)
		span.SetTag(observability.MetricOperationTime, elapsed)
		if err != nil {
			span.SetError(err)
			log.Warn("operation failed", observability.Duration("elapsed", elapsed), observability.Error("error", err))
		} else {
			span.SetTag(observability.MetricArtifactSize, res.Record.Size)
			log.Info("operation completed",
				observability.Duration("elapsed", elapsed),
				observability.String("output", res.Artifact.Name),
				observability.Int64("size", res.Record.Size))
		}
		span.Finish()
	}()

	scratch, err := e.stager.Stage()
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := scratch.Cleanup(); cerr != nil {
			log.Warn("scratch cleanup failed", observability.Error("error", cerr))
		}
	}()
	for _, in := range inputs {
		if _, err := scratch.Save(in.Name, in.Data); err != nil {
			return Result{}, err
		}
	}

	out, err := produce(ctx, span)
	if err != nil {
		return Result{}, err
	}
	rec, err := e.registry.Register(ctx, owner, scratch, out)
	if err != nil {
		return Result{}, err
	}
	return Result{Record: rec, Artifact: out}, nil
}

// bundle turns several outputs into one artifact. A single output is renamed
// to single; several are zipped into bundleName with entries named by namer.
func bundle(parts []artifact.Artifact, single, bundleName string, namer artifact.Namer) (artifact.Artifact, error) {
	if len(parts) == 1 {
		return artifact.New(single, parts[0].Data), nil
	}
	return artifact.Package(parts, bundleName, namer)
}

func pdfArtifacts(srcs []*document.Source) []artifact.Artifact {
	out := make([]artifact.Artifact, len(srcs))
	for i, s := range srcs {
		out[i] = artifact.New(s.Name(), s.Bytes())
	}
	return out
}

func pngArtifacts(pages [][]byte, prefix string) []artifact.Artifact {
	out := make([]artifact.Artifact, len(pages))
	for i, p := range pages {
		out[i] = artifact.New(fmt.Sprintf("%s_%d.png", prefix, i+1), p)
	}
	return out
}
