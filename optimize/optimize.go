package optimize

import (
	"bytes"
	"context"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/wudi/pdfworks/document"
	"github.com/wudi/pdfworks/errs"
	"github.com/wudi/pdfworks/observability"
)

// Quality is the requested compression tier.
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
)

// ParseQuality validates a tier name. The empty string means medium.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(strings.ToLower(strings.TrimSpace(s))); q {
	case "":
		return QualityMedium, nil
	case QualityLow, QualityMedium, QualityHigh:
		return q, nil
	}
	return "", errs.Wrap(errs.ErrInvalidParameter, "compression quality "+s, nil)
}

type Config struct {
	Quality          Quality
	UseObjectStreams bool
	StripMetadata    bool
}

// DefaultConfig packs objects into object streams and drops document metadata.
func DefaultConfig(q Quality) Config {
	return Config{Quality: q, UseObjectStreams: true, StripMetadata: true}
}

type Optimizer struct {
	config Config
	logger observability.Logger
}

func New(config Config, logger observability.Logger) *Optimizer {
	if logger == nil {
		logger = observability.NopLogger{}
	}
	return &Optimizer{config: config, logger: logger}
}

// Optimize rewrites src with duplicate objects combined and, when enabled,
// object and cross-reference streams. With StripMetadata the information
// dictionary is regenerated (producer and dates set to now) and the XMP
// metadata stream is dropped. The quality tier is validated and recorded but
// does not change the strategy; raster content is never resampled.
func (o *Optimizer) Optimize(ctx context.Context, src *document.Source) (*document.Source, error) {
	q, err := ParseQuality(string(o.config.Quality))
	if err != nil {
		return nil, err
	}
	conf := document.Config()
	conf.WriteObjectStream = o.config.UseObjectStreams
	conf.WriteXRefStream = o.config.UseObjectStreams

	pctx, err := api.ReadValidateAndOptimize(src.Reader(), conf)
	if err != nil {
		return nil, errs.Wrap(errs.ErrInvalidDocument, "compress", err)
	}
	if o.config.StripMetadata {
		pctx.Info = nil
		pctx.RootDict.Delete("Metadata")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := api.WriteContext(pctx, &buf); err != nil {
		return nil, errs.Wrap(errs.ErrInvalidDocument, "compress: write", err)
	}
	out, err := document.Load("compressed.pdf", buf.Bytes())
	if err != nil {
		return nil, err
	}
	o.logger.Debug("compressed document",
		observability.String("quality", string(q)),
		observability.Int("before", len(src.Bytes())),
		observability.Int("after", len(out.Bytes())),
	)
	return out, nil
}

// Compress runs an Optimizer with DefaultConfig(quality) over data.
func Compress(ctx context.Context, data []byte, quality Quality) ([]byte, error) {
	src, err := document.Load("input.pdf", data)
	if err != nil {
		return nil, err
	}
	out, err := New(DefaultConfig(quality), nil).Optimize(ctx, src)
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
