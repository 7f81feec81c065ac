package engine

import (
	"context"
	"io"

	"github.com/wudi/pdfworks/lifecycle"
	"github.com/wudi/pdfworks/observability"
)

// Files lists the owner's outputs, newest first.
func (e *Engine) Files(ctx context.Context, owner string) ([]lifecycle.Record, error) {
	return e.registry.List(ctx, owner)
}

// Open returns one of the owner's outputs. The caller closes the reader.
func (e *Engine) Open(ctx context.Context, owner, id string) (lifecycle.Record, io.ReadCloser, error) {
	return e.registry.Open(ctx, owner, id)
}

// Delete removes one of the owner's outputs.
func (e *Engine) Delete(ctx context.Context, owner, id string) error {
	return e.registry.Delete(ctx, owner, id)
}

// Sweep purges expired outputs of all owners.
func (e *Engine) Sweep(ctx context.Context) (lifecycle.SweepReport, error) {
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanOperation)
	defer span.Finish()
	span.SetTag("operation", "sweep")
	report, err := e.registry.Sweep(ctx)
	span.SetTag(observability.MetricSweepDeleted, report.Deleted)
	if err != nil {
		span.SetError(err)
	}
	return report, err
}
