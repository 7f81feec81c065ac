package ocr

import (
	"context"
	"fmt"
)

// RecognizePages runs engine over rendered pages and returns one result per
// page in page order. A BatchEngine gets all pages in one call.
func RecognizePages(ctx context.Context, engine Engine, pages [][]byte, opts ...InputOption) ([]Result, error) {
	inputs := make([]Input, len(pages))
	for i, p := range pages {
		inputs[i] = PageInput(i, p, opts...)
	}
	if b, ok := engine.(BatchEngine); ok {
		return b.RecognizeBatch(ctx, inputs)
	}
	results := make([]Result, len(inputs))
	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := engine.Recognize(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.ID, err)
		}
		results[i] = res
	}
	return results, nil
}

// RecognizeImage recognizes one uploaded PNG or JPEG. An image without text
// yields an empty Result.Text and no error.
func RecognizeImage(ctx context.Context, engine Engine, image []byte, opts ...InputOption) (Result, error) {
	in, err := ImageInput("image", image, opts...)
	if err != nil {
		return Result{}, err
	}
	res, err := engine.Recognize(ctx, in)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", in.ID, err)
	}
	return res, nil
}

// MeanConfidence averages the confidence of results that recognized words.
func MeanConfidence(results []Result) float64 {
	var sum float64
	var n int
	for _, r := range results {
		if len(r.Words) == 0 {
			continue
		}
		sum += r.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
