// Package errs defines the failure kinds surfaced by the engine. Callers wrap
// a kind with context using fmt.Errorf("%w: ...", errs.ErrX) and test for it
// with errors.Is.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDocument reports unparseable or corrupt PDF bytes.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrInvalidParameter reports a malformed expression or option that yields
	// no usable pages or parts.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrMissingAsset reports a referenced watermark image or input file that
	// is absent or unreadable.
	ErrMissingAsset = errors.New("missing asset")
	// ErrNoTextFound reports that no extractable text was produced.
	ErrNoTextFound = errors.New("no text found")
	// ErrNoContentFound reports that no pages or images were produced.
	ErrNoContentFound = errors.New("no content found")
	// ErrPermissionDenied reports an operation on a record owned by someone else.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotFound reports an unknown record id.
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedInput reports an input whose filename suffix is not
	// accepted by the operation.
	ErrUnsupportedInput = errors.New("unsupported input")
	// ErrTooLarge reports an upload above the configured size limit.
	ErrTooLarge = errors.New("input too large")
	// ErrSweepPartialFailure reports that one or more expired records could
	// not be purged.
	ErrSweepPartialFailure = errors.New("retention sweep partially failed")
)

// Wrap attaches kind to cause while keeping both in the chain.
func Wrap(kind error, msg string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", kind, msg)
	}
	return fmt.Errorf("%w: %s: %w", kind, msg, cause)
}

// Kind returns the first known kind found in err's chain, or nil.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

var kinds = []error{
	ErrInvalidDocument,
	ErrInvalidParameter,
	ErrMissingAsset,
	ErrNoTextFound,
	ErrNoContentFound,
	ErrPermissionDenied,
	ErrNotFound,
	ErrUnsupportedInput,
	ErrTooLarge,
	ErrSweepPartialFailure,
}
