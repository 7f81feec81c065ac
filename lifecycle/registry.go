package lifecycle

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"github.com/wudi/pdfworks/artifact"
	"github.com/wudi/pdfworks/errs"
	"github.com/wudi/pdfworks/observability"
	"github.com/wudi/pdfworks/storage"
)

// DefaultRetention is how long registered outputs are kept.
const DefaultRetention = 30 * 24 * time.Hour

type Options struct {
	Retention time.Duration
	Now       func() time.Time
	Logger    observability.Logger
}

// Registry ties blob storage and records together per owner.
type Registry struct {
	blobs     storage.BlobStore
	records   RecordStore
	retention time.Duration
	now       func() time.Time
	logger    observability.Logger
}

func NewRegistry(blobs storage.BlobStore, records RecordStore, opts Options) *Registry {
	r := &Registry{
		blobs:     blobs,
		records:   records,
		retention: opts.Retention,
		now:       opts.Now,
		logger:    opts.Logger,
	}
	if r.retention <= 0 {
		r.retention = DefaultRetention
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.logger == nil {
		r.logger = observability.NopLogger{}
	}
	return r
}

// Retention returns the configured retention window.
func (r *Registry) Retention() time.Duration { return r.retention }

func validOwner(owner string) error {
	if owner == "" || strings.ContainsAny(owner, `/\`) || owner == "." || owner == ".." {
		return errs.Wrap(errs.ErrInvalidParameter, "owner id "+owner, nil)
	}
	return nil
}

// Digest returns the hex blake2b-256 sum of data.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Register stages a into scratch, moves it into the owner's namespace and
// records it. Nothing is visible to the owner until both steps succeeded.
func (r *Registry) Register(ctx context.Context, owner string, scratch *Scratch, a artifact.Artifact) (Record, error) {
	if err := validOwner(owner); err != nil {
		return Record{}, err
	}
	if !a.Kind.Valid() {
		return Record{}, errs.Wrap(errs.ErrInvalidParameter, "artifact kind "+string(a.Kind), nil)
	}
	local, err := scratch.Save(a.Name, a.Data)
	if err != nil {
		return Record{}, err
	}
	id := uuid.NewString()
	key := owner + "/" + id + a.Kind.Ext()
	size, err := r.blobs.Import(ctx, key, local)
	if err != nil {
		return Record{}, fmt.Errorf("lifecycle: store %s: %w", a.Name, err)
	}
	rec := Record{
		ID:           id,
		Owner:        owner,
		StorageKey:   key,
		OriginalName: a.Name,
		Kind:         a.Kind,
		Size:         size,
		Digest:       Digest(a.Data),
		CreatedAt:    r.now().UTC(),
	}
	if err := r.records.Create(ctx, rec); err != nil {
		if rmErr := r.blobs.Remove(ctx, key); rmErr != nil {
			r.logger.Warn("orphaned blob after failed registration",
				observability.String("key", key), observability.Error("error", rmErr))
		}
		return Record{}, fmt.Errorf("lifecycle: record %s: %w", a.Name, err)
	}
	r.logger.Info("output registered",
		observability.String("owner", owner),
		observability.String("id", id),
		observability.String("name", a.Name),
		observability.Int64("size", size))
	return rec, nil
}

// List returns the owner's live records, newest first. Expired records are
// swept first; a failing sweep is logged and does not fail the listing.
func (r *Registry) List(ctx context.Context, owner string) ([]Record, error) {
	if err := validOwner(owner); err != nil {
		return nil, err
	}
	if _, err := r.Sweep(ctx); err != nil {
		r.logger.Warn("sweep before listing failed", observability.Error("error", err))
	}
	recs, err := r.records.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: list %s: %w", owner, err)
	}
	return recs, nil
}

func (r *Registry) owned(ctx context.Context, owner, id string) (Record, error) {
	if err := validOwner(owner); err != nil {
		return Record{}, err
	}
	rec, err := r.records.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if rec.Owner != owner {
		return Record{}, errs.Wrap(errs.ErrPermissionDenied, "record "+id, nil)
	}
	return rec, nil
}

// Open returns the record and its content. The caller closes the reader.
func (r *Registry) Open(ctx context.Context, owner, id string) (Record, io.ReadCloser, error) {
	rec, err := r.owned(ctx, owner, id)
	if err != nil {
		return Record{}, nil, err
	}
	rc, err := r.blobs.Open(ctx, rec.StorageKey)
	if err != nil {
		return Record{}, nil, err
	}
	return rec, rc, nil
}

// Delete removes one of the owner's records. A blob that is already gone does
// not prevent the record from being removed.
func (r *Registry) Delete(ctx context.Context, owner, id string) error {
	rec, err := r.owned(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := r.blobs.Remove(ctx, rec.StorageKey); err != nil {
		r.logger.Warn("blob removal failed",
			observability.String("key", rec.StorageKey), observability.Error("error", err))
	}
	if err := r.records.Delete(ctx, id); err != nil {
		return fmt.Errorf("lifecycle: delete %s: %w", id, err)
	}
	r.logger.Info("output deleted", observability.String("owner", owner), observability.String("id", id))
	return nil
}

// SweepReport summarizes one retention sweep.
type SweepReport struct {
	Deleted int
	Errors  []error
}

// Sweep purges every record created before now minus the retention window.
// Items are independent: a failure is collected and the sweep moves on. The
// record is kept when its blob could not be removed so the next sweep retries.
func (r *Registry) Sweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	cutoff := r.now().Add(-r.retention)
	expired, err := r.records.ListBefore(ctx, cutoff)
	if err != nil {
		return report, fmt.Errorf("lifecycle: list expired: %w", err)
	}
	for _, rec := range expired {
		if err := ctx.Err(); err != nil {
			report.Errors = append(report.Errors, err)
			break
		}
		if err := r.blobs.Remove(ctx, rec.StorageKey); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("remove blob %s: %w", rec.StorageKey, err))
			continue
		}
		if err := r.records.Delete(ctx, rec.ID); err != nil {
			report.Errors = append(report.Errors, fmt.Errorf("delete record %s: %w", rec.ID, err))
			continue
		}
		report.Deleted++
	}
	if report.Deleted > 0 || len(report.Errors) > 0 {
		r.logger.Info("retention sweep",
			observability.Int("deleted", report.Deleted),
			observability.Int("failed", len(report.Errors)))
	}
	if len(report.Errors) > 0 {
		return report, errs.Wrap(errs.ErrSweepPartialFailure,
			fmt.Sprintf("%d of %d expired outputs", len(report.Errors), len(expired)), errors.Join(report.Errors...))
	}
	return report, nil
}

// RunSweeper sweeps every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.Error("retention sweep failed", observability.Error("error", err))
			}
		}
	}
}
