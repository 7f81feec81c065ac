// Package lifecycle owns registered outputs: scratch staging for a request,
// registration into an owner's namespace, listing, deletion and
// retention-based expiry.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/wudi/pdfworks/artifact"
	"github.com/wudi/pdfworks/errs"
)

// Record is the ownership and expiry metadata of one registered output.
// Records are immutable once created.
type Record struct {
	ID           string        `json:"id"`
	Owner        string        `json:"owner"`
	StorageKey   string        `json:"storage_key"`
	OriginalName string        `json:"original_name"`
	Kind         artifact.Kind `json:"kind"`
	Size         int64         `json:"size"`
	Digest       string        `json:"digest"`
	CreatedAt    time.Time     `json:"created_at"`
}

// RecordStore persists records.
type RecordStore interface {
	Create(ctx context.Context, r Record) error
	// Get returns errs.ErrNotFound for an unknown id.
	Get(ctx context.Context, id string) (Record, error)
	// ListByOwner returns the owner's records, newest first.
	ListByOwner(ctx context.Context, owner string) ([]Record, error)
	// ListBefore returns records created strictly before cutoff.
	ListBefore(ctx context.Context, cutoff time.Time) ([]Record, error)
	// Delete removes id. Deleting an unknown id is not an error.
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps records in a map.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Create(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insert(r)
}

func (s *MemoryStore) insert(r Record) error {
	if r.ID == "" {
		return errs.Wrap(errs.ErrInvalidParameter, "record without id", nil)
	}
	if _, ok := s.records[r.ID]; ok {
		return fmt.Errorf("lifecycle: record %s already exists", r.ID)
	}
	s.records[r.ID] = r
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return Record{}, errs.Wrap(errs.ErrNotFound, "record "+id, nil)
	}
	return r, nil
}

func (s *MemoryStore) ListByOwner(_ context.Context, owner string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(r Record) bool { return r.Owner == owner }), nil
}

func (s *MemoryStore) ListBefore(_ context.Context, cutoff time.Time) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter(func(r Record) bool { return r.CreatedAt.Before(cutoff) }), nil
}

// filter must be called with the lock held.
func (s *MemoryStore) filter(keep func(Record) bool) []Record {
	var out []Record
	for _, r := range s.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// Count returns the number of records held.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// FileStore is a MemoryStore persisted as a JSON snapshot. Every mutation
// rewrites the snapshot through a temporary file and a rename, so a crash
// leaves either the old or the new snapshot on disk.
type FileStore struct {
	mem  *MemoryStore
	path string
	wmu  sync.Mutex
}

// OpenFileStore loads the snapshot at path, starting empty when it does not
// exist yet.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{mem: NewMemoryStore(), path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lifecycle: read records: %w", err)
	}
	var records []Record
	if len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("lifecycle: decode records %s: %w", path, err)
		}
	}
	for _, r := range records {
		if err := s.mem.insert(r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *FileStore) Create(ctx context.Context, r Record) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.mem.Create(ctx, r); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		s.mem.Delete(ctx, r.ID)
		return err
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (Record, error) {
	return s.mem.Get(ctx, id)
}

func (s *FileStore) ListByOwner(ctx context.Context, owner string) ([]Record, error) {
	return s.mem.ListByOwner(ctx, owner)
}

func (s *FileStore) ListBefore(ctx context.Context, cutoff time.Time) ([]Record, error) {
	return s.mem.ListBefore(ctx, cutoff)
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	prev, err := s.mem.Get(ctx, id)
	if err != nil {
		return nil
	}
	s.mem.Delete(ctx, id)
	if err := s.flush(); err != nil {
		s.mem.Create(ctx, prev)
		return err
	}
	return nil
}

func (s *FileStore) flush() error {
	s.mem.mu.RLock()
	records := s.mem.filter(func(Record) bool { return true })
	s.mem.mu.RUnlock()
	if records == nil {
		records = []Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("lifecycle: encode records: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("lifecycle: create records dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".records-*")
	if err != nil {
		return fmt.Errorf("lifecycle: write records: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("lifecycle: write records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("lifecycle: write records: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("lifecycle: replace records: %w", err)
	}
	return nil
}
