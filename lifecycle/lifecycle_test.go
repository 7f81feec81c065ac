package lifecycle

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wudi/pdfworks/artifact"
	"github.com/wudi/pdfworks/errs"
	"github.com/wudi/pdfworks/storage"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newRegistry(t *testing.T, records RecordStore) (*Registry, *storage.FS, *Stager, *clock) {
	t.Helper()
	root := t.TempDir()
	blobs, err := storage.NewFS(filepath.Join(root, "outputs"))
	if err != nil {
		t.Fatalf("blobs: %v", err)
	}
	stager, err := NewStager(filepath.Join(root, "scratch"))
	if err != nil {
		t.Fatalf("stager: %v", err)
	}
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	if records == nil {
		records = NewMemoryStore()
	}
	return NewRegistry(blobs, records, Options{Now: c.now}), blobs, stager, c
}

func register(t *testing.T, reg *Registry, stager *Stager, owner, name, body string) Record {
	t.Helper()
	scratch, err := stager.Stage()
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	defer scratch.Cleanup()
	rec, err := reg.Register(context.Background(), owner, scratch, artifact.New(name, []byte(body)))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return rec
}

func TestRegisterOpenDelete(t *testing.T) {
	reg, _, stager, _ := newRegistry(t, nil)
	ctx := context.Background()

	rec := register(t, reg, stager, "u1", "merged.pdf", "%PDF-1.7 data")
	if rec.Kind != artifact.KindPDF || rec.Size != int64(len("%PDF-1.7 data")) {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !strings.HasPrefix(rec.StorageKey, "u1/") || !strings.HasSuffix(rec.StorageKey, ".pdf") {
		t.Fatalf("unexpected storage key %q", rec.StorageKey)
	}
	if rec.Digest != Digest([]byte("%PDF-1.7 data")) || len(rec.Digest) != 64 {
		t.Fatalf("unexpected digest %q", rec.Digest)
	}

	got, rc, err := reg.Open(ctx, "u1", rec.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if got.ID != rec.ID || string(body) != "%PDF-1.7 data" {
		t.Fatalf("unexpected content %q", body)
	}

	if _, _, err := reg.Open(ctx, "u2", rec.ID); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if err := reg.Delete(ctx, "u2", rec.ID); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if err := reg.Delete(ctx, "u1", "nope"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := reg.Delete(ctx, "u1", rec.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := reg.Open(ctx, "u1", rec.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRegisterRejectsBadOwner(t *testing.T) {
	reg, _, stager, _ := newRegistry(t, nil)
	scratch, _ := stager.Stage()
	defer scratch.Cleanup()
	for _, owner := range []string{"", "../x", "a/b"} {
		_, err := reg.Register(context.Background(), owner, scratch, artifact.New("a.pdf", []byte("x")))
		if !errors.Is(err, errs.ErrInvalidParameter) {
			t.Fatalf("owner %q: expected ErrInvalidParameter, got %v", owner, err)
		}
	}
}

func TestDeleteToleratesMissingBlob(t *testing.T) {
	reg, blobs, stager, _ := newRegistry(t, nil)
	ctx := context.Background()
	rec := register(t, reg, stager, "u1", "a.txt", "hello")
	if err := blobs.Remove(ctx, rec.StorageKey); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := reg.Delete(ctx, "u1", rec.ID); err != nil {
		t.Fatalf("delete with missing blob: %v", err)
	}
}

func TestListNewestFirstPerOwner(t *testing.T) {
	reg, _, stager, c := newRegistry(t, nil)
	first := register(t, reg, stager, "u1", "a.pdf", "a")
	c.t = c.t.Add(time.Minute)
	second := register(t, reg, stager, "u1", "b.zip", "b")
	register(t, reg, stager, "u2", "c.pdf", "c")

	recs, err := reg.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != second.ID || recs[1].ID != first.ID {
		t.Fatalf("unexpected listing %+v", recs)
	}
}

func TestSweepRetention(t *testing.T) {
	reg, blobs, stager, c := newRegistry(t, nil)
	ctx := context.Background()
	start := c.t

	old := register(t, reg, stager, "u1", "old.pdf", "old")
	c.t = start.Add(2 * 24 * time.Hour)
	fresh := register(t, reg, stager, "u1", "fresh.pdf", "fresh")

	// old is 31 days old, fresh is 29 days old.
	c.t = start.Add(31 * 24 * time.Hour)
	report, err := reg.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if report.Deleted != 1 {
		t.Fatalf("expected one deleted record, got %d", report.Deleted)
	}
	if _, err := blobs.Open(ctx, old.StorageKey); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expired blob still present: %v", err)
	}
	recs, _ := reg.List(ctx, "u1")
	if len(recs) != 1 || recs[0].ID != fresh.ID {
		t.Fatalf("fresh record should survive, got %+v", recs)
	}
}

func TestSweepKeepsRecordAtCutoff(t *testing.T) {
	reg, _, stager, c := newRegistry(t, nil)
	register(t, reg, stager, "u1", "edge.pdf", "x")
	c.t = c.t.Add(DefaultRetention)
	report, err := reg.Sweep(context.Background())
	if err != nil || report.Deleted != 0 {
		t.Fatalf("record exactly at the cutoff must survive: %+v %v", report, err)
	}
}

type flakyBlobs struct {
	storage.BlobStore
	failRemove map[string]bool
}

func (f *flakyBlobs) Remove(ctx context.Context, key string) error {
	if f.failRemove[key] {
		return errors.New("disk on fire")
	}
	return f.BlobStore.Remove(ctx, key)
}

func TestSweepPartialFailure(t *testing.T) {
	reg, blobs, stager, c := newRegistry(t, nil)
	ctx := context.Background()
	a := register(t, reg, stager, "u1", "a.pdf", "a")
	b := register(t, reg, stager, "u1", "b.pdf", "b")

	flaky := &flakyBlobs{BlobStore: blobs, failRemove: map[string]bool{a.StorageKey: true}}
	reg.blobs = flaky
	c.t = c.t.Add(40 * 24 * time.Hour)

	report, err := reg.Sweep(ctx)
	if !errors.Is(err, errs.ErrSweepPartialFailure) {
		t.Fatalf("expected ErrSweepPartialFailure, got %v", err)
	}
	if report.Deleted != 1 || len(report.Errors) != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, err := reg.records.Get(ctx, a.ID); err != nil {
		t.Fatalf("record with undeletable blob must be kept: %v", err)
	}
	if _, err := reg.records.Get(ctx, b.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("record b should be gone, got %v", err)
	}

	delete(flaky.failRemove, a.StorageKey)
	if report, err := reg.Sweep(ctx); err != nil || report.Deleted != 1 {
		t.Fatalf("retry sweep: %+v %v", report, err)
	}
}

type failingRecords struct{ *MemoryStore }

func (failingRecords) Create(context.Context, Record) error { return errors.New("db down") }

func TestRegisterRollsBackBlob(t *testing.T) {
	reg, _, stager, _ := newRegistry(t, failingRecords{NewMemoryStore()})
	scratch, _ := stager.Stage()
	defer scratch.Cleanup()
	if _, err := reg.Register(context.Background(), "u1", scratch, artifact.New("a.pdf", []byte("x"))); err == nil {
		t.Fatalf("expected registration error")
	}
	var files []string
	filepath.Walk(filepath.Join(filepath.Dir(stager.Root), "outputs"), func(p string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if len(files) != 0 {
		t.Fatalf("blob left behind: %v", files)
	}
}

func TestScratch(t *testing.T) {
	stager, err := NewStager(t.TempDir())
	if err != nil {
		t.Fatalf("stager: %v", err)
	}
	s1, _ := stager.Stage()
	s2, _ := stager.Stage()
	if s1.Dir == s2.Dir || !strings.HasPrefix(filepath.Base(s1.Dir), "session_") {
		t.Fatalf("unexpected scratch dirs %q %q", s1.Dir, s2.Dir)
	}
	p, err := s1.Save("../../etc/pass wd.pdf", []byte("x"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Dir(p) != s1.Dir || !strings.HasSuffix(p, "_pass_wd.pdf") {
		t.Fatalf("unexpected staged path %q", p)
	}
	if err := s1.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := os.Stat(s1.Dir); !os.IsNotExist(err) {
		t.Fatalf("scratch dir survived cleanup")
	}
}

func TestFileStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "records.json")
	store, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		rec := Record{ID: id, Owner: "u1", StorageKey: "u1/" + id + ".pdf", Kind: artifact.KindPDF, CreatedAt: now.Add(time.Duration(i) * time.Hour)}
		if err := store.Create(ctx, rec); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := store.Create(ctx, Record{ID: "a", Owner: "u1"}); err == nil {
		t.Fatalf("duplicate id should be rejected")
	}
	if err := store.Delete(ctx, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	reopened, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	recs, _ := reopened.ListByOwner(ctx, "u1")
	if len(recs) != 2 || recs[0].ID != "c" || recs[1].ID != "a" {
		t.Fatalf("unexpected records after reopen %+v", recs)
	}
	before, _ := reopened.ListBefore(ctx, now.Add(time.Hour))
	if len(before) != 1 || before[0].ID != "a" {
		t.Fatalf("ListBefore must be strict, got %+v", before)
	}
}
