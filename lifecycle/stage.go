package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/google/uuid"
)

// Stager hands out per-request scratch directories below Root.
type Stager struct {
	Root string
}

func NewStager(root string) (*Stager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("lifecycle: create scratch root: %w", err)
	}
	return &Stager{Root: root}, nil
}

// Stage creates a fresh session directory. Callers must defer Cleanup.
func (s *Stager) Stage() (*Scratch, error) {
	dir := filepath.Join(s.Root, "session_"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("lifecycle: create scratch: %w", err)
	}
	return &Scratch{Dir: dir}, nil
}

// Scratch is the private working directory of one request.
type Scratch struct {
	Dir string
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitize keeps a file name usable on disk.
func sanitize(name string) string {
	name = unsafeName.ReplaceAllString(filepath.Base(name), "_")
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

// Save writes data under a collision-free name and returns its path.
func (s *Scratch) Save(name string, data []byte) (string, error) {
	p := filepath.Join(s.Dir, uuid.NewString()+"_"+sanitize(name))
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return "", fmt.Errorf("lifecycle: stage %s: %w", name, err)
	}
	return p, nil
}

// Cleanup removes the directory and everything in it.
func (s *Scratch) Cleanup() error {
	return os.RemoveAll(s.Dir)
}
