// Package artifact describes operation outputs and bundles several of them
// into a single zip.
package artifact

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/wudi/pdfworks/errs"
)

// Kind is the payload type of an artifact.
type Kind string

const (
	KindPDF Kind = "pdf"
	KindTXT Kind = "txt"
	KindPNG Kind = "png"
	KindZIP Kind = "zip"
)

var contentTypes = map[Kind]string{
	KindPDF: "application/pdf",
	KindTXT: "text/plain; charset=utf-8",
	KindPNG: "image/png",
	KindZIP: "application/zip",
}

// Ext returns the file extension including the dot.
func (k Kind) Ext() string { return "." + string(k) }

// ContentType returns the MIME type served for the kind.
func (k Kind) ContentType() string {
	if ct, ok := contentTypes[k]; ok {
		return ct
	}
	return "application/octet-stream"
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := contentTypes[k]
	return ok
}

// KindOf derives the kind from a file name's extension.
func KindOf(name string) (Kind, bool) {
	k := Kind(strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."))
	return k, k.Valid()
}

// Artifact is one output payload with its display name.
type Artifact struct {
	Kind Kind
	Name string
	Data []byte
}

// New builds an artifact, deriving the kind from name.
func New(name string, data []byte) Artifact {
	k, _ := KindOf(name)
	return Artifact{Kind: k, Name: name, Data: data}
}

// Namer assigns the in-bundle file name of every part. It must return one
// name per part.
type Namer func(parts []Artifact) []string

// Sequential names parts prefix_1.ext, prefix_2.ext, ... in order.
func Sequential(prefix string) Namer {
	return func(parts []Artifact) []string {
		names := make([]string, len(parts))
		for i, p := range parts {
			names[i] = fmt.Sprintf("%s_%d%s", prefix, i+1, p.Kind.Ext())
		}
		return names
	}
}

// PerKind keeps one counter per kind and names parts prefixes[kind]_N.ext,
// falling back to "file" for kinds without a prefix.
func PerKind(prefixes map[Kind]string) Namer {
	return func(parts []Artifact) []string {
		counters := make(map[Kind]int)
		names := make([]string, len(parts))
		for i, p := range parts {
			counters[p.Kind]++
			prefix, ok := prefixes[p.Kind]
			if !ok {
				prefix = "file"
			}
			names[i] = fmt.Sprintf("%s_%d%s", prefix, counters[p.Kind], p.Kind.Ext())
		}
		return names
	}
}

// Package reduces parts to the single artifact returned to the caller. One
// part is returned unchanged; two or more are zipped under bundleName with
// the names chosen by name. No parts is errs.ErrNoContentFound.
func Package(parts []Artifact, bundleName string, name Namer) (Artifact, error) {
	switch len(parts) {
	case 0:
		return Artifact{}, errs.Wrap(errs.ErrNoContentFound, "nothing to package", nil)
	case 1:
		return parts[0], nil
	}
	names := name(parts)
	if len(names) != len(parts) {
		return Artifact{}, fmt.Errorf("package: namer returned %d names for %d parts", len(names), len(parts))
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, p := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: names[i], Method: zip.Deflate})
		if err != nil {
			return Artifact{}, fmt.Errorf("package: add %s: %w", names[i], err)
		}
		if _, err := w.Write(p.Data); err != nil {
			return Artifact{}, fmt.Errorf("package: write %s: %w", names[i], err)
		}
	}
	if err := zw.Close(); err != nil {
		return Artifact{}, fmt.Errorf("package: finish: %w", err)
	}
	return Artifact{Kind: KindZIP, Name: bundleName, Data: buf.Bytes()}, nil
}
