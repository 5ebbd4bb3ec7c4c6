// Package docsource enumerates and reads the markdown documents that feed
// the ingestion pass.
package docsource

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/unicitykb/ragserve/engine/domain"
)

// Source yields markdown documents by name. List returns names sorted
// ascending so the ingestion pass is deterministic.
type Source interface {
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, name string) (string, error)
}

// FS is a Source over any fs.FS. Only *.md files directly under the root
// are considered documents; subdirectories hold assets, not docs.
type FS struct {
	fsys fs.FS
}

// New creates a Source over fsys.
func New(fsys fs.FS) *FS {
	return &FS{fsys: fsys}
}

// NewDir creates a Source over a directory on disk. A missing directory
// reports domain.KindConfiguration so the caller can start degraded
// instead of crashing.
func NewDir(dir string) (*FS, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, domain.E(domain.KindConfiguration, "docsource.NewDir", err)
	}
	if !info.IsDir() {
		return nil, domain.Errf(domain.KindConfiguration, "docsource.NewDir", "%s is not a directory", dir)
	}
	return &FS{fsys: os.DirFS(dir)}, nil
}

// List returns the sorted names of all markdown documents.
func (s *FS) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, err := fs.Glob(s.fsys, "*.md")
	if err != nil {
		return nil, fmt.Errorf("docsource: glob: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the full content of one document.
func (s *FS) Read(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := fs.ReadFile(s.fsys, name)
	if err != nil {
		return "", fmt.Errorf("docsource: read %s: %w", name, err)
	}
	return string(data), nil
}
