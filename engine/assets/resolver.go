// Package assets resolves image filenames referenced by chunks into
// payloads served alongside search results.
package assets

import (
	"context"
	"errors"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/unicitykb/ragserve/engine/domain"
)

const defaultMimeType = "image/png"

// Resolver loads images from a single fixed directory. Filenames are
// opaque leaf names; anything that looks like a path is refused.
type Resolver struct {
	dir string
}

// New creates a Resolver rooted at dir. The directory is not required to
// exist: a missing root simply makes every lookup a not-found, which lets
// the service start degraded.
func New(dir string) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve loads the named image. A missing file reports domain.KindNotFound,
// which callers treat as a silently skippable case.
func (r *Resolver) Resolve(ctx context.Context, filename string) (domain.ImageAsset, error) {
	if err := ctx.Err(); err != nil {
		return domain.ImageAsset{}, domain.E(domain.KindTimeout, "assets.Resolve", err)
	}
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		return domain.ImageAsset{}, domain.Errf(domain.KindNotFound, "assets.Resolve", "invalid image name %q", filename)
	}

	data, err := os.ReadFile(filepath.Join(r.dir, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ImageAsset{}, domain.E(domain.KindNotFound, "assets.Resolve", err)
		}
		return domain.ImageAsset{}, domain.E(domain.KindInternal, "assets.Resolve", err)
	}

	return domain.ImageAsset{
		Data:     data,
		MimeType: mimeType(filename),
	}, nil
}

// mimeType guesses from the extension, defaulting to a generic image type.
func mimeType(filename string) string {
	if t := mime.TypeByExtension(path.Ext(filename)); t != "" {
		return t
	}
	return defaultMimeType
}
