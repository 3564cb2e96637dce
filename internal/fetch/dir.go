package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"
)

// DirFetcher serves references out of a file system, typically os.DirFS
// over a static site root. Missing files produce a 404 Response.
type DirFetcher struct {
	fsys fs.FS
}

// NewDir creates a DirFetcher over fsys.
func NewDir(fsys fs.FS) *DirFetcher {
	return &DirFetcher{fsys: fsys}
}

// cleanRef maps a site-relative reference to an fs.FS path.
func cleanRef(ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	p := path.Clean("/" + ref)
	return strings.TrimPrefix(p, "/")
}

func (d *DirFetcher) Fetch(ctx context.Context, ref string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := cleanRef(ref)
	if name == "" || name == "." {
		name = "index.html"
	}

	body, err := fs.ReadFile(d.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return &Response{
			Status:     http.StatusNotFound,
			StatusText: http.StatusText(http.StatusNotFound),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	return &Response{
		OK:          true,
		Status:      http.StatusOK,
		StatusText:  http.StatusText(http.StatusOK),
		ContentType: ct,
		Body:        body,
	}, nil
}
