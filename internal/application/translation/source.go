package translation

import (
	"context"
	"fmt"
	"io"
)

// Source fetches a serialized bundle by key, e.g. from object storage.
type Source interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// Fetch downloads and parses the bundle stored under key.
func Fetch(ctx context.Context, src Source, key string) (Bundle, error) {
	rc, err := src.Download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch translations %q: %w", key, err)
	}
	defer rc.Close()
	return ParseBundle(rc)
}
