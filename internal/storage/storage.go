package storage

import (
	"context"
	"io"
)

// Store is a blob store addressed by path. Files are written under a
// namespace (e.g. "covers"), and the returned path is what gets persisted
// on the owning record. URL resolves a stored path to something a browser
// can fetch.
type Store interface {
	// Save writes the file and returns its storage path.
	Save(ctx context.Context, namespace, filename string, content io.Reader) (string, error)

	// URL returns the public URL for a stored path.
	URL(path string) string

	// Delete removes a stored file. Deleting a path that does not exist
	// is not an error.
	Delete(ctx context.Context, path string) error
}
