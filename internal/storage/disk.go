package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// diskStore implements Store on the local filesystem, the same way a
// framework "public disk" works: files live under root and are served
// under baseURL by the hosting environment.
type diskStore struct {
	root    string
	baseURL string
}

func NewDiskStore(root, baseURL string) (Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root %s: %w", root, err)
	}
	return &diskStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (d *diskStore) Save(ctx context.Context, namespace, filename string, content io.Reader) (string, error) {
	dir := filepath.Join(d.root, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating namespace dir: %w", err)
	}

	// Random name per upload so callers can't collide or overwrite each
	// other; keep the original extension for content-type serving.
	name := uuid.NewString() + strings.ToLower(filepath.Ext(filename))
	path := namespace + "/" + name

	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("creating blob file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, content); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("writing blob: %w", err)
	}

	return path, nil
}

func (d *diskStore) URL(path string) string {
	return d.baseURL + "/" + path
}

func (d *diskStore) Delete(ctx context.Context, path string) error {
	err := os.Remove(filepath.Join(d.root, filepath.FromSlash(path)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting blob %s: %w", path, err)
	}
	return nil
}
