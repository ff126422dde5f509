package fakeapi

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
)

// Blobs stores image bytes as files under a root directory, one file per key.
type Blobs struct {
	root string
}

// NewBlobs creates the root directory if needed and returns a store over it.
func NewBlobs(root string) (*Blobs, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blobs: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("blobs: create root: %w", err)
	}
	return &Blobs{root: abs}, nil
}

// Root returns the absolute root directory.
func (b *Blobs) Root() string {
	return b.root
}

// Path resolves key to a file under the root, rejecting traversal.
func (b *Blobs) Path(key string) (string, error) {
	if key == "" {
		return "", errors.New("blobs: empty key")
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("blobs: absolute keys not allowed: %s", key)
	}
	abs := filepath.Join(b.root, cleaned)
	if !strings.HasPrefix(abs, b.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("blobs: key escapes root: %s", key)
	}
	return abs, nil
}

// Put atomically writes data under key: tmp file, fsync, rename.
func (b *Blobs) Put(key string, data []byte) error {
	abs, err := b.Path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("blobs: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".lumen-tmp-*")
	if err != nil {
		return fmt.Errorf("blobs: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("blobs: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("blobs: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("blobs: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("blobs: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes the blob for key. A missing blob is not an error.
func (b *Blobs) Delete(key string) error {
	abs, err := b.Path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("blobs: delete %s: %w", key, err)
	}
	return nil
}

// DeleteAll removes every key and returns the combined failures.
func (b *Blobs) DeleteAll(keys []string) error {
	var errs error
	for _, k := range keys {
		errs = multierr.Append(errs, b.Delete(k))
	}
	return errs
}
