// Package filesystem provides a local directory blob backend. Writes are
// atomic through a temp file and rename, and all paths are sandboxed under
// an os.Root to prevent traversal outside the storage directory.
package filesystem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"filedrop"
)

// Store persists blobs under a root directory, addressed by storage key.
type Store struct {
	root    *os.Root
	baseURL string
}

// NewStore creates a Store rooted at the given directory. Public URLs are
// minted by joining baseURL with the storage key.
func NewStore(root *os.Root, baseURL string) *Store {
	return &Store{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Put atomically writes the payload under key and returns its public URL.
// Intermediate directories in the key are created as needed.
func (s *Store) Put(ctx context.Context, key, contentType string, payload []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validateKey(key); err != nil {
		return "", err
	}

	tmpFile := tmpFileName()
	t, err := s.root.Create(tmpFile)
	if err != nil {
		return "", fmt.Errorf("could not open temp file: %w", err)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(t.Name()); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	if _, err := io.Copy(t, bytes.NewReader(payload)); err != nil {
		return "", fmt.Errorf("could not write payload: %w", err)
	}

	if err := t.Sync(); err != nil {
		return "", fmt.Errorf("could not sync written file: %w", err)
	}

	destDir := filepath.Dir(key)
	if destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return "", fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if err := s.root.Rename(tmpFile, key); err != nil {
		return "", fmt.Errorf("failed to rename file: %w", err)
	}

	success = true

	return s.PublicURL(key)
}

// Open opens a stored blob for reading. Returns filedrop.ErrNotFound when no
// blob exists under the key. The handler uses this to serve blob requests.
func (s *Store) Open(ctx context.Context, key string) (io.ReadSeekCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, filedrop.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, nil
}

// Delete removes a blob. Returns filedrop.ErrNotFound if no blob exists
// under the key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	err := s.root.Remove(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return filedrop.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}
	return nil
}

// PublicURL returns the URL a blob is reachable at.
func (s *Store) PublicURL(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return s.baseURL + "/" + key, nil
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("storage key %q: %w", key, filedrop.ErrInvalidInput)
	}
	return nil
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
