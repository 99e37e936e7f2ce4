package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local stores files below a root directory.
type Local struct {
	root string
	namer
}

// NewLocal creates a Local storage rooted at root. Files are served from
// baseURL joined with their name.
func NewLocal(root, baseURL string, opts ...Option) *Local {
	return &Local{root: root, namer: newNamer(baseURL, opts)}
}

// Path returns the absolute location of name on disk.
func (s *Local) Path(name string) string {
	return filepath.Join(s.root, filepath.FromSlash(name))
}

// Upload implements Storage. Existing files are never overwritten and
// missing parent directories are created.
func (s *Local) Upload(ctx context.Context, r io.Reader, opts UploadOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, err := s.Name(opts)
	if err != nil {
		return "", err
	}
	dest := s.Path(name)

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", name, err)
	}

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrExists, name)
		}
		return "", fmt.Errorf("failed to create %s: %w", name, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return name, nil
}

// Open implements Storage. Directories are reported as ErrNotFound.
func (s *Local) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	f, err := os.Open(s.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, name)
	}
	return f, nil
}
