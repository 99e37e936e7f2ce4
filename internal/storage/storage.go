// Package storage saves uploaded files under generated names and reports
// the URL they are served from. Local disk and S3 backends are provided.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/phrazzld/apiview/internal/config"
	"github.com/phrazzld/apiview/internal/random"
)

var (
	// ErrExists is returned when the target name is already taken.
	ErrExists = errors.New("storage: file already exists")
	// ErrNotFound is returned when a stored file does not exist.
	ErrNotFound = errors.New("storage: file not found")
	// ErrInvalidName is returned for names that escape the storage root.
	ErrInvalidName = errors.New("storage: invalid file name")
)

// UploadOptions controls how an uploaded file is named.
type UploadOptions struct {
	// Filename is used verbatim when set; no extension is added.
	Filename string
	// Ext is appended to generated names. When empty the extension of
	// OriginalName is used.
	Ext string
	// OriginalName is the client's filename.
	OriginalName string
	// Prefix is a strftime layout such as "upload/%Y/%m/%d", expanded at
	// upload time and joined in front of the name. Empty uses the backend
	// default.
	Prefix string
	// ContentType is recorded by backends that keep metadata.
	ContentType string
}

// Storage stores files and reports where they can be fetched from.
type Storage interface {
	// Upload writes r under a generated name and returns the name.
	Upload(ctx context.Context, r io.Reader, opts UploadOptions) (string, error)
	// Open returns the stored content. The caller closes it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// URL returns the public location of name.
	URL(name string) string
}

// Option configures the naming shared by all backends.
type Option func(*namer)

// WithFilenameLength sets the length of generated names.
func WithFilenameLength(n int) Option {
	return func(nm *namer) {
		if n > 0 {
			nm.length = n
		}
	}
}

// WithDatePrefix sets the default strftime prefix.
func WithDatePrefix(layout string) Option {
	return func(nm *namer) { nm.prefix = layout }
}

// WithClock replaces time.Now for prefix expansion.
func WithClock(now func() time.Time) Option {
	return func(nm *namer) { nm.now = now }
}

// WithURLFunc replaces base URL joining.
func WithURLFunc(fn func(name string) string) Option {
	return func(nm *namer) { nm.urlFunc = fn }
}

// namer generates object names and URLs.
type namer struct {
	length  int
	prefix  string
	baseURL string
	urlFunc func(string) string
	now     func() time.Time
}

func newNamer(baseURL string, opts []Option) namer {
	nm := namer{length: random.DefaultLength, baseURL: baseURL, now: time.Now}
	for _, opt := range opts {
		opt(&nm)
	}
	return nm
}

// Name returns the storage name for an upload.
func (nm namer) Name(opts UploadOptions) (string, error) {
	name := opts.Filename
	if name == "" {
		generated, err := random.String(nm.length, random.AlphaNumeric)
		if err != nil {
			return "", fmt.Errorf("failed to generate filename: %w", err)
		}
		ext := strings.TrimPrefix(opts.Ext, ".")
		if ext == "" {
			ext = strings.TrimPrefix(path.Ext(strings.ReplaceAll(opts.OriginalName, "\\", "/")), ".")
		}
		name = generated
		if ext != "" {
			name += "." + ext
		}
	}

	layout := opts.Prefix
	if layout == "" {
		layout = nm.prefix
	}
	if layout != "" {
		name = path.Join(Strftime(layout, nm.now()), name)
	}

	if !validName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return name, nil
}

// URL joins name onto the base URL the way a browser resolves a relative
// link, so the base should end in a slash.
func (nm namer) URL(name string) string {
	if nm.urlFunc != nil {
		return nm.urlFunc(name)
	}
	if nm.baseURL == "" {
		return name
	}
	base, err := url.Parse(nm.baseURL)
	if err != nil {
		return strings.TrimSuffix(nm.baseURL, "/") + "/" + name
	}
	ref, err := url.Parse(name)
	if err != nil {
		return strings.TrimSuffix(nm.baseURL, "/") + "/" + name
	}
	return base.ResolveReference(ref).String()
}

// validName rejects absolute names and names that climb out of the root.
func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

// New builds the backend selected by cfg. The S3 client is created from
// cfg and the standard AWS environment variables.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	opts := []Option{WithFilenameLength(cfg.FilenameLength), WithDatePrefix(cfg.DatePrefix)}
	switch cfg.Backend {
	case "local", "":
		return NewLocal(cfg.Root, cfg.BaseURL, opts...), nil
	case "s3":
		client, err := NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewS3(client, cfg.S3Bucket, cfg.S3Prefix, cfg.BaseURL, opts...), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
