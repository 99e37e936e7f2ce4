package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/phrazzld/apiview/internal/config"
)

// S3API is the subset of the S3 client used by S3.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 stores files as objects in a bucket, below an optional key prefix.
type S3 struct {
	client    S3API
	bucket    string
	keyPrefix string
	namer
}

// NewS3 creates an S3 storage.
func NewS3(client S3API, bucket, keyPrefix, baseURL string, opts ...Option) *S3 {
	return &S3{client: client, bucket: bucket, keyPrefix: keyPrefix, namer: newNamer(baseURL, opts)}
}

// NewS3Client builds a client from cfg. Credentials come from
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN. A custom
// endpoint switches to path-style addressing for S3-compatible servers.
func NewS3Client(_ context.Context, cfg config.StorageConfig) (*s3.Client, error) {
	if cfg.S3Region == "" {
		return nil, errors.New("storage: s3 region is required")
	}

	opts := s3.Options{
		Region:      cfg.S3Region,
		Credentials: aws.NewCredentialsCache(envCredentials{}),
	}
	if cfg.S3Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.S3Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts), nil
}

type envCredentials struct{}

func (envCredentials) Retrieve(context.Context) (aws.Credentials, error) {
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "EnvironmentVariables",
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return aws.Credentials{}, errors.New("storage: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
	}
	return creds, nil
}

func (s *S3) key(name string) string {
	if s.keyPrefix == "" {
		return name
	}
	return path.Join(s.keyPrefix, name)
}

// Upload implements Storage. The body is buffered so the request can be
// signed, and If-None-Match keeps an existing object from being replaced.
func (s *S3) Upload(ctx context.Context, r io.Reader, opts UploadOptions) (string, error) {
	name, err := s.Name(opts)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(buf.Bytes()),
		IfNoneMatch: aws.String("*"),
		Metadata: map[string]string{
			"original-filename": opts.OriginalName,
			"upload-time":       s.now().UTC().Format(time.RFC3339),
		},
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		if apiErrorCode(err) == "PreconditionFailed" {
			return "", fmt.Errorf("%w: %s", ErrExists, name)
		}
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return name, nil
}

// Open implements Storage.
func (s *S3) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		if apiErrorCode(err) == "NoSuchKey" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("s3 download failed: %w", err)
	}
	return out.Body, nil
}

func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
