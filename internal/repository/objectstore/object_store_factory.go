package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/zzenonn/imgateway/internal/domain"
)

// BucketConfig holds a parsed bucket reference
type BucketConfig struct {
	Name string
	Type RepositoryType
}

// String returns the bucket in URI form
func (b BucketConfig) String() string {
	return string(b.Type) + "://" + b.Name
}

// ParseBucketConfig parses bucket configuration from string
// Formats: "s3://bucket-name", "gs://bucket-name", "mem://bucket-name", "s3:bucket-name", or "bucket-name" (defaults to S3)
func ParseBucketConfig(bucketStr string) (BucketConfig, error) {
	bucketStr = strings.TrimSpace(bucketStr)
	if bucketStr == "" {
		return BucketConfig{}, fmt.Errorf("bucket name cannot be empty")
	}

	var scheme, bucketName string
	switch {
	case strings.Contains(bucketStr, "://"):
		parts := strings.SplitN(bucketStr, "://", 2)
		scheme, bucketName = parts[0], parts[1]
	case strings.Contains(bucketStr, ":"):
		parts := strings.SplitN(bucketStr, ":", 2)
		scheme, bucketName = parts[0], parts[1]
	default:
		// Bare names are S3 buckets for compatibility with the request format
		return BucketConfig{Name: bucketStr, Type: S3Type}, nil
	}

	bucketName = strings.Trim(strings.TrimSpace(bucketName), "/")
	if bucketName == "" {
		return BucketConfig{}, fmt.Errorf("bucket name cannot be empty")
	}

	var repoType RepositoryType
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "s3":
		repoType = S3Type
	case "gs", "gcs":
		repoType = GCSType
	case "mem", "memory":
		repoType = MemoryType
	default:
		return BucketConfig{}, fmt.Errorf("unsupported scheme: %s", scheme)
	}

	return BucketConfig{Name: bucketName, Type: repoType}, nil
}

// Backend is a store that can also stream uploads.
type Backend interface {
	ObjectStore
	Uploader
}

// Router dispatches store calls to a backend chosen by the bucket's URI scheme,
// so "gs://originals" goes to GCS and "test-image-gateway" goes to S3.
type Router struct {
	mu       sync.RWMutex
	backends map[RepositoryType]Backend
}

// NewRouter creates a router with no backends registered
func NewRouter() *Router {
	return &Router{backends: make(map[RepositoryType]Backend)}
}

// Register adds a backend for a repository type
func (r *Router) Register(repoType RepositoryType, backend Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[repoType]; exists {
		return fmt.Errorf("backend %s already registered", repoType)
	}
	r.backends[repoType] = backend
	return nil
}

func (r *Router) resolve(bucket string) (Backend, BucketConfig, error) {
	cfg, err := ParseBucketConfig(bucket)
	if err != nil {
		return nil, BucketConfig{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	backend, ok := r.backends[cfg.Type]
	if !ok {
		return nil, BucketConfig{}, fmt.Errorf("no backend configured for %s", cfg)
	}
	return backend, cfg, nil
}

// Fetch implements ObjectStore
func (r *Router) Fetch(ctx context.Context, bucket, key string) (domain.Object, error) {
	backend, cfg, err := r.resolve(bucket)
	if err != nil {
		return domain.Object{}, err
	}
	return backend.Fetch(ctx, cfg.Name, key)
}

// Put implements ObjectStore
func (r *Router) Put(ctx context.Context, bucket, key string, data []byte, contentType string, visibility domain.Visibility) error {
	backend, cfg, err := r.resolve(bucket)
	if err != nil {
		return err
	}
	return backend.Put(ctx, cfg.Name, key, data, contentType, visibility)
}

// Upload implements Uploader
func (r *Router) Upload(ctx context.Context, bucket, key string, reader io.Reader, contentType string, quiet bool) (string, error) {
	backend, cfg, err := r.resolve(bucket)
	if err != nil {
		return "", err
	}
	return backend.Upload(ctx, cfg.Name, key, reader, contentType, quiet)
}
