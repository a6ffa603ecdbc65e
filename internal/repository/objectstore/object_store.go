// Package objectstore provides the durable blob store clients used by the
// gateway: S3, GCS and an in-memory store, plus a router that picks one by
// bucket URI scheme.
package objectstore

import (
	"context"
	"io"

	"github.com/zzenonn/imgateway/internal/domain"
)

// ObjectStore is the capability the cache-fill orchestrator needs from storage.
//
// Fetch must return an error wrapping errors.ErrObjectNotFound when the key
// does not exist, and any other error for infrastructure failures.
//
// Put overwrites without a pre-existence check, so writing the same bytes to
// the same key any number of times leaves the same object behind.
type ObjectStore interface {
	Fetch(ctx context.Context, bucket, key string) (domain.Object, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string, visibility domain.Visibility) error
}

// Uploader streams a local original into a store. Used by the CLI seeding path,
// never by the orchestrator.
type Uploader interface {
	Upload(ctx context.Context, bucket, key string, r io.Reader, contentType string, quiet bool) (string, error)
}

// RepositoryType represents the type of object storage
type RepositoryType string

const (
	S3Type     RepositoryType = "s3"
	GCSType    RepositoryType = "gs"
	MemoryType RepositoryType = "mem"
)
