package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/zzenonn/imgateway/internal/domain"
	apperrors "github.com/zzenonn/imgateway/internal/errors"
)

// StoredObject is an object held by MemoryObjectRepository.
type StoredObject struct {
	Data        []byte
	ContentType string
	Visibility  domain.Visibility
}

// MemoryObjectRepository is a process-local store for development and tests.
type MemoryObjectRepository struct {
	mu      sync.RWMutex
	buckets map[string]map[string]StoredObject
	puts    int
}

// NewMemoryObjectRepository creates an empty in-memory store
func NewMemoryObjectRepository() *MemoryObjectRepository {
	return &MemoryObjectRepository{
		buckets: make(map[string]map[string]StoredObject),
	}
}

// Fetch returns a copy of the stored object
func (r *MemoryObjectRepository) Fetch(ctx context.Context, bucket, key string) (domain.Object, error) {
	obj, ok := r.Get(bucket, key)
	if !ok {
		return domain.Object{}, fmt.Errorf("mem://%s/%s: %w", bucket, key, apperrors.ErrObjectNotFound)
	}
	return domain.Object{Data: obj.Data, ContentType: obj.ContentType}, nil
}

// Put stores a copy of data, replacing any previous object under key
func (r *MemoryObjectRepository) Put(ctx context.Context, bucket, key string, data []byte, contentType string, visibility domain.Visibility) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	objects, ok := r.buckets[bucket]
	if !ok {
		objects = make(map[string]StoredObject)
		r.buckets[bucket] = objects
	}
	objects[key] = StoredObject{
		Data:        bytes.Clone(data),
		ContentType: contentType,
		Visibility:  visibility,
	}
	r.puts++
	return nil
}

// Upload reads r fully into the store. Progress is never shown.
func (r *MemoryObjectRepository) Upload(ctx context.Context, bucket, key string, reader io.Reader, contentType string, quiet bool) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if err := r.Put(ctx, bucket, key, data, contentType, domain.Private); err != nil {
		return "", err
	}
	return "mem://" + bucket + "/" + key, nil
}

// Get returns a copy of the object with its visibility
func (r *MemoryObjectRepository) Get(bucket, key string) (StoredObject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	obj, ok := r.buckets[bucket][key]
	if !ok {
		return StoredObject{}, false
	}
	obj.Data = bytes.Clone(obj.Data)
	return obj, true
}

// Keys lists the keys stored in bucket
func (r *MemoryObjectRepository) Keys(bucket string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.buckets[bucket]))
	for k := range r.buckets[bucket] {
		keys = append(keys, k)
	}
	return keys
}

// PutCount returns the number of successful Put calls
func (r *MemoryObjectRepository) PutCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.puts
}
