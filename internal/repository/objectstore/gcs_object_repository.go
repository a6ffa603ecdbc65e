package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/imgateway/internal/domain"
	apperrors "github.com/zzenonn/imgateway/internal/errors"
)

// GCSObjectRepository implements ObjectStore for Google Cloud Storage
type GCSObjectRepository struct {
	client *storage.Client
}

// NewGCSObjectRepository creates a new GCS object repository
func NewGCSObjectRepository(client *storage.Client) *GCSObjectRepository {
	return &GCSObjectRepository{client: client}
}

// Fetch downloads an object from GCS
func (r *GCSObjectRepository) Fetch(ctx context.Context, bucket, key string) (domain.Object, error) {
	log.Debugf("Fetching from GCS: gs://%s/%s", bucket, key)

	reader, err := r.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return domain.Object{}, fmt.Errorf("gs://%s/%s: %w", bucket, key, apperrors.ErrObjectNotFound)
		}
		return domain.Object{}, fmt.Errorf("failed to fetch gs://%s/%s: %w", bucket, key, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return domain.Object{}, fmt.Errorf("failed to read gs://%s/%s: %w", bucket, key, err)
	}

	return domain.Object{
		Data:        data,
		ContentType: reader.Attrs.ContentType,
	}, nil
}

// Put writes an object to GCS. The writer replaces any existing generation.
func (r *GCSObjectRepository) Put(ctx context.Context, bucket, key string, data []byte, contentType string, visibility domain.Visibility) error {
	writer := r.client.Bucket(bucket).Object(key).NewWriter(ctx)
	writer.ContentType = contentType
	if visibility == domain.PublicRead {
		writer.PredefinedACL = "publicRead"
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("failed to put gs://%s/%s: %w", bucket, key, err)
	}
	// The object is only committed on Close.
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to put gs://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// Upload streams a file to GCS with an optional progress bar
func (r *GCSObjectRepository) Upload(ctx context.Context, bucket, key string, reader io.Reader, contentType string, quiet bool) (string, error) {
	writer := r.client.Bucket(bucket).Object(key).NewWriter(ctx)
	writer.ContentType = contentType

	var proxyReader io.Reader = reader
	if !quiet {
		log.Debugf("Uploading to GCS: gs://%s/%s", bucket, key)
		bar := progressbar.DefaultBytes(-1, "uploading")
		pbReader := progressbar.NewReader(reader, bar)
		proxyReader = &pbReader
	}

	if _, err := io.Copy(writer, proxyReader); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to upload to GCS: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to upload to GCS: %w", err)
	}

	return "gs://" + bucket + "/" + key, nil
}
