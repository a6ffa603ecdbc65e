package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/imgateway/internal/domain"
	apperrors "github.com/zzenonn/imgateway/internal/errors"
)

// S3Options tunes the S3 client for S3-compatible endpoints such as R2 or MinIO.
type S3Options struct {
	Endpoint  string
	PathStyle bool
}

// S3ObjectRepository manages S3 interactions for originals and renditions.
type S3ObjectRepository struct {
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3ObjectRepository builds the S3 client from a shared AWS config.
func NewS3ObjectRepository(awsConfig aws.Config, opts S3Options) *S3ObjectRepository {
	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	})
	if client == nil {
		log.Fatal("Failed to create S3 client")
	}

	return &S3ObjectRepository{
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

// Fetch downloads an object from S3
func (r *S3ObjectRepository) Fetch(ctx context.Context, bucket, key string) (domain.Object, error) {
	result, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return domain.Object{}, fmt.Errorf("s3://%s/%s: %w", bucket, key, apperrors.ErrObjectNotFound)
		}
		return domain.Object{}, fmt.Errorf("failed to fetch s3://%s/%s: %w", bucket, key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return domain.Object{}, fmt.Errorf("failed to read s3://%s/%s: %w", bucket, key, err)
	}

	return domain.Object{
		Data:        data,
		ContentType: aws.ToString(result.ContentType),
	}, nil
}

// Put writes an object to S3, replacing whatever is stored under key
func (r *S3ObjectRepository) Put(ctx context.Context, bucket, key string, data []byte, contentType string, visibility domain.Visibility) error {
	size := int64(len(data))
	_, err := r.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: &size,
		ACL:           s3ACL(visibility),
	})
	if err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// Upload streams a file to S3 with an optional progress bar
func (r *S3ObjectRepository) Upload(ctx context.Context, bucket, key string, reader io.Reader, contentType string, quiet bool) (string, error) {
	size, err := remainingSize(reader)
	if err != nil {
		return "", fmt.Errorf("failed to size upload of %s: %w", key, err)
	}

	var proxyReader io.Reader = reader
	if !quiet {
		bar := progressbar.DefaultBytes(size, "uploading")
		pbReader := progressbar.NewReader(reader, bar)
		proxyReader = &pbReader
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   proxyReader,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := r.uploader.Upload(ctx, input); err != nil {
		return "", err
	}
	return "s3://" + bucket + "/" + key, nil
}

func s3ACL(visibility domain.Visibility) types.ObjectCannedACL {
	if visibility == domain.PublicRead {
		return types.ObjectCannedACLPublicRead
	}
	return types.ObjectCannedACLPrivate
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// remainingSize returns the bytes left in reader, or -1 if it cannot seek.
// The reader is left at its starting offset.
func remainingSize(reader io.Reader) (int64, error) {
	seeker, ok := reader.(io.Seeker)
	if !ok {
		return -1, nil
	}

	current, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1, nil
	}
	end, err := seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return -1, nil
	}
	if _, err := seeker.Seek(current, io.SeekStart); err != nil {
		return 0, err
	}
	return end - current, nil
}
