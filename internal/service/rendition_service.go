// Package service implements the rendition cache-fill: validate the request,
// fetch the original, resize it, store the rendition under its canonical key
// and answer with a redirect to that key.
//
// A fill never coordinates with concurrent fills for the same rendition.
// Identical inputs produce identical bytes under an identical key, and the
// store overwrites, so the last writer wins with the same content.
package service

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/imgateway/internal/domain"
	apperrors "github.com/zzenonn/imgateway/internal/errors"
	"github.com/zzenonn/imgateway/internal/rendition"
	"github.com/zzenonn/imgateway/internal/transform"
)

type ObjectStore interface {
	Fetch(ctx context.Context, bucket, key string) (domain.Object, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string, visibility domain.Visibility) error
}

type ImageTransform interface {
	Resize(data []byte, width, height int) (transform.Result, error)
}

// RenditionLedger records completed fills. It is optional.
type RenditionLedger interface {
	RecordRendition(ctx context.Context, r domain.Rendition) (domain.Rendition, error)
}

// State of a fill, used in log fields.
type State string

const (
	StateValidating       State = "validating"
	StateFetchingOriginal State = "fetching_original"
	StateTransforming     State = "transforming"
	StateStoring          State = "storing"
	StateResponding       State = "responding"
)

type RenditionService struct {
	store     ObjectStore
	transform ImageTransform
	ledger    RenditionLedger
	now       func() time.Time
}

// Option configures a RenditionService
type Option func(*RenditionService)

// WithLedger records every successful fill in ledger
func WithLedger(ledger RenditionLedger) Option {
	return func(s *RenditionService) {
		s.ledger = ledger
	}
}

// WithClock overrides the clock used for ledger timestamps
func WithClock(now func() time.Time) Option {
	return func(s *RenditionService) {
		s.now = now
	}
}

// NewRenditionService creates a new RenditionService instance
func NewRenditionService(store ObjectStore, transform ImageTransform, opts ...Option) *RenditionService {
	s := &RenditionService{
		store:     store,
		transform: transform,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fill populates the rendition cache for req and returns where the rendition now lives.
// Every error wraps one of ErrMissingParameter, ErrNotFound, ErrTransform or ErrStoreWrite.
func (s *RenditionService) Fill(ctx context.Context, req domain.RenditionRequest) (domain.Redirect, error) {
	logger := log.WithFields(log.Fields{
		"image":  req.ImageKey,
		"bucket": req.Bucket,
	})

	logger.WithField("state", StateValidating).Debug("Validating rendition request")
	width, height, err := validate(req)
	if err != nil {
		logger.WithError(err).Warn("Rejected rendition request")
		return domain.Redirect{}, err
	}
	logger = logger.WithFields(log.Fields{"width": width, "height": height})

	logger.WithField("state", StateFetchingOriginal).Debug("Fetching original")
	original, err := s.store.Fetch(ctx, req.Bucket, req.ImageKey)
	if err != nil {
		// Missing originals and storage failures are both reported as not found.
		logger.WithError(err).Errorf("Error when fetching image: %s", req.ImageKey)
		return domain.Redirect{}, fmt.Errorf("%w: %s: %w", apperrors.ErrNotFound, req.ImageKey, err)
	}

	logger.WithField("state", StateTransforming).Debug("Resizing original")
	resized, err := s.transform.Resize(original.Data, width, height)
	if err != nil {
		logger.WithError(err).Error("Error when resizing image")
		return domain.Redirect{}, fmt.Errorf("%w: %w", apperrors.ErrTransform, err)
	}

	key := rendition.ComputeKey(req.ImageKey, width, height, resized.Format)
	contentType := "image/" + resized.Format

	logger.WithFields(log.Fields{"state": StateStoring, "key": key}).Debug("Storing rendition")
	if err := s.store.Put(ctx, req.Bucket, key, resized.Data, contentType, domain.PublicRead); err != nil {
		logger.WithError(err).Errorf("Error when writing rendition: %s", key)
		return domain.Redirect{}, fmt.Errorf("%w: %s: %w", apperrors.ErrStoreWrite, key, err)
	}

	s.record(ctx, logger, domain.Rendition{
		SourceKey:    req.ImageKey,
		RenditionKey: key,
		Bucket:       req.Bucket,
		Width:        resized.Width,
		Height:       resized.Height,
		Format:       resized.Format,
		ContentType:  contentType,
		Size:         int64(len(resized.Data)),
		FilledAt:     s.now().UTC(),
	})

	location := rendition.Location(key)
	logger.WithFields(log.Fields{"state": StateResponding, "location": location}).Info("Rendition filled")
	return domain.Redirect{Location: location}, nil
}

// record writes to the ledger. The rendition is already durable, so a ledger
// failure is logged and does not fail the fill.
func (s *RenditionService) record(ctx context.Context, logger *log.Entry, r domain.Rendition) {
	if s.ledger == nil {
		return
	}
	if _, err := s.ledger.RecordRendition(ctx, r); err != nil {
		logger.WithError(err).Warn("Failed to record rendition in ledger")
	}
}

func validate(req domain.RenditionRequest) (int, int, error) {
	if req.ImageKey == "" {
		return 0, 0, apperrors.MissingParameterError("image")
	}
	if req.Bucket == "" {
		return 0, 0, apperrors.MissingParameterError("bucket")
	}

	width, height := req.Width.OrDefault(), req.Height.OrDefault()
	if width < 0 {
		return 0, 0, apperrors.MissingParameterError("width")
	}
	if height < 0 {
		return 0, 0, apperrors.MissingParameterError("height")
	}
	return width, height, nil
}
