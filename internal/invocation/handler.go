// Package invocation adapts the cache-fill to request-triggered compute. The
// API layer in front of it maps a returned location to a 302 with a Location
// header, and any returned error to a 404.
package invocation

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/imgateway/internal/domain"
	apperrors "github.com/zzenonn/imgateway/internal/errors"
	"github.com/zzenonn/imgateway/internal/service"
)

// Event is the invocation payload built by the API layer from the request path and query.
type Event struct {
	Image  string `json:"image"`
	Bucket string `json:"bucket"`
	// Width and Height arrive as numeric strings or numbers, possibly empty.
	Width  any `json:"width,omitempty"`
	Height any `json:"height,omitempty"`
	// CloudFront is the distribution domain. It is informational only.
	CloudFront string `json:"cloudfront,omitempty"`
}

type RenditionFiller interface {
	Fill(ctx context.Context, req domain.RenditionRequest) (domain.Redirect, error)
}

type Handler struct {
	filler        RenditionFiller
	defaultBucket string
}

// NewHandler creates a handler. defaultBucket is used when an event carries no bucket.
func NewHandler(filler RenditionFiller, defaultBucket string) *Handler {
	return &Handler{filler: filler, defaultBucket: defaultBucket}
}

// Handle runs one fill. Returned errors carry only the short failure message.
func (h *Handler) Handle(ctx context.Context, event Event) (domain.Redirect, error) {
	bucket := event.Bucket
	if bucket == "" {
		bucket = h.defaultBucket
	}

	req, err := service.ParseRequest(event.Image, bucket, event.Width, event.Height)
	if err == nil {
		var redirect domain.Redirect
		redirect, err = h.filler.Fill(ctx, req)
		if err == nil {
			return redirect, nil
		}
	}

	log.WithError(err).WithField("image", event.Image).Warn("Invocation failed")
	return domain.Redirect{}, errors.New(apperrors.PublicMessage(err))
}
