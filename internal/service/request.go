package service

import (
	"fmt"

	"github.com/zzenonn/imgateway/internal/domain"
	apperrors "github.com/zzenonn/imgateway/internal/errors"
)

// ParseRequest builds a rendition request from boundary values. width and
// height may be nil, numeric strings or numbers.
func ParseRequest(image, bucket string, width, height any) (domain.RenditionRequest, error) {
	w, err := domain.ParseDimension(width)
	if err != nil {
		return domain.RenditionRequest{}, fmt.Errorf("%w: %w", apperrors.MissingParameterError("width"), err)
	}
	h, err := domain.ParseDimension(height)
	if err != nil {
		return domain.RenditionRequest{}, fmt.Errorf("%w: %w", apperrors.MissingParameterError("height"), err)
	}

	return domain.RenditionRequest{
		ImageKey: image,
		Bucket:   bucket,
		Width:    w,
		Height:   h,
	}, nil
}
