package errors

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by the cache-fill orchestrator. Every error returned
// from a fill wraps exactly one of these.
var (
	ErrMissingParameter = errors.New("missing parameter")
	ErrNotFound         = errors.New("not found")
	ErrTransform        = errors.New("could not process the image")
	ErrStoreWrite       = errors.New("could not write the image")
)

var (
	// ErrObjectNotFound is returned by object stores when the key does not exist.
	ErrObjectNotFound = errors.New("object does not exist")
	// ErrUnsupportedFormat is returned by the transform engine for formats it can decode but not encode.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrDecode is returned by the transform engine when the input is not a decodable image.
	ErrDecode            = errors.New("image could not be decoded")
	ErrEmptyObject       = errors.New("object is empty")
)

// MissingParameterError reports an absent or malformed request field.
func MissingParameterError(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingParameter, field)
}

// KindOf returns the failure kind wrapped by err, or nil if err does not carry one.
func KindOf(err error) error {
	for _, kind := range []error{ErrMissingParameter, ErrNotFound, ErrTransform, ErrStoreWrite} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// PublicMessage is the short message shown to clients for err. Internal detail is never exposed.
func PublicMessage(err error) string {
	if kind := KindOf(err); kind != nil {
		return kind.Error()
	}
	return ErrNotFound.Error()
}

// ConfigNotSetError reports a required setting that has no value.
func ConfigNotSetError(config string) error {
	return fmt.Errorf("the %s setting must be set", config)
}
