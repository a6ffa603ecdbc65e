package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/zzenonn/imgateway/internal/domain"
	apperrors "github.com/zzenonn/imgateway/internal/errors"
	"github.com/zzenonn/imgateway/internal/rendition"
	"github.com/zzenonn/imgateway/internal/service"
)

// RenditionCacheTTL is how long clients and shared caches may keep a rendition.
const RenditionCacheTTL = 24 * time.Hour

var cacheControl = "public, max-age=" + strconv.Itoa(int(RenditionCacheTTL.Seconds()))

type RenditionFiller interface {
	Fill(ctx context.Context, req domain.RenditionRequest) (domain.Redirect, error)
}

type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key string) (domain.Object, error)
}

type Handler struct {
	filler  RenditionFiller
	store   ObjectFetcher
	bucket  string
	timeout time.Duration
}

// New creates a handler serving bucket. timeout bounds each fill; zero disables it.
func New(filler RenditionFiller, store ObjectFetcher, bucket string, timeout time.Duration) *Handler {
	return &Handler{
		filler:  filler,
		store:   store,
		bucket:  bucket,
		timeout: timeout,
	}
}

// FillRendition handles GET /{image}?width=&height=. It answers 302 to the
// canonical rendition path, or 404 on any failure.
func (h *Handler) FillRendition(w http.ResponseWriter, r *http.Request) {
	image, err := wildcard(r)
	if err != nil {
		writeNotFound(w, apperrors.MissingParameterError("image"))
		return
	}

	query := r.URL.Query()
	req, err := service.ParseRequest(image, h.bucket, query.Get("width"), query.Get("height"))
	if err != nil {
		writeNotFound(w, err)
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	redirect, err := h.filler.Fill(ctx, req)
	if err != nil {
		writeNotFound(w, err)
		return
	}

	// The redirect is as stable as the key it points to, so shared caches may keep it.
	w.Header().Set("Location", redirect.Location)
	w.Header().Set("Cache-Control", cacheControl)
	w.WriteHeader(http.StatusFound)
}

// ServeRendition handles GET and HEAD /images/*. It reads straight from the
// store and never fills; a missing rendition is a plain 404.
func (h *Handler) ServeRendition(w http.ResponseWriter, r *http.Request) {
	rest, err := wildcard(r)
	if err != nil {
		writeNotFound(w, apperrors.ErrNotFound)
		return
	}
	key := rendition.Prefix + rest

	// Only keys the fill path can produce are served from the rendition space.
	if k, err := rendition.ParseKey(key); err != nil || k.String() != key {
		writeNotFound(w, apperrors.ErrNotFound)
		return
	}

	obj, err := h.store.Fetch(r.Context(), h.bucket, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrObjectNotFound) {
			writeNotFound(w, apperrors.ErrNotFound)
			return
		}
		log.WithError(err).WithField("key", key).Error("Failed to serve rendition")
		w.Header().Set("Cache-Control", "no-store")
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(obj.Data).String()
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", cacheControl)
	http.ServeContent(w, r, key, time.Time{}, bytes.NewReader(obj.Data))
}

func writeNotFound(w http.ResponseWriter, err error) {
	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, apperrors.PublicMessage(err), http.StatusNotFound)
}

// wildcard returns the unescaped path matched by the route's trailing "*".
func wildcard(r *http.Request) (string, error) {
	p := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return p, nil
	}
	return url.PathUnescape(p)
}
