package invocation

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/zzenonn/imgateway/internal/domain"
	apperrors "github.com/zzenonn/imgateway/internal/errors"
	"github.com/zzenonn/imgateway/internal/repository/objectstore"
	"github.com/zzenonn/imgateway/internal/service"
	"github.com/zzenonn/imgateway/internal/testutil"
	"github.com/zzenonn/imgateway/internal/transform"
)

type mockFiller struct {
	fillFunc func(ctx context.Context, req domain.RenditionRequest) (domain.Redirect, error)
	last     domain.RenditionRequest
}

func (m *mockFiller) Fill(ctx context.Context, req domain.RenditionRequest) (domain.Redirect, error) {
	m.last = req
	if m.fillFunc != nil {
		return m.fillFunc(ctx, req)
	}
	return domain.Redirect{Location: "/images/x"}, nil
}

func TestHandler_DecodesEvent(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantBucket string
		wantW      int
		wantH      int
	}{
		{
			name:       "api template with string dimensions",
			payload:    `{"width": "100", "image": "download.jpeg", "height": "80", "bucket":"test-image-gateway", "cloudfront":"d1.cloudfront.net"}`,
			wantBucket: "test-image-gateway",
			wantW:      100,
			wantH:      80,
		},
		{
			name:       "numbers",
			payload:    `{"image": "download.jpeg", "bucket": "b", "width": 64, "height": 32}`,
			wantBucket: "b",
			wantW:      64,
			wantH:      32,
		},
		{
			name:       "empty query params and default bucket",
			payload:    `{"width": "", "image": "download.jpeg", "height": ""}`,
			wantBucket: "fallback",
			wantW:      5,
			wantH:      5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var event Event
			if err := json.Unmarshal([]byte(tt.payload), &event); err != nil {
				t.Fatalf("Unmarshal() failed: %v", err)
			}

			filler := &mockFiller{}
			h := NewHandler(filler, "fallback")
			if _, err := h.Handle(context.Background(), event); err != nil {
				t.Fatalf("Handle() failed: %v", err)
			}

			if filler.last.Bucket != tt.wantBucket {
				t.Errorf("Bucket = %q, want %q", filler.last.Bucket, tt.wantBucket)
			}
			if w, h := filler.last.Width.OrDefault(), filler.last.Height.OrDefault(); w != tt.wantW || h != tt.wantH {
				t.Errorf("dimensions = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestHandler_ErrorsAreOpaque(t *testing.T) {
	filler := &mockFiller{
		fillFunc: func(ctx context.Context, req domain.RenditionRequest) (domain.Redirect, error) {
			return domain.Redirect{}, apperrors.MissingParameterError("secret internal detail")
		},
	}
	h := NewHandler(filler, "")

	_, err := h.Handle(context.Background(), Event{Image: "a.png", Bucket: "b"})
	if err == nil {
		t.Fatal("expected Handle() to fail")
	}
	if err.Error() != "missing parameter" {
		t.Errorf("error = %q, want the short kind message", err.Error())
	}
}

func TestHandler_BadDimension(t *testing.T) {
	filler := &mockFiller{}
	h := NewHandler(filler, "")

	_, err := h.Handle(context.Background(), Event{Image: "a.png", Bucket: "b", Width: "wide"})
	if err == nil || err.Error() != "missing parameter" {
		t.Errorf("Handle() error = %v, want missing parameter", err)
	}
}

func TestHandler_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryObjectRepository()
	_ = store.Put(ctx, "test-image-gateway", "download.jpeg", testutil.EncodedImage(t, "jpeg", 400, 300), "image/jpeg", domain.Private)
	h := NewHandler(service.NewRenditionService(store, transform.NewEngine()), "")

	redirect, err := h.Handle(ctx, Event{Image: "download.jpeg", Bucket: "test-image-gateway", Width: "100", Height: "100"})
	if err != nil {
		t.Fatalf("Handle() failed: %v", err)
	}
	if redirect.Location != "/images/download.jpeg-100x100.jpeg" {
		t.Errorf("Location = %q", redirect.Location)
	}

	out, _ := json.Marshal(redirect)
	if string(out) != `{"location":"/images/download.jpeg-100x100.jpeg"}` {
		t.Errorf("response body = %s", out)
	}

	_, err = h.Handle(ctx, Event{Image: "missing.jpeg", Bucket: "test-image-gateway"})
	if err == nil || err.Error() != "not found" {
		t.Errorf("Handle() error = %v, want not found", err)
	}
}

func TestHandler_BucketFallback(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryObjectRepository()
	_ = store.Put(ctx, "test-image-gateway", "download.jpeg", testutil.EncodedImage(t, "jpeg", 400, 300), "image/jpeg", domain.Private)
	svc := service.NewRenditionService(store, transform.NewEngine())
	event := Event{Image: "download.jpeg", Width: "100", Height: "100"}
	seeded := store.PutCount()

	t.Run("no bucket anywhere", func(t *testing.T) {
		_, err := NewHandler(svc, "").Handle(ctx, event)
		if err == nil || err.Error() != "missing parameter" {
			t.Errorf("Handle() error = %v, want missing parameter", err)
		}
		if store.PutCount() != seeded {
			t.Error("a rendition was stored without a bucket")
		}
	})

	t.Run("configured bucket", func(t *testing.T) {
		redirect, err := NewHandler(svc, "test-image-gateway").Handle(ctx, event)
		if err != nil {
			t.Fatalf("Handle() failed: %v", err)
		}
		if redirect.Location != "/images/download.jpeg-100x100.jpeg" {
			t.Errorf("Location = %q", redirect.Location)
		}
		if _, ok := store.Get("test-image-gateway", "images/download.jpeg-100x100.jpeg"); !ok {
			t.Error("rendition was not stored in the configured bucket")
		}
	})
}
