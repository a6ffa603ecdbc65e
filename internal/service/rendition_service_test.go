package service_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zzenonn/imgateway/internal/domain"
	apperrors "github.com/zzenonn/imgateway/internal/errors"
	"github.com/zzenonn/imgateway/internal/repository/objectstore"
	"github.com/zzenonn/imgateway/internal/service"
	"github.com/zzenonn/imgateway/internal/testutil"
	"github.com/zzenonn/imgateway/internal/transform"
)

// mockObjectStore is a mock implementation of the object store for testing.
type mockObjectStore struct {
	mu         sync.Mutex
	fetchFunc  func(ctx context.Context, bucket, key string) (domain.Object, error)
	putFunc    func(ctx context.Context, bucket, key string, data []byte, contentType string, visibility domain.Visibility) error
	fetchCalls int
	putCalls   int
}

func (m *mockObjectStore) Fetch(ctx context.Context, bucket, key string) (domain.Object, error) {
	m.mu.Lock()
	m.fetchCalls++
	m.mu.Unlock()
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, bucket, key)
	}
	return domain.Object{Data: []byte("original"), ContentType: "image/png"}, nil
}

func (m *mockObjectStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string, visibility domain.Visibility) error {
	m.mu.Lock()
	m.putCalls++
	m.mu.Unlock()
	if m.putFunc != nil {
		return m.putFunc(ctx, bucket, key, data, contentType, visibility)
	}
	return nil
}

// mockTransform is a mock implementation of the image transform for testing.
type mockTransform struct {
	resizeFunc func(data []byte, width, height int) (transform.Result, error)
	calls      int
	lastWidth  int
	lastHeight int
}

func (m *mockTransform) Resize(data []byte, width, height int) (transform.Result, error) {
	m.calls++
	m.lastWidth, m.lastHeight = width, height
	if m.resizeFunc != nil {
		return m.resizeFunc(data, width, height)
	}
	return transform.Result{Data: []byte("resized"), Format: "png", Width: width, Height: height}, nil
}

// mockLedger is a mock implementation of the rendition ledger for testing.
type mockLedger struct {
	recordFunc func(ctx context.Context, r domain.Rendition) (domain.Rendition, error)
	records    []domain.Rendition
}

func (m *mockLedger) RecordRendition(ctx context.Context, r domain.Rendition) (domain.Rendition, error) {
	m.records = append(m.records, r)
	if m.recordFunc != nil {
		return m.recordFunc(ctx, r)
	}
	return r, nil
}

func request(image, bucket string, width, height any) domain.RenditionRequest {
	req, err := service.ParseRequest(image, bucket, width, height)
	if err != nil {
		panic(err)
	}
	return req
}

// TestRenditionService_MissingParameters verifies that requests without image or bucket never touch storage.
func TestRenditionService_MissingParameters(t *testing.T) {
	tests := []struct {
		name string
		req  domain.RenditionRequest
	}{
		{"missing image", request("", "test-image-gateway", 100, 100)},
		{"missing bucket", request("download.jpeg", "", 100, 100)},
		{"missing both", domain.RenditionRequest{}},
		{"negative width", request("download.jpeg", "test-image-gateway", -1, 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockObjectStore{}
			engine := &mockTransform{}
			svc := service.NewRenditionService(store, engine)

			_, err := svc.Fill(context.Background(), tt.req)
			if !errors.Is(err, apperrors.ErrMissingParameter) {
				t.Fatalf("Fill() error = %v, want ErrMissingParameter", err)
			}
			if store.fetchCalls != 0 || engine.calls != 0 || store.putCalls != 0 {
				t.Errorf("fetch=%d resize=%d put=%d, want no calls", store.fetchCalls, engine.calls, store.putCalls)
			}
		})
	}
}

// TestRenditionService_DefaultDimensions verifies that absent and zero dimensions fall back to 5.
func TestRenditionService_DefaultDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, height any
		wantW, wantH  int
		wantLocation  string
	}{
		{"both omitted", nil, nil, 5, 5, "/images/a.png-5x5.png"},
		{"zero width", 0, 40, 5, 40, "/images/a.png-5x40.png"},
		{"empty strings", "", "", 5, 5, "/images/a.png-5x5.png"},
		{"zero strings", "0", "0", 5, 5, "/images/a.png-5x5.png"},
		{"numeric strings", "100", "80", 100, 80, "/images/a.png-100x80.png"},
		{"json numbers", float64(64), float64(32), 64, 32, "/images/a.png-64x32.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockObjectStore{}
			engine := &mockTransform{}
			svc := service.NewRenditionService(store, engine)

			redirect, err := svc.Fill(context.Background(), request("a.png", "bucket", tt.width, tt.height))
			if err != nil {
				t.Fatalf("Fill() failed: %v", err)
			}
			if engine.lastWidth != tt.wantW || engine.lastHeight != tt.wantH {
				t.Errorf("Resize() called with %dx%d, want %dx%d", engine.lastWidth, engine.lastHeight, tt.wantW, tt.wantH)
			}
			if redirect.Location != tt.wantLocation {
				t.Errorf("Location = %q, want %q", redirect.Location, tt.wantLocation)
			}
		})
	}
}

// TestRenditionService_FetchFailures verifies that any fetch failure becomes NotFound and nothing is stored.
func TestRenditionService_FetchFailures(t *testing.T) {
	tests := []struct {
		name     string
		fetchErr error
	}{
		{"original missing", apperrors.ErrObjectNotFound},
		{"storage unreachable", errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockObjectStore{
				fetchFunc: func(ctx context.Context, bucket, key string) (domain.Object, error) {
					return domain.Object{}, tt.fetchErr
				},
			}
			engine := &mockTransform{}
			svc := service.NewRenditionService(store, engine)

			_, err := svc.Fill(context.Background(), request("missing.jpeg", "bucket", 10, 10))
			if !errors.Is(err, apperrors.ErrNotFound) {
				t.Fatalf("Fill() error = %v, want ErrNotFound", err)
			}
			if !errors.Is(err, tt.fetchErr) {
				t.Errorf("Fill() error = %v, want it to wrap %v", err, tt.fetchErr)
			}
			if engine.calls != 0 || store.putCalls != 0 {
				t.Errorf("resize=%d put=%d, want no calls", engine.calls, store.putCalls)
			}
		})
	}
}

func TestRenditionService_TransformFailure(t *testing.T) {
	store := &mockObjectStore{}
	engine := &mockTransform{
		resizeFunc: func(data []byte, width, height int) (transform.Result, error) {
			return transform.Result{}, apperrors.ErrDecode
		},
	}
	svc := service.NewRenditionService(store, engine)

	_, err := svc.Fill(context.Background(), request("a.png", "bucket", 10, 10))
	if !errors.Is(err, apperrors.ErrTransform) {
		t.Fatalf("Fill() error = %v, want ErrTransform", err)
	}
	if store.putCalls != 0 {
		t.Errorf("put called %d times after failed transform", store.putCalls)
	}
}

func TestRenditionService_StoreFailure(t *testing.T) {
	store := &mockObjectStore{
		putFunc: func(ctx context.Context, bucket, key string, data []byte, contentType string, visibility domain.Visibility) error {
			return errors.New("access denied")
		},
	}
	ledger := &mockLedger{}
	svc := service.NewRenditionService(store, &mockTransform{}, service.WithLedger(ledger))

	redirect, err := svc.Fill(context.Background(), request("a.png", "bucket", 10, 10))
	if !errors.Is(err, apperrors.ErrStoreWrite) {
		t.Fatalf("Fill() error = %v, want ErrStoreWrite", err)
	}
	if redirect.Location != "" {
		t.Errorf("Location = %q on failure", redirect.Location)
	}
	if store.putCalls != 1 {
		t.Errorf("put called %d times, want exactly one attempt", store.putCalls)
	}
	if len(ledger.records) != 0 {
		t.Error("ledger recorded a rendition that was never stored")
	}
}

func TestRenditionService_PutArguments(t *testing.T) {
	var gotBucket, gotKey, gotType string
	var gotVisibility domain.Visibility
	store := &mockObjectStore{
		putFunc: func(ctx context.Context, bucket, key string, data []byte, contentType string, visibility domain.Visibility) error {
			gotBucket, gotKey, gotType, gotVisibility = bucket, key, contentType, visibility
			return nil
		},
	}
	engine := &mockTransform{
		resizeFunc: func(data []byte, width, height int) (transform.Result, error) {
			return transform.Result{Data: []byte("x"), Format: "gif", Width: width, Height: height}, nil
		},
	}
	svc := service.NewRenditionService(store, engine)

	if _, err := svc.Fill(context.Background(), request("anim.gif", "media", 30, 20)); err != nil {
		t.Fatalf("Fill() failed: %v", err)
	}

	if gotBucket != "media" || gotKey != "images/anim.gif-30x20.gif" || gotType != "image/gif" || gotVisibility != domain.PublicRead {
		t.Errorf("Put(%q, %q, %q, %q)", gotBucket, gotKey, gotType, gotVisibility)
	}
}

func TestRenditionService_Ledger(t *testing.T) {
	filledAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("records the fill", func(t *testing.T) {
		ledger := &mockLedger{}
		svc := service.NewRenditionService(&mockObjectStore{}, &mockTransform{},
			service.WithLedger(ledger), service.WithClock(func() time.Time { return filledAt }))

		if _, err := svc.Fill(context.Background(), request("a.png", "bucket", 10, 20)); err != nil {
			t.Fatalf("Fill() failed: %v", err)
		}
		if len(ledger.records) != 1 {
			t.Fatalf("ledger has %d records, want 1", len(ledger.records))
		}
		got := ledger.records[0]
		want := domain.Rendition{
			SourceKey:    "a.png",
			RenditionKey: "images/a.png-10x20.png",
			Bucket:       "bucket",
			Width:        10,
			Height:       20,
			Format:       "png",
			ContentType:  "image/png",
			Size:         int64(len("resized")),
			FilledAt:     filledAt,
		}
		if got != want {
			t.Errorf("record = %+v, want %+v", got, want)
		}
	})

	t.Run("ledger failure does not fail the fill", func(t *testing.T) {
		ledger := &mockLedger{
			recordFunc: func(ctx context.Context, r domain.Rendition) (domain.Rendition, error) {
				return domain.Rendition{}, errors.New("throttled")
			},
		}
		svc := service.NewRenditionService(&mockObjectStore{}, &mockTransform{}, service.WithLedger(ledger))

		redirect, err := svc.Fill(context.Background(), request("a.png", "bucket", 10, 20))
		if err != nil {
			t.Fatalf("Fill() failed: %v", err)
		}
		if redirect.Location != "/images/a.png-10x20.png" {
			t.Errorf("Location = %q", redirect.Location)
		}
	})
}

// TestRenditionService_EndToEnd fills a 4000x3000 JPEG into a 100x100 box against the in-memory store.
func TestRenditionService_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryObjectRepository()
	original := testutil.EncodedImage(t, "jpeg", 4000, 3000)
	if err := store.Put(ctx, "test-image-gateway", "download.jpeg", original, "image/jpeg", domain.Private); err != nil {
		t.Fatalf("seeding original failed: %v", err)
	}

	svc := service.NewRenditionService(store, transform.NewEngine())
	redirect, err := svc.Fill(ctx, request("download.jpeg", "test-image-gateway", 100, 100))
	if err != nil {
		t.Fatalf("Fill() failed: %v", err)
	}

	if redirect.Location != "/images/download.jpeg-100x100.jpeg" {
		t.Errorf("Location = %q", redirect.Location)
	}

	stored, ok := store.Get("test-image-gateway", "images/download.jpeg-100x100.jpeg")
	if !ok {
		t.Fatal("rendition was not stored under the canonical key")
	}
	if stored.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q, want image/jpeg", stored.ContentType)
	}
	if stored.Visibility != domain.PublicRead {
		t.Errorf("Visibility = %q, want public-read", stored.Visibility)
	}

	w, h, format := testutil.Dimensions(t, stored.Data)
	if format != "jpeg" {
		t.Errorf("stored format = %q", format)
	}
	if w != 100 || h != 75 {
		t.Errorf("stored size = %dx%d, want 100x75", w, h)
	}
}

// TestRenditionService_Idempotent verifies that two fills with identical parameters store identical bytes.
func TestRenditionService_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryObjectRepository()
	_ = store.Put(ctx, "bucket", "photo.png", testutil.EncodedImage(t, "png", 400, 300), "image/png", domain.Private)
	svc := service.NewRenditionService(store, transform.NewEngine())

	var renditions [][]byte
	for i := 0; i < 2; i++ {
		redirect, err := svc.Fill(ctx, request("photo.png", "bucket", 50, 50))
		if err != nil {
			t.Fatalf("Fill() #%d failed: %v", i, err)
		}
		if redirect.Location != "/images/photo.png-50x50.png" {
			t.Errorf("Location = %q", redirect.Location)
		}
		stored, _ := store.Get("bucket", "images/photo.png-50x50.png")
		renditions = append(renditions, stored.Data)
	}

	if !bytes.Equal(renditions[0], renditions[1]) {
		t.Error("repeated fill produced a different rendition")
	}
}

// TestRenditionService_ConcurrentFills verifies that racing fills converge on one object.
func TestRenditionService_ConcurrentFills(t *testing.T) {
	ctx := context.Background()
	store := objectstore.NewMemoryObjectRepository()
	_ = store.Put(ctx, "test-image-gateway", "download.jpeg", testutil.EncodedImage(t, "jpeg", 400, 300), "image/jpeg", domain.Private)
	svc := service.NewRenditionService(store, transform.NewEngine())

	var wg sync.WaitGroup
	locations := make([]string, 2)
	errs := make([]error, 2)
	for i := range locations {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			redirect, err := svc.Fill(ctx, request("download.jpeg", "test-image-gateway", 100, 100))
			locations[i], errs[i] = redirect.Location, err
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Fill() #%d failed: %v", i, err)
		}
	}
	if locations[0] != locations[1] {
		t.Errorf("locations differ: %q vs %q", locations[0], locations[1])
	}

	var renditions int
	for _, key := range store.Keys("test-image-gateway") {
		if key != "download.jpeg" {
			renditions++
		}
	}
	if renditions != 1 {
		t.Errorf("found %d renditions, want exactly 1", renditions)
	}
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name          string
		width, height any
		wantErr       bool
	}{
		{"absent", nil, nil, false},
		{"strings", "100", "200", false},
		{"ints", 100, 200, false},
		{"false means absent", false, false, false},
		{"garbage width", "wide", "10", true},
		{"garbage height", "10", "1.5e", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.ParseRequest("a.png", "bucket", tt.width, tt.height)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperrors.ErrMissingParameter) {
				t.Errorf("ParseRequest() error = %v, want ErrMissingParameter", err)
			}
		})
	}
}
