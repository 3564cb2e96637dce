package imagecache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ziadkadry99/folio/internal/fetch"
	"github.com/ziadkadry99/folio/internal/kvstore"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

// assets serves fixed bodies; unknown refs are 404.
func assets(files map[string][]byte) *fetch.Counting {
	return fetch.NewCounting(fetch.Func(func(ctx context.Context, ref string) (*fetch.Response, error) {
		body, ok := files[ref]
		if !ok {
			return &fetch.Response{Status: http.StatusNotFound, StatusText: "Not Found"}, nil
		}
		return &fetch.Response{OK: true, Status: 200, ContentType: "image/png", Body: body}, nil
	}))
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupCache(t *testing.T, store kvstore.Store, f fetch.Fetcher) *Cache {
	t.Helper()
	c := New(store, f, Options{Logger: quietLogger()})
	t.Cleanup(c.Flush)
	return c
}

func TestKey(t *testing.T) {
	c := New(kvstore.NewMemStore(0), nil, Options{})
	tests := []struct {
		id   string
		want string
	}{
		{"assets/projects/alpha.png", "img_cache_alpha.png"},
		{"https://cdn.example.com/img/beta.webp?v=3", "img_cache_beta.webp"},
		{"/gamma.jpg", "img_cache_gamma.jpg"},
		{"https://cdn.example.com/img/dir/", "img_cache_dir"},
	}
	for _, tt := range tests {
		if got := c.Key(tt.id); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestGetMiss(t *testing.T) {
	c := setupCache(t, kvstore.NewMemStore(0), assets(nil))
	if h, ok := c.Get(context.Background(), "img/a.png"); ok || h != nil {
		t.Errorf("Get on empty cache = (%v, %v), want miss", h, ok)
	}
	if c.Stats().Misses != 1 {
		t.Errorf("Misses = %d, want 1", c.Stats().Misses)
	}
}

func TestPopulateThenGetHitsMemory(t *testing.T) {
	img := testPNG(t, 3, 2)
	f := assets(map[string][]byte{"img/a.png": img})
	c := setupCache(t, kvstore.NewMemStore(0), f)
	ctx := context.Background()

	h := c.Populate(ctx, "img/a.png")
	if h.Degraded {
		t.Fatal("unexpected degraded handle")
	}
	if !bytes.Equal(h.Bytes(), img) {
		t.Error("handle bytes differ from fetched bytes")
	}
	if h.Width != 3 || h.Height != 2 {
		t.Errorf("dimensions = %dx%d, want 3x2", h.Width, h.Height)
	}
	if !strings.HasPrefix(h.Src(), "data:image/png;base64,") {
		t.Errorf("Src = %q, want a png data url", h.Src()[:30])
	}

	got, ok := c.Get(ctx, "img/a.png")
	if !ok || got != h {
		t.Error("Get after Populate must return the same handle")
	}
	if c.Stats().MemoryHits != 1 {
		t.Errorf("MemoryHits = %d, want 1", c.Stats().MemoryHits)
	}
	if f.Count("img/a.png") != 1 {
		t.Errorf("fetches = %d, want 1", f.Count("img/a.png"))
	}
}

func TestPopulatePersistsSmallImages(t *testing.T) {
	img := testPNG(t, 4, 4)
	store := kvstore.NewMemStore(0)
	c := setupCache(t, store, assets(map[string][]byte{"img/a.png": img}))
	ctx := context.Background()

	c.Populate(ctx, "img/a.png")
	c.Flush()

	payload, ok, _ := store.Get(ctx, "img_cache_a.png")
	if !ok {
		t.Fatal("expected persisted payload")
	}
	ct, b, err := DecodePayload(payload)
	if err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if ct != "image/png" || !bytes.Equal(b, img) {
		t.Errorf("persisted payload does not round-trip: type %q", ct)
	}
	if c.Stats().Persisted != 1 {
		t.Errorf("Persisted = %d, want 1", c.Stats().Persisted)
	}
}

func TestNewSessionReadsPersistentTier(t *testing.T) {
	img := testPNG(t, 5, 1)
	store := kvstore.NewMemStore(0)
	ctx := context.Background()

	first := setupCache(t, store, assets(map[string][]byte{"img/a.png": img}))
	first.Populate(ctx, "img/a.png")
	first.Flush()

	// A fresh process: empty memory tier, same store, nothing fetchable.
	f := assets(nil)
	second := setupCache(t, store, f)
	h, ok := second.Get(ctx, "img/a.png")
	if !ok {
		t.Fatal("expected persistent hit")
	}
	if !bytes.Equal(h.Bytes(), img) || h.ContentType != "image/png" {
		t.Error("restored handle differs from original")
	}
	if h.Width != 5 || h.Height != 1 {
		t.Errorf("dimensions = %dx%d, want 5x1", h.Width, h.Height)
	}
	if f.Total() != 0 {
		t.Errorf("persistent hit issued %d fetches", f.Total())
	}

	again, _ := second.Get(ctx, "img/a.png")
	if again != h {
		t.Error("second Get must hit the memory tier and return the same handle")
	}
	st := second.Stats()
	if st.PersistentHits != 1 || st.MemoryHits != 1 {
		t.Errorf("stats = %+v, want 1 persistent hit and 1 memory hit", st)
	}
}

func TestCorruptPayloadIsAMiss(t *testing.T) {
	store := kvstore.NewMemStore(0)
	ctx := context.Background()
	store.Set(ctx, "img_cache_a.png", "data:image/png;base64,@@not-base64@@")

	img := testPNG(t, 1, 1)
	c := setupCache(t, store, assets(map[string][]byte{"img/a.png": img}))

	if _, ok := c.Get(ctx, "img/a.png"); ok {
		t.Fatal("corrupt payload must be reported as a miss")
	}
	if c.Stats().DecodeFailures != 1 {
		t.Errorf("DecodeFailures = %d, want 1", c.Stats().DecodeFailures)
	}

	// Falling through to Populate heals the entry.
	h := c.Load(ctx, "img/a.png")
	c.Flush()
	if h.Degraded {
		t.Fatal("Load should have populated a real handle")
	}
	payload, _, _ := store.Get(ctx, "img_cache_a.png")
	if _, _, err := DecodePayload(payload); err != nil {
		t.Errorf("entry not healed: %v", err)
	}
}

func TestLargeImageIsNotPersisted(t *testing.T) {
	big := make([]byte, 2<<20)
	store := kvstore.NewMemStore(0)
	c := setupCache(t, store, assets(map[string][]byte{"img/big.png": big}))
	ctx := context.Background()

	h := c.Populate(ctx, "img/big.png")
	c.Flush()

	if h.Degraded || h.Size() != len(big) {
		t.Fatalf("handle not created for large image: degraded=%v size=%d", h.Degraded, h.Size())
	}
	if store.Len() != 0 {
		t.Errorf("store has %d entries, want none", store.Len())
	}
	if c.Stats().SkippedSize != 1 {
		t.Errorf("SkippedSize = %d, want 1", c.Stats().SkippedSize)
	}
}

func TestCeilingIsExclusive(t *testing.T) {
	store := kvstore.NewMemStore(0)
	c := New(store, assets(map[string][]byte{
		"img/under.png": make([]byte, 99),
		"img/at.png":    make([]byte, 100),
	}), Options{MaxPersistBytes: 100, Logger: quietLogger()})
	ctx := context.Background()

	c.Populate(ctx, "img/under.png")
	c.Populate(ctx, "img/at.png")
	c.Flush()

	if _, ok, _ := store.Get(ctx, "img_cache_under.png"); !ok {
		t.Error("image under the ceiling should be persisted")
	}
	if _, ok, _ := store.Get(ctx, "img_cache_at.png"); ok {
		t.Error("image at the ceiling should not be persisted")
	}
}

func TestFetchFailureDegrades(t *testing.T) {
	c := setupCache(t, kvstore.NewMemStore(0), assets(nil))
	h := c.Populate(context.Background(), "https://cdn.example.com/missing.png")
	if !h.Degraded {
		t.Error("expected degraded handle")
	}
	if h.Src() != "https://cdn.example.com/missing.png" || h.String() != h.Src() {
		t.Errorf("degraded Src = %q, want the identifier", h.Src())
	}
	if h.Bytes() != nil {
		t.Error("degraded handle should carry no bytes")
	}
}

func TestTransportErrorDegrades(t *testing.T) {
	f := fetch.Func(func(ctx context.Context, ref string) (*fetch.Response, error) {
		return nil, errors.New("connection reset")
	})
	c := setupCache(t, kvstore.NewMemStore(0), f)
	if h := c.Populate(context.Background(), "img/a.png"); !h.Degraded || h.Src() != "img/a.png" {
		t.Errorf("handle = %+v, want degraded with identifier source", h)
	}
	if c.Stats().Degraded != 1 {
		t.Errorf("Degraded = %d, want 1", c.Stats().Degraded)
	}
}

type failingStore struct{ kvstore.Store }

func (failingStore) Set(context.Context, string, string) error {
	return kvstore.ErrQuotaExceeded
}

func TestPersistFailureIsSwallowed(t *testing.T) {
	img := testPNG(t, 2, 2)
	c := setupCache(t, failingStore{kvstore.NewMemStore(0)}, assets(map[string][]byte{"img/a.png": img}))
	h := c.Populate(context.Background(), "img/a.png")
	c.Flush()

	if h.Degraded || !bytes.Equal(h.Bytes(), img) {
		t.Error("write failure must not affect the returned handle")
	}
	if c.Stats().PersistFailed != 1 {
		t.Errorf("PersistFailed = %d, want 1", c.Stats().PersistFailed)
	}
}

// blockingStore holds every Set until release is closed.
type blockingStore struct {
	kvstore.Store
	release chan struct{}
}

func (b blockingStore) Set(ctx context.Context, key, val string) error {
	<-b.release
	return b.Store.Set(ctx, key, val)
}

func TestPopulateDoesNotWaitForPersistence(t *testing.T) {
	store := blockingStore{Store: kvstore.NewMemStore(0), release: make(chan struct{})}
	c := New(store, assets(map[string][]byte{"img/a.png": testPNG(t, 1, 1)}), Options{Logger: quietLogger()})

	h := c.Populate(context.Background(), "img/a.png")
	if h == nil || h.Degraded {
		t.Fatal("Populate should return while the write is still pending")
	}
	if _, ok := c.Get(context.Background(), "img/a.png"); !ok {
		t.Error("memory tier must be consistent before persistence completes")
	}
	close(store.release)
	c.Flush()
}

func TestConcurrentPopulateFetchesOnce(t *testing.T) {
	f := assets(map[string][]byte{"img/a.png": testPNG(t, 1, 1)})
	c := setupCache(t, kvstore.NewMemStore(0), f)
	ctx := context.Background()

	var wg sync.WaitGroup
	handles := make([]*Handle, 20)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i] = c.Load(ctx, "img/a.png")
		}(i)
	}
	wg.Wait()

	if f.Count("img/a.png") != 1 {
		t.Errorf("fetches = %d, want 1", f.Count("img/a.png"))
	}
	for i, h := range handles {
		if h != handles[0] {
			t.Fatalf("handle %d differs from handle 0", i)
		}
	}
}

func TestFailedPopulateIsNotRemembered(t *testing.T) {
	var up atomic.Bool
	img := testPNG(t, 1, 1)
	f := fetch.NewCounting(fetch.Func(func(ctx context.Context, ref string) (*fetch.Response, error) {
		if !up.Load() {
			return nil, errors.New("connection refused")
		}
		return &fetch.Response{OK: true, Status: 200, ContentType: "image/png", Body: img}, nil
	}))
	c := setupCache(t, kvstore.NewMemStore(0), f)
	ctx := context.Background()

	if h := c.Populate(ctx, "img/a.png"); !h.Degraded {
		t.Fatal("expected degraded handle while the origin is down")
	}
	if c.Stats().Entries != 0 {
		t.Errorf("Entries = %d, want 0 after a failed fetch", c.Stats().Entries)
	}

	up.Store(true)
	h := c.Load(ctx, "img/a.png")
	if h.Degraded || !bytes.Equal(h.Bytes(), img) {
		t.Error("later load should fetch again and succeed")
	}
	if f.Count("img/a.png") != 2 {
		t.Errorf("fetches = %d, want 2", f.Count("img/a.png"))
	}
}

func TestCanceledCallerDoesNotPoisonCache(t *testing.T) {
	img := testPNG(t, 1, 1)
	f := fetch.NewCounting(fetch.Func(func(ctx context.Context, ref string) (*fetch.Response, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &fetch.Response{OK: true, Status: 200, ContentType: "image/png", Body: img}, nil
	}))
	c := setupCache(t, kvstore.NewMemStore(0), f)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	c.Populate(canceled, "img/a.png")

	h := c.Load(context.Background(), "img/a.png")
	if h.Degraded || !bytes.Equal(h.Bytes(), img) {
		t.Fatalf("load after a canceled populate = %+v, want a good handle", h)
	}
	if f.Count("img/a.png") != 1 {
		t.Errorf("fetches = %d, want 1", f.Count("img/a.png"))
	}
}

func TestUnknownIDsDoNotGrowMemory(t *testing.T) {
	c := setupCache(t, kvstore.NewMemStore(0), assets(nil))
	ctx := context.Background()
	for i := range 100 {
		c.Load(ctx, fmt.Sprintf("img/missing-%d.png", i))
	}
	if c.Stats().Entries != 0 {
		t.Errorf("Entries = %d, want 0", c.Stats().Entries)
	}
}

func TestOversizedBodyDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(make([]byte, 200))
	}))
	defer srv.Close()

	hf, err := fetch.NewHTTP(fetch.HTTPConfig{BaseURL: srv.URL, MaxBytes: 50})
	if err != nil {
		t.Fatal(err)
	}
	store := kvstore.NewMemStore(0)
	c := setupCache(t, store, hf)

	h := c.Populate(context.Background(), "/img/big.png")
	c.Flush()
	if !h.Degraded {
		t.Errorf("handle size=%d degraded=false, want degraded", h.Size())
	}
	if store.Len() != 0 {
		t.Error("truncated body must not be persisted")
	}
}
