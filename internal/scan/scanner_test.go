package scan

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"burstpick/internal/models"
)

// fakeFingerprinter hashes by file name and records concurrency
type fakeFingerprinter struct {
	mu        sync.Mutex
	inFlight  int
	maxFlight int
	failHash  map[string]bool
	failDims  map[string]bool
	delay     time.Duration
}

func (f *fakeFingerprinter) enter() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	f.mu.Unlock()
}

func (f *fakeFingerprinter) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeFingerprinter) FingerprintWithTimeout(_ context.Context, path string, _ time.Duration) (uint64, error) {
	f.enter()
	defer f.leave()
	time.Sleep(f.delay)
	if f.failHash[filepath.Base(path)] {
		return 0, errors.New("decode failed")
	}
	return uint64(len(filepath.Base(path))), nil
}

func (f *fakeFingerprinter) Dimensions(path string) (*models.Dimensions, error) {
	if f.failDims[filepath.Base(path)] {
		return nil, errors.New("header unreadable")
	}
	return &models.Dimensions{Width: 6000, Height: 4000}, nil
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.White)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
}

func newImages(names ...string) []*models.Image {
	images := make([]*models.Image, len(names))
	for i, n := range names {
		images[i] = &models.Image{Path: filepath.Join("/photos", n), Name: n, Size: 10 * 1024 * 1024}
	}
	return images
}

func TestNewScanner_Defaults(t *testing.T) {
	s := NewScanner()

	if s.batchSize != DefaultBatchSize {
		t.Errorf("default batch size = %d, want %d", s.batchSize, DefaultBatchSize)
	}
	if s.timeout != 30*time.Second {
		t.Errorf("default timeout = %v, want 30s", s.timeout)
	}
	if s.recursive {
		t.Error("default should not be recursive")
	}
	if s.progressFn != nil {
		t.Error("default progressFn should be nil")
	}
}

func TestNewScanner_WithBatchSize(t *testing.T) {
	s := NewScanner(WithBatchSize(4))
	if s.batchSize != 4 {
		t.Errorf("batch size = %d, want 4", s.batchSize)
	}

	// Non-positive sizes keep the default
	for _, n := range []int{0, -1} {
		if s := NewScanner(WithBatchSize(n)); s.batchSize != DefaultBatchSize {
			t.Errorf("batch size with %d = %d, want %d", n, s.batchSize, DefaultBatchSize)
		}
	}
}

func TestNewScanner_MultipleOptions(t *testing.T) {
	s := NewScanner(
		WithBatchSize(16),
		WithTimeout(10*time.Second),
		WithRecursive(true),
		WithProgress(func(_, _ int, _ string) {}),
	)

	if s.batchSize != 16 {
		t.Errorf("batch size = %d, want 16", s.batchSize)
	}
	if s.timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", s.timeout)
	}
	if !s.recursive {
		t.Error("recursive should be set")
	}
	if s.progressFn == nil {
		t.Error("progressFn should not be nil")
	}
}

func TestListFolder_EmptyDirectory(t *testing.T) {
	images, err := NewScanner().ListFolder(t.TempDir())
	if err != nil {
		t.Fatalf("ListFolder failed: %v", err)
	}
	if images != nil {
		t.Errorf("expected nil for empty directory, got %d images", len(images))
	}
}

func TestListFolder_MissingDirectory(t *testing.T) {
	_, err := NewScanner().ListFolder(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Error("expected error for missing folder")
	}
}

func TestListFolder_FiltersAndSortsByName(t *testing.T) {
	tmpDir := t.TempDir()

	for _, f := range []string{"notes.txt", "doc.pdf", "script.sh"} {
		if err := os.WriteFile(filepath.Join(tmpDir, f), []byte("content"), 0644); err != nil {
			t.Fatalf("failed to create file: %v", err)
		}
	}
	for _, f := range []string{"c.png", "A.png", "b.PNG"} {
		writePNG(t, filepath.Join(tmpDir, f))
	}

	images, err := NewScanner().ListFolder(tmpDir)
	if err != nil {
		t.Fatalf("ListFolder failed: %v", err)
	}

	var names []string
	for _, img := range images {
		names = append(names, img.Name)
		if img.Size <= 0 {
			t.Errorf("%s: size not filled", img.Name)
		}
		if img.ModTime.IsZero() {
			t.Errorf("%s: mod time not filled", img.Name)
		}
		if img.Hash != nil || img.Dimensions != nil {
			t.Errorf("%s: listing must not enrich", img.Name)
		}
	}
	if got := strings.Join(names, ","); got != "A.png,b.PNG,c.png" {
		t.Errorf("names = %s, want A.png,b.PNG,c.png", got)
	}
}

func TestListFolder_Recursive(t *testing.T) {
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "subdir")
	if err := os.Mkdir(subDir, 0755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}
	writePNG(t, filepath.Join(tmpDir, "root.png"))
	writePNG(t, filepath.Join(subDir, "sub.png"))

	flat, err := NewScanner().ListFolder(tmpDir)
	if err != nil {
		t.Fatalf("ListFolder failed: %v", err)
	}
	if len(flat) != 1 {
		t.Errorf("expected 1 image without recursion, got %d", len(flat))
	}

	deep, err := NewScanner(WithRecursive(true)).ListFolder(tmpDir)
	if err != nil {
		t.Fatalf("ListFolder failed: %v", err)
	}
	if len(deep) != 2 {
		t.Errorf("expected 2 images with recursion, got %d", len(deep))
	}
}

func TestEnrich_FillsFields(t *testing.T) {
	fp := &fakeFingerprinter{}
	images := newImages("a.jpg", "bb.jpg")

	s := NewScanner(WithFingerprinter(fp))
	if err := s.Enrich(context.Background(), images); err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	for _, img := range images {
		if img.Hash == nil || *img.Hash != uint64(len(img.Name)) {
			t.Errorf("%s: hash = %v", img.Name, img.Hash)
		}
		if img.Dimensions == nil || img.Dimensions.Width != 6000 {
			t.Errorf("%s: dimensions = %v", img.Name, img.Dimensions)
		}
		// 24MP, 10MB, clean name
		if img.Score != 100 {
			t.Errorf("%s: score = %d, want 100", img.Name, img.Score)
		}
	}
}

func TestEnrich_PerImageFailuresAreIsolated(t *testing.T) {
	fp := &fakeFingerprinter{
		failHash: map[string]bool{"broken.jpg": true},
		failDims: map[string]bool{"broken.jpg": true, "nodims.jpg": true},
	}
	images := newImages("ok.jpg", "broken.jpg", "nodims.jpg")

	if err := NewScanner(WithFingerprinter(fp)).Enrich(context.Background(), images); err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	ok, broken, nodims := images[0], images[1], images[2]
	if ok.Hash == nil || ok.Dimensions == nil {
		t.Error("ok.jpg should be fully enriched")
	}
	if broken.Hash != nil || broken.Dimensions != nil {
		t.Error("broken.jpg should have no hash or dimensions")
	}
	// size + naming only
	if broken.Score != 60 {
		t.Errorf("broken.jpg score = %d, want 60", broken.Score)
	}
	if nodims.Hash == nil || nodims.Dimensions != nil {
		t.Error("nodims.jpg should have a hash but no dimensions")
	}
}

func TestEnrich_BatchesBoundConcurrency(t *testing.T) {
	fp := &fakeFingerprinter{delay: 5 * time.Millisecond}
	var names []string
	for i := 0; i < 25; i++ {
		names = append(names, string(rune('a'+i))+".jpg")
	}
	images := newImages(names...)

	if err := NewScanner(WithFingerprinter(fp), WithBatchSize(10)).Enrich(context.Background(), images); err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	if fp.maxFlight > 10 {
		t.Errorf("max concurrent fingerprints = %d, want <= 10", fp.maxFlight)
	}
	for i, img := range images {
		if img.Name != names[i] {
			t.Fatalf("order changed at %d: %s", i, img.Name)
		}
	}
}

func TestEnrich_ProgressCallback(t *testing.T) {
	var callCount int64
	s := NewScanner(
		WithFingerprinter(&fakeFingerprinter{}),
		WithBatchSize(2),
		WithProgress(func(scanned, total int, current string) {
			atomic.AddInt64(&callCount, 1)
			if total != 3 {
				t.Errorf("total = %d, want 3", total)
			}
		}),
	)

	if err := s.Enrich(context.Background(), newImages("a.jpg", "b.jpg", "c.jpg")); err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if callCount != 3 {
		t.Errorf("progress called %d times, want 3", callCount)
	}
}

func TestEnrich_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	images := newImages("a.jpg")
	err := NewScanner(WithFingerprinter(&fakeFingerprinter{})).Enrich(ctx, images)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if images[0].Hash != nil {
		t.Error("no image should be enriched after cancellation")
	}
}

// cancellingFingerprinter cancels the run while hashing and then reports
// the cancellation, like a decode interrupted by Ctrl-C
type cancellingFingerprinter struct {
	fakeFingerprinter
	cancel context.CancelFunc
}

func (f *cancellingFingerprinter) FingerprintWithTimeout(ctx context.Context, _ string, _ time.Duration) (uint64, error) {
	f.cancel()
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestEnrich_CancelledDuringLastBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	images := newImages("a.jpg", "b.jpg")
	fp := &cancellingFingerprinter{cancel: cancel}
	err := NewScanner(WithFingerprinter(fp)).Enrich(ctx, images)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled from the only batch, got %v", err)
	}
}

func TestEnrich_CancelledAfterEarlierBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Batch one completes; the cancellation lands in the second and last batch
	var calls atomic.Int32
	images := newImages("a.jpg", "b.jpg", "c.jpg")
	s := NewScanner(
		WithBatchSize(2),
		WithFingerprinter(&fakeFingerprinter{}),
		WithProgress(func(_, _ int, current string) {
			if calls.Add(1) == 3 {
				cancel()
			}
		}),
	)

	if err := s.Enrich(ctx, images); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if images[0].Hash == nil || images[1].Hash == nil {
		t.Error("first batch should have been enriched before the cancellation")
	}
}

func TestEnrich_RealFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writePNG(t, filepath.Join(tmpDir, "one.png"))
	writePNG(t, filepath.Join(tmpDir, "two.png"))

	s := NewScanner()
	images, err := s.ListFolder(tmpDir)
	if err != nil {
		t.Fatalf("ListFolder failed: %v", err)
	}
	if err := s.Enrich(context.Background(), images); err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	if images[0].Hash == nil || images[1].Hash == nil {
		t.Fatal("expected fingerprints for decodable images")
	}
	if *images[0].Hash != *images[1].Hash {
		t.Error("identical images should share a fingerprint")
	}
	if images[0].Dimensions == nil || images[0].Dimensions.Width != 4 {
		t.Errorf("dimensions = %v, want 4x4", images[0].Dimensions)
	}
}
